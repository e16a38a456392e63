package subscription

import (
	"household-api/core/config"
	"household-api/core/database"
	"household-api/core/logger"
	"household-api/core/middleware"
	"household-api/modules/subscription/controller"
	"household-api/modules/subscription/repository"
	"household-api/modules/subscription/router"
	"household-api/modules/subscription/service"
	"household-api/modules/subscription/worker"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
)

// Module holds what the server must start and stop.
type Module struct {
	enqueuer *worker.Enqueuer
	worker   *worker.Worker
}

// Init wires the subscription routes. With the worker enabled, syncs run on
// the asynq queue and a cron schedule refreshes every active feed.
func Init(e *echo.Echo, db database.IDatabase, mw *middleware.Middleware, redisCfg config.RedisConfig, cfg config.SubscriptionConfig) (*Module, error) {
	repo := repository.NewSubscriptionRepository(db)
	settings := service.Settings{
		FetchTimeout: cfg.FetchTimeout,
		HorizonDays:  cfg.HorizonDays,
	}

	m := &Module{}
	var svc *service.SubscriptionService
	if cfg.WorkerEnabled {
		redisOpt := asynq.RedisClientOpt{
			Addr:     redisCfg.Addr,
			Password: redisCfg.Password,
			DB:       redisCfg.DB,
		}
		m.enqueuer = worker.NewEnqueuer(redisOpt)
		svc = service.NewSubscriptionService(repo, service.NewHTTPFetcher(), m.enqueuer, settings)

		w, err := worker.NewWorker(redisOpt, worker.Config{
			Concurrency: cfg.Concurrency,
			RefreshCron: cfg.RefreshCron,
		}, svc)
		if err != nil {
			return nil, err
		}
		m.worker = w
	} else {
		svc = service.NewSubscriptionService(repo, service.NewHTTPFetcher(), nil, settings)
		logger.Info("Subscription worker disabled, syncs run inline")
	}

	router.NewSubscriptionRouter(controller.NewSubscriptionController(svc)).Setup(e, mw)
	return m, nil
}

func (m *Module) Start() error {
	if m.worker == nil {
		return nil
	}
	return m.worker.Start()
}

func (m *Module) Shutdown() {
	if m.worker != nil {
		m.worker.Shutdown()
	}
	if m.enqueuer != nil {
		if err := m.enqueuer.Close(); err != nil {
			logger.Warn("Subscription enqueuer close", "error", err)
		}
	}
}
