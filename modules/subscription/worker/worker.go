package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"household-api/core/constants"
	"household-api/core/errors"
	"household-api/core/logger"
	"household-api/modules/subscription/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// SyncPayload is the body of a subscription sync task.
type SyncPayload struct {
	SubscriptionID uuid.UUID `json:"subscription_id"`
}

func NewSyncTask(subscriptionID uuid.UUID) (*asynq.Task, error) {
	payload, err := json.Marshal(SyncPayload{SubscriptionID: subscriptionID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskSubscriptionSync, payload), nil
}

// Enqueuer queues sync tasks on redis. A subscription has at most one
// pending sync at a time.
type Enqueuer struct {
	client    *asynq.Client
	uniqueTTL time.Duration
}

func NewEnqueuer(redisOpt asynq.RedisClientOpt) *Enqueuer {
	return &Enqueuer{
		client:    asynq.NewClient(redisOpt),
		uniqueTTL: 5 * time.Minute,
	}
}

func (e *Enqueuer) EnqueueSync(ctx context.Context, subscriptionID uuid.UUID) error {
	task, err := NewSyncTask(subscriptionID)
	if err != nil {
		return err
	}

	info, err := e.client.EnqueueContext(ctx, task,
		asynq.Queue(constants.QueueSubscriptions),
		asynq.MaxRetry(3),
		asynq.Timeout(2*time.Minute),
		asynq.Unique(e.uniqueTTL),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			logger.Debug("Worker:EnqueueSync - already pending", "subscription_id", subscriptionID)
			return nil
		}
		return err
	}

	logger.Debug("Worker:EnqueueSync - queued", "subscription_id", subscriptionID, "task_id", info.ID)
	return nil
}

func (e *Enqueuer) Close() error {
	return e.client.Close()
}

// Syncer is the part of the subscription service the worker drives.
type Syncer interface {
	Sync(ctx context.Context, id uuid.UUID) error
	EnqueueAll(ctx context.Context) (int, error)
}

// HandleSyncTask returns the asynq handler for sync tasks.
func HandleSyncTask(syncer Syncer) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p SyncPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}

		err := syncer.Sync(ctx, p.SubscriptionID)
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			// deleted after the task was queued
			return fmt.Errorf("subscription %s: %w", p.SubscriptionID, asynq.SkipRetry)
		}
		return err
	}
}

// Worker runs the asynq server and the periodic refresh schedule.
type Worker struct {
	server    *asynq.Server
	scheduler *cron.Cron
	mux       *asynq.ServeMux
}

type Config struct {
	Concurrency int
	RefreshCron string
}

func NewWorker(redisOpt asynq.RedisClientOpt, cfg Config, syncer Syncer) (*Worker, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{constants.QueueSubscriptions: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Error("Worker:task failed", err, "type", task.Type())
		}),
	})

	mux := asynq.NewServeMux()
	mux.Handle(constants.TaskSubscriptionSync, HandleSyncTask(syncer))

	scheduler := cron.New()
	if cfg.RefreshCron != "" {
		if _, err := scheduler.AddFunc(cfg.RefreshCron, func() {
			ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultRequestTimeout)
			defer cancel()
			n, err := syncer.EnqueueAll(ctx)
			if err != nil {
				logger.Error("Worker:refresh failed", err)
				return
			}
			logger.Info("Worker:refresh queued", "subscriptions", n)
		}); err != nil {
			return nil, fmt.Errorf("invalid refresh cron %q: %w", cfg.RefreshCron, err)
		}
	}

	return &Worker{server: server, scheduler: scheduler, mux: mux}, nil
}

func (w *Worker) Start() error {
	if err := w.server.Start(w.mux); err != nil {
		return err
	}
	w.scheduler.Start()
	logger.Info("Worker started", "queue", constants.QueueSubscriptions)
	return nil
}

func (w *Worker) Shutdown() {
	<-w.scheduler.Stop().Done()
	w.server.Shutdown()
	logger.Info("Worker stopped")
}
