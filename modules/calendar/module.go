package calendar

import (
	"household-api/core/cache"
	"household-api/core/config"
	"household-api/core/database"
	"household-api/core/middleware"
	"household-api/modules/calendar/controller"
	"household-api/modules/calendar/repository"
	"household-api/modules/calendar/router"
	"household-api/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.IDatabase, cache cache.Cache, mw *middleware.Middleware, cfg config.CalendarConfig) {
	// Initialize layers
	repo := repository.NewCalendarRepository(db)

	var locker service.Locker
	if cache != nil {
		locker = cache
	}
	calendarService := service.NewCalendarService(repo, locker, service.Settings{
		MaxRangeDays:           cfg.MaxRangeDays,
		LockTTL:                cfg.MutationLockTTL,
		DefaultDurationMinutes: cfg.DefaultDurationMinutes,
	})
	calendarController := controller.NewCalendarController(calendarService)

	// Setup routes
	router.NewCalendarRouter(calendarController).Setup(e, mw)
}
