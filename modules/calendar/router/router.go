package router

import (
	"household-api/core/middleware"
	"household-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		controller: controller,
	}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")

	// Private routes (require authentication)
	calendarRoutes := v1.Group("/private/calendar")
	calendarRoutes.Use(mw.AuthMiddleware())

	calendarRoutes.GET("/occurrences", r.controller.GetOccurrences)

	// Events
	calendarRoutes.POST("/events", r.controller.CreateEvent)
	calendarRoutes.GET("/events/:id", r.controller.GetEvent)
	calendarRoutes.PUT("/events/:id", r.controller.UpdateEvent)
	calendarRoutes.DELETE("/events/:id", r.controller.DeleteEvent)

	// Availability
	calendarRoutes.POST("/free-busy", r.controller.GetFreeBusy)
	calendarRoutes.POST("/available-slots", r.controller.FindAvailableSlots)
}
