package router

import (
	"household-api/core/middleware"
	"household-api/modules/subscription/controller"

	"github.com/labstack/echo/v4"
)

type SubscriptionRouter struct {
	controller *controller.SubscriptionController
}

func NewSubscriptionRouter(controller *controller.SubscriptionController) *SubscriptionRouter {
	return &SubscriptionRouter{controller: controller}
}

func (r *SubscriptionRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	routes := e.Group("/api/v1/private/calendar/subscriptions")
	routes.Use(mw.AuthMiddleware())

	routes.GET("", r.controller.List)
	routes.POST("", r.controller.Create)
	routes.DELETE("/:id", r.controller.Delete)
	routes.POST("/:id/sync", r.controller.Sync)
}
