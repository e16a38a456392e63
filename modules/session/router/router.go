package router

import (
	"household-api/core/middleware"
	"household-api/modules/session/controller"

	"github.com/labstack/echo/v4"
)

type SessionRouter struct {
	controller *controller.SessionController
}

func NewSessionRouter(controller *controller.SessionController) *SessionRouter {
	return &SessionRouter{controller: controller}
}

func (r *SessionRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	routes := e.Group("/api/v1/private/auth")
	routes.Use(mw.AuthMiddleware())

	routes.POST("/logout", r.controller.Logout)
}
