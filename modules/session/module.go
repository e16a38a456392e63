package session

import (
	"household-api/core/cache"
	"household-api/core/middleware"
	"household-api/modules/session/controller"
	"household-api/modules/session/router"
	"household-api/modules/session/service"

	"github.com/labstack/echo/v4"
)

// Init registers the logout route. Tokens are issued elsewhere; this module
// only revokes them.
func Init(e *echo.Echo, cache cache.Cache, mw *middleware.Middleware) {
	svc := service.NewSessionService(cache)
	router.NewSessionRouter(controller.NewSessionController(svc)).Setup(e, mw)
}
