package controller

import (
	"household-api/core/controller"
	"household-api/core/errors"
	"household-api/core/middleware"
	"household-api/core/utils"
	"household-api/modules/session/service"

	"github.com/labstack/echo/v4"
)

type SessionController struct {
	controller.BaseController
	SessionService service.SessionServiceInterface
}

func NewSessionController(service service.SessionServiceInterface) *SessionController {
	return &SessionController{
		BaseController: controller.NewBaseController(),
		SessionService: service,
	}
}

// POST /api/v1/private/auth/logout
func (ctl *SessionController) Logout(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	token, err := utils.GetTokenFromHeader(c.Request().Header.Get(echo.HeaderAuthorization))
	if err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	if appErr := ctl.SessionService.Logout(c.Request().Context(), token, claims); appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, nil, "logout success")
}
