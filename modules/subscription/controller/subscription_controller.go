package controller

import (
	"household-api/core/controller"
	"household-api/core/errors"
	"household-api/core/middleware"
	"household-api/core/utils"
	"household-api/modules/subscription/dto"
	"household-api/modules/subscription/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type SubscriptionController struct {
	controller.BaseController
	SubscriptionService service.SubscriptionServiceInterface
}

func NewSubscriptionController(service service.SubscriptionServiceInterface) *SubscriptionController {
	return &SubscriptionController{
		BaseController:      controller.NewBaseController(),
		SubscriptionService: service,
	}
}

// GET /api/v1/private/calendar/subscriptions
func (ctl *SubscriptionController) List(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	result, appErr := ctl.SubscriptionService.List(c.Request().Context(), claims.TenantID, claims.UserID)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, result, "list subscriptions success")
}

// POST /api/v1/private/calendar/subscriptions
func (ctl *SubscriptionController) Create(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	requestData := new(dto.CreateSubscriptionRequest)
	if err := c.Bind(requestData); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	result, appErr := ctl.SubscriptionService.Create(c.Request().Context(), claims.TenantID, claims.UserID, requestData)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, result, "create subscription success")
}

// DELETE /api/v1/private/calendar/subscriptions/:id
func (ctl *SubscriptionController) Delete(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	id := utils.ToUUID(c.Param("id"))
	if id == uuid.Nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid subscription id")
	}

	if appErr := ctl.SubscriptionService.Delete(c.Request().Context(), claims.TenantID, claims.UserID, id); appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, nil, "delete subscription success")
}

// POST /api/v1/private/calendar/subscriptions/:id/sync
func (ctl *SubscriptionController) Sync(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	id := utils.ToUUID(c.Param("id"))
	if id == uuid.Nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid subscription id")
	}

	result, appErr := ctl.SubscriptionService.RequestSync(c.Request().Context(), claims.TenantID, claims.UserID, id)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}
	return ctl.SuccessResponse(c, result, "sync requested")
}
