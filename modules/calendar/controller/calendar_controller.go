package controller

import (
	"strconv"
	"strings"
	"time"

	"household-api/core/controller"
	"household-api/core/errors"
	"household-api/core/middleware"
	"household-api/core/utils"
	"household-api/modules/calendar/dto"
	"household-api/modules/calendar/service"
	"household-api/modules/calendar/validator"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type CalendarController struct {
	controller.BaseController
	CalendarService service.CalendarService
}

func NewCalendarController(service service.CalendarService) *CalendarController {
	return &CalendarController{
		BaseController:  controller.NewBaseController(),
		CalendarService: service,
	}
}

// GetOccurrences lists occurrences in a range
// GET /api/v1/private/calendar/occurrences?start=...&end=...&include_external=true
func (ctl *CalendarController) GetOccurrences(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	start, errStart := parseTimeParam(c.QueryParam("start"))
	end, errEnd := parseTimeParam(c.QueryParam("end"))
	if errStart != nil || errEnd != nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "start and end must be RFC3339 timestamps")
	}

	includeExternal := false
	if raw := c.QueryParam("include_external"); raw != "" {
		includeExternal, err = strconv.ParseBool(raw)
		if err != nil {
			return ctl.BadRequest(errors.ErrInvalidInput, "include_external must be a boolean")
		}
	}

	result, appErr := ctl.CalendarService.GetOccurrences(c.Request().Context(), claims.TenantID, service.OccurrenceFilter{
		Start:           start,
		End:             end,
		IncludeExternal: includeExternal,
	})
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "get occurrences success")
}

// CreateEvent creates a calendar event
// POST /api/v1/private/calendar/events
func (ctl *CalendarController) CreateEvent(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	requestData := new(dto.CreateEventRequest)
	if err := c.Bind(requestData); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	validationResult := validator.ValidateCreateEventRequest(requestData)
	if validationResult.HasError() {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	result, appErr := ctl.CalendarService.CreateEvent(c.Request().Context(), claims.TenantID, claims.UserID, requestData)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "create event success")
}

// GetEvent returns one event with its members
// GET /api/v1/private/calendar/events/:id
func (ctl *CalendarController) GetEvent(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	eventID := utils.ToUUID(c.Param("id"))
	if eventID == uuid.Nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	result, appErr := ctl.CalendarService.GetEvent(c.Request().Context(), claims.TenantID, eventID)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "get event success")
}

// UpdateEvent applies a scoped update
// PUT /api/v1/private/calendar/events/:id
func (ctl *CalendarController) UpdateEvent(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	eventID := utils.ToUUID(c.Param("id"))
	if eventID == uuid.Nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	requestData := new(dto.UpdateEventRequest)
	if err := c.Bind(requestData); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	validationResult := validator.ValidateUpdateEventRequest(requestData)
	if validationResult.HasError() {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	scope, ok := service.ParseScope(requestData.Scope)
	if !ok {
		return ctl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidScope, "Unknown scope", nil))
	}

	patch, appErr := service.PatchFromRequest(requestData)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	result, appErr := ctl.CalendarService.MutateEvent(c.Request().Context(), claims.TenantID, claims.UserID, eventID, service.MutationRequest{
		Action:          service.ActionUpdate,
		Scope:           scope,
		OccurrenceStart: requestData.OccurrenceStart,
		Patch:           patch,
	})
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "update event success")
}

// DeleteEvent applies a scoped delete
// DELETE /api/v1/private/calendar/events/:id?scope=...&occurrence_start=...
func (ctl *CalendarController) DeleteEvent(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	eventID := utils.ToUUID(c.Param("id"))
	if eventID == uuid.Nil {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	scope, ok := service.ParseScope(c.QueryParam("scope"))
	if !ok {
		return ctl.ErrorResponse(c, errors.NewAppError(errors.ErrInvalidScope, "Unknown scope", nil))
	}

	var occurrenceStart *time.Time
	if raw := c.QueryParam("occurrence_start"); raw != "" {
		t, err := parseTimeParam(raw)
		if err != nil {
			return ctl.BadRequest(errors.ErrInvalidInput, "occurrence_start must be an RFC3339 timestamp")
		}
		occurrenceStart = &t
	}

	result, appErr := ctl.CalendarService.MutateEvent(c.Request().Context(), claims.TenantID, claims.UserID, eventID, service.MutationRequest{
		Action:          service.ActionDelete,
		Scope:           scope,
		OccurrenceStart: occurrenceStart,
	})
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "delete event success")
}

// GetFreeBusy returns busy intervals per user
// POST /api/v1/private/calendar/free-busy
func (ctl *CalendarController) GetFreeBusy(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	requestData := new(dto.FreeBusyRequest)
	if err := c.Bind(requestData); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	validationResult := validator.ValidateFreeBusyRequest(requestData)
	if validationResult.HasError() {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	// default to the caller's own calendar
	userIDs := []uuid.UUID{claims.UserID}
	if len(requestData.UserIDs) > 0 {
		userIDs, err = utils.ParseUUIDs(requestData.UserIDs)
		if err != nil {
			return ctl.BadRequest(errors.ErrInvalidInput, "Invalid user id")
		}
	}

	result, appErr := ctl.CalendarService.GetFreeBusy(c.Request().Context(), claims.TenantID, userIDs, requestData.StartTime, requestData.EndTime)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "get free busy success")
}

// FindAvailableSlots finds times where every requested user is free
// POST /api/v1/private/calendar/available-slots
func (ctl *CalendarController) FindAvailableSlots(c echo.Context) error {
	claims, err := middleware.ClaimsFromContext(c)
	if err != nil {
		return ctl.ErrorResponse(c, err)
	}

	requestData := new(dto.AvailableSlotsRequest)
	if err := c.Bind(requestData); err != nil {
		return ctl.BadRequest(errors.ErrInvalidRequestData, "Invalid request data")
	}

	validationResult := validator.ValidateAvailableSlotsRequest(requestData)
	if validationResult.HasError() {
		return ctl.BadRequest(errors.ErrInvalidInput, "Invalid request data", validationResult)
	}

	result, appErr := ctl.CalendarService.FindAvailableSlots(c.Request().Context(), claims.TenantID, requestData)
	if appErr != nil {
		return ctl.ErrorResponse(c, appErr)
	}

	return ctl.SuccessResponse(c, result, "find available slots success")
}

func parseTimeParam(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}
