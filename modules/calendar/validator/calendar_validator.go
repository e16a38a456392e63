package validator

import (
	"strings"

	"household-api/core/controller"
	"household-api/modules/calendar/dto"
)

type ValidationResult struct {
	Errors []controller.ValidationError `json:"errors"`
}

func (v *ValidationResult) add(field, message string) {
	v.Errors = append(v.Errors, controller.NewValidationError(field, message))
}

func (v *ValidationResult) HasError() bool {
	return len(v.Errors) > 0
}

func ValidateCreateEventRequest(req *dto.CreateEventRequest) *ValidationResult {
	result := &ValidationResult{}
	if strings.TrimSpace(req.Title) == "" {
		result.add("title", "title is required")
	} else if len(req.Title) > 200 {
		result.add("title", "title must be at most 200 characters")
	}
	if req.StartTime.IsZero() {
		result.add("start_time_utc", "start_time_utc is required")
	}
	if req.EndTime.IsZero() {
		result.add("end_time_utc", "end_time_utc is required")
	}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.EndTime.Before(req.StartTime) {
		result.add("end_time_utc", "end_time_utc must not be before start_time_utc")
	}
	validateMembers(result, req.Members)
	return result
}

func ValidateUpdateEventRequest(req *dto.UpdateEventRequest) *ValidationResult {
	result := &ValidationResult{}
	if req.Title != nil && len(*req.Title) > 200 {
		result.add("title", "title must be at most 200 characters")
	}
	if req.StartTime != nil && req.EndTime != nil && req.EndTime.Before(*req.StartTime) {
		result.add("end_time_utc", "end_time_utc must not be before start_time_utc")
	}
	validateMembers(result, req.Members)
	return result
}

func ValidateFreeBusyRequest(req *dto.FreeBusyRequest) *ValidationResult {
	result := &ValidationResult{}
	if req.StartTime.IsZero() {
		result.add("start_time", "start_time is required")
	}
	if req.EndTime.IsZero() {
		result.add("end_time", "end_time is required")
	}
	return result
}

func ValidateAvailableSlotsRequest(req *dto.AvailableSlotsRequest) *ValidationResult {
	result := &ValidationResult{}
	if req.StartTime.IsZero() {
		result.add("start_time", "start_time is required")
	}
	if req.EndTime.IsZero() {
		result.add("end_time", "end_time is required")
	}
	return result
}

func validateMembers(result *ValidationResult, members []dto.MemberRequest) {
	for _, m := range members {
		if strings.TrimSpace(m.UserID) == "" {
			result.add("members.user_id", "user_id is required")
		}
		switch strings.ToLower(m.ParticipationType) {
		case "", "involved", "aware":
		default:
			result.add("members.participation_type", "participation_type must be involved or aware")
		}
	}
}
