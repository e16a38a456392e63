package dto

import "time"

// DateLayout is the wire format of recurrence end dates.
const DateLayout = "2006-01-02"

// ========== Event DTOs ==========

type MemberRequest struct {
	UserID            string `json:"user_id"`
	ParticipationType string `json:"participation_type"`
}

type MemberResponse struct {
	UserID            string `json:"user_id"`
	ParticipationType string `json:"participation_type"`
}

// CreateEventRequest creates a single or recurring event
type CreateEventRequest struct {
	Title                 string          `json:"title"`
	Description           *string         `json:"description,omitempty"`
	Location              *string         `json:"location,omitempty"`
	StartTime             time.Time       `json:"start_time_utc"`
	EndTime               time.Time       `json:"end_time_utc"`
	IsAllDay              bool            `json:"is_all_day"`
	RecurrenceRule        *string         `json:"recurrence_rule,omitempty"`
	RecurrenceEndDate     *string         `json:"recurrence_end_date,omitempty"` // YYYY-MM-DD
	ReminderMinutesBefore *int            `json:"reminder_minutes_before,omitempty"`
	Members               []MemberRequest `json:"members"`
}

// UpdateEventRequest is a scoped partial update. Absent fields are unchanged;
// an empty recurrence_rule removes the recurrence.
type UpdateEventRequest struct {
	Scope                 string          `json:"scope"`
	OccurrenceStart       *time.Time      `json:"occurrence_start,omitempty"`
	Title                 *string         `json:"title,omitempty"`
	Description           *string         `json:"description,omitempty"`
	Location              *string         `json:"location,omitempty"`
	StartTime             *time.Time      `json:"start_time_utc,omitempty"`
	EndTime               *time.Time      `json:"end_time_utc,omitempty"`
	IsAllDay              *bool           `json:"is_all_day,omitempty"`
	RecurrenceRule        *string         `json:"recurrence_rule,omitempty"`
	RecurrenceEndDate     *string         `json:"recurrence_end_date,omitempty"`
	ReminderMinutesBefore *int            `json:"reminder_minutes_before,omitempty"`
	Members               []MemberRequest `json:"members,omitempty"`
}

type CalendarEventResponse struct {
	ID                    string           `json:"id"`
	TenantID              string           `json:"tenant_id"`
	Title                 string           `json:"title"`
	Description           *string          `json:"description,omitempty"`
	Location              *string          `json:"location,omitempty"`
	StartTime             time.Time        `json:"start_time_utc"`
	EndTime               time.Time        `json:"end_time_utc"`
	IsAllDay              bool             `json:"is_all_day"`
	RecurrenceRule        *string          `json:"recurrence_rule,omitempty"`
	RecurrenceEndDate     *string          `json:"recurrence_end_date,omitempty"`
	ReminderMinutesBefore *int             `json:"reminder_minutes_before,omitempty"`
	CreatedByUserID       string           `json:"created_by_user_id"`
	Members               []MemberResponse `json:"members"`
	CreatedAt             time.Time        `json:"created_at"`
	UpdatedAt             time.Time        `json:"updated_at"`
}

// MutationResponse lists the events touched by a scoped update or delete
type MutationResponse struct {
	UpdatedEventID *string `json:"updated_event_id,omitempty"`
	CreatedEventID *string `json:"created_event_id,omitempty"`
	DeletedEventID *string `json:"deleted_event_id,omitempty"`
	ExceptionID    *string `json:"exception_id,omitempty"`
}

// ========== Occurrence DTOs ==========

type CalendarOccurrenceResponse struct {
	EventID           string    `json:"event_id"`
	OriginalStartTime time.Time `json:"original_start_time_utc"`
	StartTime         time.Time `json:"start_time_utc"`
	EndTime           time.Time `json:"end_time_utc"`
	Title             string    `json:"title"`
	Description       *string   `json:"description,omitempty"`
	Location          *string   `json:"location,omitempty"`
	IsAllDay          bool      `json:"is_all_day"`
	IsException       bool      `json:"is_exception"`
	Source            string    `json:"source"`
}

// ========== Free/Busy DTOs ==========

type FreeBusyRequest struct {
	UserIDs   []string  `json:"user_ids"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

type BusyInterval struct {
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
	Source  string    `json:"source"`
	EventID string    `json:"event_id"`
}

// FreeBusyResponse holds one user's busy intervals; an empty list means free
type FreeBusyResponse struct {
	UserID string         `json:"user_id"`
	Busy   []BusyInterval `json:"busy"`
}

// ========== Slot DTOs ==========

type SlotPreferencesRequest struct {
	ExcludeWeekends    bool `json:"exclude_weekends"`
	BusinessHoursStart int  `json:"business_hours_start"` // UTC hour
	BusinessHoursEnd   int  `json:"business_hours_end"`   // UTC hour, 0 disables
}

type AvailableSlotsRequest struct {
	UserIDs         []string                `json:"user_ids"`
	DurationMinutes *int                    `json:"duration_minutes,omitempty"`
	StartTime       time.Time               `json:"start_time"`
	EndTime         time.Time               `json:"end_time"`
	Preferences     *SlotPreferencesRequest `json:"preferences,omitempty"`
}

type AvailableSlotResponse struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
