package entity

import (
	"time"

	"household-api/core/entity"

	"github.com/google/uuid"
)

// ParticipationType says whether a member's time is blocked by the event.
type ParticipationType string

const (
	ParticipationInvolved ParticipationType = "involved"
	ParticipationAware    ParticipationType = "aware"
)

func (p ParticipationType) Valid() bool {
	return p == ParticipationInvolved || p == ParticipationAware
}

// CalendarEvent is a single or recurring event owned by a tenant (household).
type CalendarEvent struct {
	entity.BaseEntity
	TenantID              uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	Title                 string     `db:"title" json:"title"`
	Description           *string    `db:"description" json:"description,omitempty"`
	Location              *string    `db:"location" json:"location,omitempty"`
	StartTime             time.Time  `db:"start_time_utc" json:"start_time_utc"`
	EndTime               time.Time  `db:"end_time_utc" json:"end_time_utc"`
	IsAllDay              bool       `db:"is_all_day" json:"is_all_day"`
	RecurrenceRule        *string    `db:"recurrence_rule" json:"recurrence_rule,omitempty"`
	RecurrenceEndDate     *time.Time `db:"recurrence_end_date" json:"recurrence_end_date,omitempty"`
	ReminderMinutesBefore *int       `db:"reminder_minutes_before" json:"reminder_minutes_before,omitempty"`
	CreatedByUserID       uuid.UUID  `db:"created_by_user_id" json:"created_by_user_id"`

	Members []CalendarEventMember `db:"-" json:"members"`
}

func (CalendarEvent) TableName() string {
	return "calendar_events"
}

// Duration is the length of every generated occurrence.
func (e *CalendarEvent) Duration() time.Duration {
	return e.EndTime.Sub(e.StartTime)
}

func (e *CalendarEvent) IsRecurring() bool {
	return e.RecurrenceRule != nil && *e.RecurrenceRule != ""
}

// Member returns the membership of userID, if any.
func (e *CalendarEvent) Member(userID uuid.UUID) (CalendarEventMember, bool) {
	for _, m := range e.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return CalendarEventMember{}, false
}

// CloneMembers copies the member list for a new owning event.
func (e *CalendarEvent) CloneMembers(eventID uuid.UUID) []CalendarEventMember {
	out := make([]CalendarEventMember, len(e.Members))
	for i, m := range e.Members {
		out[i] = CalendarEventMember{
			EventID:           eventID,
			UserID:            m.UserID,
			ParticipationType: m.ParticipationType,
		}
	}
	return out
}

// CalendarEventMember links a user to an event; unique per (event, user).
type CalendarEventMember struct {
	EventID           uuid.UUID         `db:"event_id" json:"event_id"`
	UserID            uuid.UUID         `db:"user_id" json:"user_id"`
	ParticipationType ParticipationType `db:"participation_type" json:"participation_type"`
}

func (CalendarEventMember) TableName() string {
	return "calendar_event_members"
}
