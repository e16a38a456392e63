package entity

import (
	"time"

	"github.com/google/uuid"
)

// CalendarEventException overrides or cancels the occurrence generated at OriginalStartTime.
type CalendarEventException struct {
	ID                uuid.UUID  `db:"id" json:"id"`
	EventID           uuid.UUID  `db:"calendar_event_id" json:"calendar_event_id"`
	OriginalStartTime time.Time  `db:"original_start_time_utc" json:"original_start_time_utc"`
	IsDeleted         bool       `db:"is_deleted" json:"is_deleted"`
	Title             *string    `db:"title" json:"title,omitempty"`
	Description       *string    `db:"description" json:"description,omitempty"`
	Location          *string    `db:"location" json:"location,omitempty"`
	StartTime         *time.Time `db:"start_time_utc" json:"start_time_utc,omitempty"`
	EndTime           *time.Time `db:"end_time_utc" json:"end_time_utc,omitempty"`
	IsAllDay          *bool      `db:"is_all_day" json:"is_all_day,omitempty"`
	CreatedAt         time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at" json:"updated_at"`
}

func (CalendarEventException) TableName() string {
	return "calendar_event_exceptions"
}
