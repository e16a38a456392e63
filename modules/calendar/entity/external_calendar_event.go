package entity

import (
	"time"

	"github.com/google/uuid"
)

// ExternalCalendarEvent is a busy block synced from a user's ICS subscription.
type ExternalCalendarEvent struct {
	ID             uuid.UUID `db:"id" json:"id"`
	TenantID       uuid.UUID `db:"tenant_id" json:"tenant_id"`
	SubscriptionID uuid.UUID `db:"subscription_id" json:"subscription_id"`
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	ExternalUID    string    `db:"external_uid" json:"external_uid"`
	Title          string    `db:"title" json:"title"`
	StartTime      time.Time `db:"start_time_utc" json:"start_time_utc"`
	EndTime        time.Time `db:"end_time_utc" json:"end_time_utc"`
	IsAllDay       bool      `db:"is_all_day" json:"is_all_day"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

func (ExternalCalendarEvent) TableName() string {
	return "external_calendar_events"
}
