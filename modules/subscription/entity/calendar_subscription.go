package entity

import (
	"time"

	"household-api/core/entity"

	"github.com/google/uuid"
)

// CalendarSubscription is a user's read-only ICS feed whose events count as busy time.
type CalendarSubscription struct {
	entity.BaseEntity
	TenantID      uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UserID        uuid.UUID  `db:"user_id" json:"user_id"`
	Name          string     `db:"name" json:"name"`
	URL           string     `db:"url" json:"url"`
	IsActive      bool       `db:"is_active" json:"is_active"`
	LastSyncedAt  *time.Time `db:"last_synced_at" json:"last_synced_at,omitempty"`
	LastSyncError *string    `db:"last_sync_error" json:"last_sync_error,omitempty"`
}

func (CalendarSubscription) TableName() string {
	return "calendar_subscriptions"
}
