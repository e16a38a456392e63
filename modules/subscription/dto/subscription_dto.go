package dto

import "time"

type CreateSubscriptionRequest struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

type SubscriptionResponse struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	Name          string     `json:"name"`
	URL           string     `json:"url"`
	IsActive      bool       `json:"is_active"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
	LastSyncError *string    `json:"last_sync_error,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// SyncResponse reports a queued sync
type SyncResponse struct {
	SubscriptionID string `json:"subscription_id"`
	Queued         bool   `json:"queued"`
}
