package constants

import "time"

const (
	ContextTokenData = "token_data"
	ContextRequestID = "request_id"

	ScopeTokenAccess  = "access"
	ScopeTokenRefresh = "refresh"

	DefaultRequestTimeout = 30 * time.Second
	DefaultTimeout        = 10 * time.Second
)

// Database pool settings
const (
	DatabaseSSLMode         = "disable"
	DatabaseMaxOpenConns    = 25
	DatabaseMaxIdleConns    = 10
	DatabaseConnMaxLifetime = 30 // minutes
)

// Cache keys
const (
	TokenBlacklistPrefix = "token_blacklist:"
	EventLockPrefix      = "calendar_event_lock:"
)

// Task types
const (
	TaskSubscriptionSync = "subscription:sync"
	QueueSubscriptions   = "subscriptions"
)
