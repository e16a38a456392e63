package repository

import (
	"context"
	"database/sql"
	"time"

	"household-api/core/database"
	"household-api/core/errors"
	"household-api/core/logger"
	calendarEntity "household-api/modules/calendar/entity"
	"household-api/modules/subscription/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrSubscriptionNotFound = errors.New("calendar subscription not found")

type SubscriptionRepository interface {
	Create(ctx context.Context, sub *entity.CalendarSubscription) error
	Get(ctx context.Context, tenantID, id uuid.UUID) (*entity.CalendarSubscription, error)
	GetByID(ctx context.Context, id uuid.UUID) (*entity.CalendarSubscription, error)
	ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]entity.CalendarSubscription, error)
	ListActive(ctx context.Context) ([]entity.CalendarSubscription, error)
	Delete(ctx context.Context, tenantID, userID, id uuid.UUID) error

	// ReplaceEvents swaps the subscription's external events for events in one transaction.
	ReplaceEvents(ctx context.Context, sub *entity.CalendarSubscription, events []calendarEntity.ExternalCalendarEvent) error
	MarkSynced(ctx context.Context, id uuid.UUID, at time.Time, syncErr *string) error
}

type subscriptionRepository struct {
	DB database.IDatabase
}

func NewSubscriptionRepository(db database.IDatabase) SubscriptionRepository {
	return &subscriptionRepository{DB: db}
}

const subscriptionColumns = `id, tenant_id, user_id, name, url, is_active, last_synced_at, last_sync_error, created_at, updated_at`

func (r *subscriptionRepository) Create(ctx context.Context, sub *entity.CalendarSubscription) error {
	query := `
		INSERT INTO calendar_subscriptions (` + subscriptionColumns + `)
		VALUES (:id, :tenant_id, :user_id, :name, :url, :is_active, :last_synced_at, :last_sync_error, :created_at, :updated_at)
	`
	if _, err := r.DB.NamedExecContext(ctx, query, sub); err != nil {
		logger.Error("SubscriptionRepository:Create", err)
		return err
	}
	return nil
}

func (r *subscriptionRepository) Get(ctx context.Context, tenantID, id uuid.UUID) (*entity.CalendarSubscription, error) {
	var sub entity.CalendarSubscription
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE tenant_id = $1 AND id = $2`
	if err := r.DB.GetContext(ctx, &sub, query, tenantID, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		logger.Error("SubscriptionRepository:Get", err)
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) GetByID(ctx context.Context, id uuid.UUID) (*entity.CalendarSubscription, error) {
	var sub entity.CalendarSubscription
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE id = $1`
	if err := r.DB.GetContext(ctx, &sub, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSubscriptionNotFound
		}
		logger.Error("SubscriptionRepository:GetByID", err)
		return nil, err
	}
	return &sub, nil
}

func (r *subscriptionRepository) ListByUser(ctx context.Context, tenantID, userID uuid.UUID) ([]entity.CalendarSubscription, error) {
	subs := []entity.CalendarSubscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE tenant_id = $1 AND user_id = $2 ORDER BY created_at`
	if err := r.DB.SelectContext(ctx, &subs, query, tenantID, userID); err != nil {
		logger.Error("SubscriptionRepository:ListByUser", err)
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) ListActive(ctx context.Context) ([]entity.CalendarSubscription, error) {
	subs := []entity.CalendarSubscription{}
	query := `SELECT ` + subscriptionColumns + ` FROM calendar_subscriptions WHERE is_active = true ORDER BY id`
	if err := r.DB.SelectContext(ctx, &subs, query); err != nil {
		logger.Error("SubscriptionRepository:ListActive", err)
		return nil, err
	}
	return subs, nil
}

func (r *subscriptionRepository) Delete(ctx context.Context, tenantID, userID, id uuid.UUID) error {
	// external events cascade
	result, err := r.DB.SQLx().ExecContext(ctx,
		`DELETE FROM calendar_subscriptions WHERE tenant_id = $1 AND user_id = $2 AND id = $3`,
		tenantID, userID, id,
	)
	if err != nil {
		logger.Error("SubscriptionRepository:Delete", err)
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("SubscriptionRepository:Delete - RowsAffected", err)
		return err
	}
	if rowsAffected == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (r *subscriptionRepository) ReplaceEvents(ctx context.Context, sub *entity.CalendarSubscription, events []calendarEntity.ExternalCalendarEvent) error {
	return r.DB.WithTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM external_calendar_events WHERE subscription_id = $1`, sub.ID); err != nil {
			logger.Error("SubscriptionRepository:ReplaceEvents - Delete", err)
			return err
		}

		query := `
			INSERT INTO external_calendar_events (
				id, tenant_id, subscription_id, user_id, external_uid, title, start_time_utc, end_time_utc, is_all_day, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (subscription_id, external_uid) DO UPDATE SET
				title = EXCLUDED.title,
				start_time_utc = EXCLUDED.start_time_utc,
				end_time_utc = EXCLUDED.end_time_utc,
				is_all_day = EXCLUDED.is_all_day,
				updated_at = EXCLUDED.updated_at
		`
		for _, e := range events {
			if _, err := tx.ExecContext(ctx, query,
				e.ID, e.TenantID, e.SubscriptionID, e.UserID, e.ExternalUID,
				e.Title, e.StartTime, e.EndTime, e.IsAllDay, e.UpdatedAt,
			); err != nil {
				logger.Error("SubscriptionRepository:ReplaceEvents - Insert", err, "external_uid", e.ExternalUID)
				return err
			}
		}
		return nil
	})
}

func (r *subscriptionRepository) MarkSynced(ctx context.Context, id uuid.UUID, at time.Time, syncErr *string) error {
	query := `
		UPDATE calendar_subscriptions
		SET last_synced_at = $1, last_sync_error = $2, updated_at = $1
		WHERE id = $3
	`
	if err := r.DB.ExecContext(ctx, query, at, syncErr, id); err != nil {
		logger.Error("SubscriptionRepository:MarkSynced", err)
		return err
	}
	return nil
}
