package repository

import (
	"context"
	"database/sql"
	"time"

	"household-api/core/database"
	"household-api/core/errors"
	"household-api/core/logger"
	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// ErrEventNotFound is returned when no event matches the tenant and id.
var ErrEventNotFound = errors.New("calendar event not found")

type CalendarRepository interface {
	// WithinTx runs fn with a repository bound to one transaction.
	WithinTx(ctx context.Context, fn func(repo CalendarRepository) error) error

	CreateEvent(ctx context.Context, event *entity.CalendarEvent) error
	GetEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*entity.CalendarEvent, error)
	// GetEventForUpdate locks the event row until the transaction ends.
	GetEventForUpdate(ctx context.Context, tenantID, eventID uuid.UUID) (*entity.CalendarEvent, error)
	UpdateEvent(ctx context.Context, event *entity.CalendarEvent) error
	DeleteEvent(ctx context.Context, tenantID, eventID uuid.UUID) error

	// ListEventsInRange returns events that may have an occurrence in [start, end), members included.
	ListEventsInRange(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]entity.CalendarEvent, error)
	// ListEventsForUsers narrows ListEventsInRange to events where one of userIDs is involved.
	ListEventsForUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]entity.CalendarEvent, error)

	ListExceptions(ctx context.Context, eventIDs []uuid.UUID) ([]entity.CalendarEventException, error)
	UpsertException(ctx context.Context, ex *entity.CalendarEventException) error
	DeleteExceptionsFrom(ctx context.Context, eventID uuid.UUID, from time.Time) error

	// ListExternalEvents returns synced external events in range; nil userIDs means every user of the tenant.
	ListExternalEvents(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]entity.ExternalCalendarEvent, error)
}

type calendarRepository struct {
	db   database.IDatabase
	exec sqlx.ExtContext
}

func NewCalendarRepository(db database.IDatabase) CalendarRepository {
	return &calendarRepository{db: db, exec: db.SQLx()}
}

func (r *calendarRepository) WithinTx(ctx context.Context, fn func(repo CalendarRepository) error) error {
	if _, ok := r.exec.(*sqlx.Tx); ok {
		return fn(r)
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		return fn(&calendarRepository{db: r.db, exec: tx})
	})
}

const eventColumns = `
	id, tenant_id, title, description, location, start_time_utc, end_time_utc, is_all_day,
	recurrence_rule, recurrence_end_date, reminder_minutes_before, created_by_user_id,
	created_at, updated_at`

// candidateFilter keeps events whose base series or a moved exception can reach [$2, $3).
const candidateFilter = `
	tenant_id = $1
	AND (
		(start_time_utc < $3 AND (
			(recurrence_rule IS NULL AND (end_time_utc > $2 OR (end_time_utc = start_time_utc AND start_time_utc >= $2)))
			OR (recurrence_rule IS NOT NULL AND (recurrence_end_date IS NULL OR recurrence_end_date >= ($2::timestamptz AT TIME ZONE 'UTC')::date))
		))
		OR EXISTS (
			SELECT 1 FROM calendar_event_exceptions x
			WHERE x.calendar_event_id = calendar_events.id
			AND x.is_deleted = false
			AND (x.start_time_utc IS NOT NULL OR x.end_time_utc IS NOT NULL)
			AND COALESCE(x.start_time_utc, x.original_start_time_utc) < $3
			AND COALESCE(x.end_time_utc, COALESCE(x.start_time_utc, x.original_start_time_utc) + (calendar_events.end_time_utc - calendar_events.start_time_utc)) >= $2
		)
	)`

func (r *calendarRepository) CreateEvent(ctx context.Context, event *entity.CalendarEvent) error {
	query := `
		INSERT INTO calendar_events (` + eventColumns + `)
		VALUES (:id, :tenant_id, :title, :description, :location, :start_time_utc, :end_time_utc, :is_all_day,
			:recurrence_rule, :recurrence_end_date, :reminder_minutes_before, :created_by_user_id,
			:created_at, :updated_at)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.exec, query, event); err != nil {
		logger.Error("CalendarRepository:CreateEvent", err)
		return err
	}
	return r.insertMembers(ctx, event.ID, event.Members)
}

func (r *calendarRepository) GetEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*entity.CalendarEvent, error) {
	return r.getEvent(ctx, tenantID, eventID, "")
}

func (r *calendarRepository) GetEventForUpdate(ctx context.Context, tenantID, eventID uuid.UUID) (*entity.CalendarEvent, error) {
	return r.getEvent(ctx, tenantID, eventID, " FOR UPDATE")
}

func (r *calendarRepository) getEvent(ctx context.Context, tenantID, eventID uuid.UUID, lock string) (*entity.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE tenant_id = $1 AND id = $2` + lock

	var event entity.CalendarEvent
	if err := sqlx.GetContext(ctx, r.exec, &event, query, tenantID, eventID); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrEventNotFound
		}
		logger.Error("CalendarRepository:GetEvent", err)
		return nil, err
	}

	events := []entity.CalendarEvent{event}
	if err := r.attachMembers(ctx, events); err != nil {
		return nil, err
	}
	return &events[0], nil
}

func (r *calendarRepository) UpdateEvent(ctx context.Context, event *entity.CalendarEvent) error {
	query := `
		UPDATE calendar_events
		SET title = $1, description = $2, location = $3, start_time_utc = $4, end_time_utc = $5,
			is_all_day = $6, recurrence_rule = $7, recurrence_end_date = $8, reminder_minutes_before = $9,
			updated_at = $10
		WHERE tenant_id = $11 AND id = $12
	`
	result, err := r.exec.ExecContext(ctx, query,
		event.Title,
		event.Description,
		event.Location,
		event.StartTime,
		event.EndTime,
		event.IsAllDay,
		event.RecurrenceRule,
		event.RecurrenceEndDate,
		event.ReminderMinutesBefore,
		event.UpdatedAt,
		event.TenantID,
		event.ID,
	)
	if err != nil {
		logger.Error("CalendarRepository:UpdateEvent", err)
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("CalendarRepository:UpdateEvent - RowsAffected", err)
		return err
	}
	if rowsAffected == 0 {
		return ErrEventNotFound
	}

	if _, err := r.exec.ExecContext(ctx, `DELETE FROM calendar_event_members WHERE event_id = $1`, event.ID); err != nil {
		logger.Error("CalendarRepository:UpdateEvent - DeleteMembers", err)
		return err
	}
	return r.insertMembers(ctx, event.ID, event.Members)
}

func (r *calendarRepository) DeleteEvent(ctx context.Context, tenantID, eventID uuid.UUID) error {
	// members and exceptions cascade
	result, err := r.exec.ExecContext(ctx, `DELETE FROM calendar_events WHERE tenant_id = $1 AND id = $2`, tenantID, eventID)
	if err != nil {
		logger.Error("CalendarRepository:DeleteEvent", err)
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		logger.Error("CalendarRepository:DeleteEvent - RowsAffected", err)
		return err
	}
	if rowsAffected == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *calendarRepository) ListEventsInRange(ctx context.Context, tenantID uuid.UUID, start, end time.Time) ([]entity.CalendarEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE ` + candidateFilter + ` ORDER BY start_time_utc, id`

	var events []entity.CalendarEvent
	if err := sqlx.SelectContext(ctx, r.exec, &events, query, tenantID, start, end); err != nil {
		logger.Error("CalendarRepository:ListEventsInRange", err)
		return nil, err
	}
	if err := r.attachMembers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *calendarRepository) ListEventsForUsers(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]entity.CalendarEvent, error) {
	if len(userIDs) == 0 {
		return []entity.CalendarEvent{}, nil
	}

	query := `SELECT ` + eventColumns + ` FROM calendar_events WHERE ` + candidateFilter + `
		AND id IN (
			SELECT event_id FROM calendar_event_members
			WHERE user_id = ANY($4::uuid[]) AND participation_type = 'involved'
		)
		ORDER BY start_time_utc, id`

	var events []entity.CalendarEvent
	if err := sqlx.SelectContext(ctx, r.exec, &events, query, tenantID, start, end, uuidArray(userIDs)); err != nil {
		logger.Error("CalendarRepository:ListEventsForUsers", err)
		return nil, err
	}
	if err := r.attachMembers(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *calendarRepository) ListExceptions(ctx context.Context, eventIDs []uuid.UUID) ([]entity.CalendarEventException, error) {
	if len(eventIDs) == 0 {
		return []entity.CalendarEventException{}, nil
	}

	query := `
		SELECT id, calendar_event_id, original_start_time_utc, is_deleted, title, description, location,
			start_time_utc, end_time_utc, is_all_day, created_at, updated_at
		FROM calendar_event_exceptions
		WHERE calendar_event_id = ANY($1::uuid[])
		ORDER BY calendar_event_id, original_start_time_utc
	`
	var exceptions []entity.CalendarEventException
	if err := sqlx.SelectContext(ctx, r.exec, &exceptions, query, uuidArray(eventIDs)); err != nil {
		logger.Error("CalendarRepository:ListExceptions", err)
		return nil, err
	}
	return exceptions, nil
}

func (r *calendarRepository) UpsertException(ctx context.Context, ex *entity.CalendarEventException) error {
	query := `
		INSERT INTO calendar_event_exceptions (
			id, calendar_event_id, original_start_time_utc, is_deleted, title, description, location,
			start_time_utc, end_time_utc, is_all_day, created_at, updated_at
		)
		VALUES (
			:id, :calendar_event_id, :original_start_time_utc, :is_deleted, :title, :description, :location,
			:start_time_utc, :end_time_utc, :is_all_day, :created_at, :updated_at
		)
		ON CONFLICT (calendar_event_id, original_start_time_utc) DO UPDATE SET
			is_deleted = EXCLUDED.is_deleted,
			title = EXCLUDED.title,
			description = EXCLUDED.description,
			location = EXCLUDED.location,
			start_time_utc = EXCLUDED.start_time_utc,
			end_time_utc = EXCLUDED.end_time_utc,
			is_all_day = EXCLUDED.is_all_day,
			updated_at = EXCLUDED.updated_at
	`
	if _, err := sqlx.NamedExecContext(ctx, r.exec, query, ex); err != nil {
		logger.Error("CalendarRepository:UpsertException", err)
		return err
	}
	return nil
}

func (r *calendarRepository) DeleteExceptionsFrom(ctx context.Context, eventID uuid.UUID, from time.Time) error {
	query := `DELETE FROM calendar_event_exceptions WHERE calendar_event_id = $1 AND original_start_time_utc >= $2`
	if _, err := r.exec.ExecContext(ctx, query, eventID, from); err != nil {
		logger.Error("CalendarRepository:DeleteExceptionsFrom", err)
		return err
	}
	return nil
}

func (r *calendarRepository) ListExternalEvents(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]entity.ExternalCalendarEvent, error) {
	query := `
		SELECT id, tenant_id, subscription_id, user_id, external_uid, title, start_time_utc, end_time_utc, is_all_day, updated_at
		FROM external_calendar_events
		WHERE tenant_id = $1 AND start_time_utc < $3 AND end_time_utc > $2
	`
	args := []any{tenantID, start, end}
	if userIDs != nil {
		if len(userIDs) == 0 {
			return []entity.ExternalCalendarEvent{}, nil
		}
		query += ` AND user_id = ANY($4::uuid[])`
		args = append(args, uuidArray(userIDs))
	}
	query += ` ORDER BY start_time_utc, subscription_id`

	var events []entity.ExternalCalendarEvent
	if err := sqlx.SelectContext(ctx, r.exec, &events, query, args...); err != nil {
		logger.Error("CalendarRepository:ListExternalEvents", err)
		return nil, err
	}
	return events, nil
}

func (r *calendarRepository) insertMembers(ctx context.Context, eventID uuid.UUID, members []entity.CalendarEventMember) error {
	query := `
		INSERT INTO calendar_event_members (event_id, user_id, participation_type)
		VALUES ($1, $2, $3)
	`
	for _, m := range members {
		if _, err := r.exec.ExecContext(ctx, query, eventID, m.UserID, m.ParticipationType); err != nil {
			logger.Error("CalendarRepository:insertMembers", err)
			return err
		}
	}
	return nil
}

func (r *calendarRepository) attachMembers(ctx context.Context, events []entity.CalendarEvent) error {
	if len(events) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, len(events))
	for i := range events {
		ids[i] = events[i].ID
		events[i].Members = []entity.CalendarEventMember{}
	}

	var members []entity.CalendarEventMember
	query := `
		SELECT event_id, user_id, participation_type
		FROM calendar_event_members
		WHERE event_id = ANY($1::uuid[])
		ORDER BY event_id, user_id
	`
	if err := sqlx.SelectContext(ctx, r.exec, &members, query, uuidArray(ids)); err != nil {
		logger.Error("CalendarRepository:attachMembers", err)
		return err
	}

	byEvent := make(map[uuid.UUID]int, len(events))
	for i := range events {
		byEvent[events[i].ID] = i
	}
	for _, m := range members {
		if i, ok := byEvent[m.EventID]; ok {
			events[i].Members = append(events[i].Members, m)
		}
	}
	return nil
}

func uuidArray(ids []uuid.UUID) any {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return pq.Array(out)
}
