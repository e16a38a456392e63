package service

import (
	"strings"
	"time"

	"household-api/core/errors"
	"household-api/modules/calendar/entity"
	"household-api/modules/calendar/recurrence"

	"github.com/google/uuid"
)

// MutationScope is the blast radius of an edit or delete.
type MutationScope string

const (
	ScopeEntireSeries   MutationScope = "entire_series"
	ScopeThisOccurrence MutationScope = "this_occurrence"
	ScopeThisAndFuture  MutationScope = "this_and_future"
)

func ParseScope(s string) (MutationScope, bool) {
	switch MutationScope(strings.ToLower(strings.TrimSpace(s))) {
	case ScopeEntireSeries, "":
		return ScopeEntireSeries, true
	case ScopeThisOccurrence:
		return ScopeThisOccurrence, true
	case ScopeThisAndFuture:
		return ScopeThisAndFuture, true
	}
	return "", false
}

type MutationAction string

const (
	ActionUpdate MutationAction = "update"
	ActionDelete MutationAction = "delete"
)

// MemberInput is a requested membership.
type MemberInput struct {
	UserID            uuid.UUID
	ParticipationType entity.ParticipationType
}

// EventPatch holds the fields to change; nil means unchanged. An empty
// RecurrenceRule turns the target into a single event.
type EventPatch struct {
	Title                 *string
	Description           *string
	Location              *string
	StartTime             *time.Time
	EndTime               *time.Time
	IsAllDay              *bool
	RecurrenceRule        *string
	RecurrenceEndDate     *time.Time
	ReminderMinutesBefore *int
	Members               []MemberInput
}

func (p EventPatch) touchesSeriesOnlyFields() bool {
	return p.RecurrenceRule != nil || p.RecurrenceEndDate != nil || p.ReminderMinutesBefore != nil || p.Members != nil
}

type MutationRequest struct {
	Action          MutationAction
	Scope           MutationScope
	OccurrenceStart *time.Time // required unless Scope is EntireSeries
	Patch           EventPatch
}

// MutationPlan is the complete set of writes for one scoped mutation. The
// service applies it in a single transaction.
type MutationPlan struct {
	Updated               *entity.CalendarEvent
	DeleteOriginal        bool
	Created               *entity.CalendarEvent
	UpsertException       *entity.CalendarEventException
	DiscardExceptionsFrom *time.Time
}

// ScopeMutationEngine turns a mutation request into a MutationPlan without
// touching storage.
type ScopeMutationEngine struct {
	now   func() time.Time
	newID func() uuid.UUID
}

func NewScopeMutationEngine() *ScopeMutationEngine {
	return &ScopeMutationEngine{
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.New,
	}
}

// SeriesOf parses the event's stored rule into an expandable series.
func SeriesOf(event *entity.CalendarEvent) (recurrence.Series, *errors.AppError) {
	series := recurrence.Series{
		Start:   event.StartTime.UTC(),
		EndDate: event.RecurrenceEndDate,
	}
	if event.IsRecurring() {
		rule, err := recurrence.Parse(*event.RecurrenceRule)
		if err != nil {
			return series, errors.NewAppError(errors.ErrInvalidRecurrenceRule, "Invalid recurrence rule", err)
		}
		series.Rule = rule
	}
	return series, nil
}

// Plan validates req against event and builds the writes it implies.
func (m *ScopeMutationEngine) Plan(event *entity.CalendarEvent, exceptions []entity.CalendarEventException, req MutationRequest) (*MutationPlan, *errors.AppError) {
	if req.Action != ActionUpdate && req.Action != ActionDelete {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Unknown mutation action", nil)
	}
	if _, ok := ParseScope(string(req.Scope)); !ok || req.Scope == "" {
		return nil, errors.NewAppError(errors.ErrInvalidScope, "Unknown mutation scope", nil)
	}

	series, appErr := SeriesOf(event)
	if appErr != nil {
		return nil, appErr
	}

	if req.Scope != ScopeEntireSeries && series.Rule == nil {
		return nil, errors.NewAppError(errors.ErrInvalidScope, "Non-recurring events only support entire_series scope", nil)
	}

	var occurrence time.Time
	if req.OccurrenceStart != nil {
		occurrence = req.OccurrenceStart.UTC()
		// generated starts are whole seconds
		if occurrence.Nanosecond() != 0 || !recurrence.Contains(series, occurrence) {
			return nil, errors.NewAppError(errors.ErrOccurrenceNotFound, "Occurrence not found in series", nil)
		}
	} else if req.Scope != ScopeEntireSeries {
		return nil, errors.NewAppError(errors.ErrOccurrenceNotFound, "occurrence_start is required for this scope", nil)
	}

	now := m.now()

	if req.Action == ActionDelete {
		switch req.Scope {
		case ScopeThisOccurrence:
			return m.deleteOccurrence(event, exceptions, occurrence, now), nil
		case ScopeThisAndFuture:
			return m.truncate(event, series, occurrence, now), nil
		default:
			return &MutationPlan{DeleteOriginal: true}, nil
		}
	}

	switch req.Scope {
	case ScopeThisOccurrence:
		return m.updateOccurrence(event, exceptions, occurrence, req.Patch, now)
	case ScopeThisAndFuture:
		return m.split(event, series, occurrence, req.Patch, now)
	default:
		updated := cloneEvent(event)
		if appErr := applyPatch(updated, req.Patch); appErr != nil {
			return nil, appErr
		}
		updated.UpdatedAt = now
		return &MutationPlan{Updated: updated}, nil
	}
}

func (m *ScopeMutationEngine) deleteOccurrence(event *entity.CalendarEvent, exceptions []entity.CalendarEventException, occurrence, now time.Time) *MutationPlan {
	ex := m.exceptionFor(event, exceptions, occurrence, now)
	ex.IsDeleted = true
	ex.Title, ex.Description, ex.Location = nil, nil, nil
	ex.StartTime, ex.EndTime, ex.IsAllDay = nil, nil, nil

	updated := cloneEvent(event)
	updated.UpdatedAt = now
	return &MutationPlan{Updated: updated, UpsertException: ex}
}

func (m *ScopeMutationEngine) updateOccurrence(event *entity.CalendarEvent, exceptions []entity.CalendarEventException, occurrence time.Time, patch EventPatch, now time.Time) (*MutationPlan, *errors.AppError) {
	if patch.touchesSeriesOnlyFields() {
		return nil, errors.NewAppError(errors.ErrInvalidScope, "Recurrence, reminder and members can only be changed for the series", nil)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Title cannot be empty", nil)
	}

	start := occurrence
	if patch.StartTime != nil {
		start = patch.StartTime.UTC().Truncate(time.Second)
	}
	end := start.Add(event.Duration())
	if patch.EndTime != nil {
		end = patch.EndTime.UTC().Truncate(time.Second)
	}
	if end.Before(start) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "End time must not be before start time", nil)
	}

	ex := m.exceptionFor(event, exceptions, occurrence, now)
	ex.IsDeleted = false
	ex.Title = patch.Title
	ex.Description = patch.Description
	ex.Location = patch.Location
	ex.IsAllDay = patch.IsAllDay
	ex.StartTime, ex.EndTime = nil, nil
	if patch.StartTime != nil {
		ex.StartTime = &start
	}
	if patch.EndTime != nil {
		ex.EndTime = &end
	}

	updated := cloneEvent(event)
	updated.UpdatedAt = now
	return &MutationPlan{Updated: updated, UpsertException: ex}, nil
}

// truncate caps the series before occurrence. When occurrence is the first
// one nothing would remain, so the series is deleted instead.
func (m *ScopeMutationEngine) truncate(event *entity.CalendarEvent, series recurrence.Series, occurrence, now time.Time) *MutationPlan {
	prev, ok := recurrence.Previous(series, occurrence)
	if !ok {
		return &MutationPlan{DeleteOriginal: true}
	}

	capped := cloneEvent(event)
	endDate := recurrence.DateOf(prev)
	capped.RecurrenceEndDate = &endDate
	capped.UpdatedAt = now

	from := occurrence
	return &MutationPlan{Updated: capped, DiscardExceptionsFrom: &from}
}

// split caps the original and starts a continuation series at occurrence
// carrying the patch.
func (m *ScopeMutationEngine) split(event *entity.CalendarEvent, series recurrence.Series, occurrence time.Time, patch EventPatch, now time.Time) (*MutationPlan, *errors.AppError) {
	next := cloneEvent(event)
	next.ID = m.newID()
	next.Members = event.CloneMembers(next.ID)
	next.StartTime = occurrence
	next.EndTime = occurrence.Add(event.Duration())
	next.CreatedAt = now
	next.UpdatedAt = now

	if series.Rule != nil && series.Rule.Count > 0 {
		remaining := series.Rule.Count - recurrence.CountBefore(series, occurrence)
		rule := series.Rule.WithCount(remaining).String()
		next.RecurrenceRule = &rule
	}

	if appErr := applyPatch(next, patch); appErr != nil {
		return nil, appErr
	}

	plan := m.truncate(event, series, occurrence, now)
	plan.Created = next
	return plan, nil
}

func (m *ScopeMutationEngine) exceptionFor(event *entity.CalendarEvent, exceptions []entity.CalendarEventException, occurrence, now time.Time) *entity.CalendarEventException {
	if existing, ok := IndexExceptions(exceptions).Lookup(occurrence); ok {
		ex := *existing
		ex.UpdatedAt = now
		return &ex
	}
	return &entity.CalendarEventException{
		ID:                m.newID(),
		EventID:           event.ID,
		OriginalStartTime: occurrence,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

func cloneEvent(event *entity.CalendarEvent) *entity.CalendarEvent {
	cp := *event
	cp.Members = event.CloneMembers(event.ID)
	return &cp
}

// applyPatch writes series-level fields onto event, keeping the duration when
// only the start moves.
func applyPatch(event *entity.CalendarEvent, patch EventPatch) *errors.AppError {
	if patch.Title != nil {
		if strings.TrimSpace(*patch.Title) == "" {
			return errors.NewAppError(errors.ErrInvalidInput, "Title cannot be empty", nil)
		}
		event.Title = *patch.Title
	}
	if patch.Description != nil {
		event.Description = patch.Description
	}
	if patch.Location != nil {
		event.Location = patch.Location
	}
	if patch.IsAllDay != nil {
		event.IsAllDay = *patch.IsAllDay
	}
	if patch.ReminderMinutesBefore != nil {
		if *patch.ReminderMinutesBefore < 0 {
			return errors.NewAppError(errors.ErrInvalidInput, "Reminder minutes must not be negative", nil)
		}
		event.ReminderMinutesBefore = patch.ReminderMinutesBefore
	}

	duration := event.Duration()
	if patch.StartTime != nil {
		event.StartTime = patch.StartTime.UTC().Truncate(time.Second)
		event.EndTime = event.StartTime.Add(duration)
	}
	if patch.EndTime != nil {
		event.EndTime = patch.EndTime.UTC().Truncate(time.Second)
	}
	if event.EndTime.Before(event.StartTime) {
		return errors.NewAppError(errors.ErrInvalidInput, "End time must not be before start time", nil)
	}

	if patch.RecurrenceRule != nil {
		if *patch.RecurrenceRule == "" {
			event.RecurrenceRule = nil
			event.RecurrenceEndDate = nil
		} else {
			rule, err := recurrence.Parse(*patch.RecurrenceRule)
			if err != nil {
				return errors.NewAppError(errors.ErrInvalidRecurrenceRule, "Invalid recurrence rule", err)
			}
			canonical := rule.String()
			event.RecurrenceRule = &canonical
		}
	}
	if patch.RecurrenceEndDate != nil {
		if !event.IsRecurring() {
			return errors.NewAppError(errors.ErrInvalidInput, "Recurrence end date requires a recurrence rule", nil)
		}
		endDate := recurrence.DateOf(*patch.RecurrenceEndDate)
		if endDate.Before(recurrence.DateOf(event.StartTime)) {
			return errors.NewAppError(errors.ErrInvalidInput, "Recurrence end date is before the series start", nil)
		}
		event.RecurrenceEndDate = &endDate
	}

	if patch.Members != nil {
		members, appErr := BuildMembers(event.ID, patch.Members)
		if appErr != nil {
			return appErr
		}
		event.Members = members
	}
	return nil
}

// BuildMembers validates requested memberships; a user may appear once.
func BuildMembers(eventID uuid.UUID, inputs []MemberInput) ([]entity.CalendarEventMember, *errors.AppError) {
	seen := make(map[uuid.UUID]bool, len(inputs))
	members := make([]entity.CalendarEventMember, 0, len(inputs))
	for _, in := range inputs {
		if in.UserID == uuid.Nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Member user id is required", nil)
		}
		if seen[in.UserID] {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "A user can only be a member once", nil)
		}
		seen[in.UserID] = true

		pt := in.ParticipationType
		if pt == "" {
			pt = entity.ParticipationInvolved
		}
		if !pt.Valid() {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Unknown participation type", nil)
		}
		members = append(members, entity.CalendarEventMember{
			EventID:           eventID,
			UserID:            in.UserID,
			ParticipationType: pt,
		})
	}
	return members, nil
}
