package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"household-api/core/cache"
	"household-api/core/constants"
	"household-api/core/errors"
	"household-api/core/logger"
	"household-api/core/utils"
	"household-api/modules/calendar/dto"
	"household-api/modules/calendar/entity"
	"household-api/modules/calendar/mapper"
	"household-api/modules/calendar/recurrence"
	"household-api/modules/calendar/repository"

	"github.com/google/uuid"
)

type CalendarService interface {
	CreateEvent(ctx context.Context, tenantID, actorID uuid.UUID, req *dto.CreateEventRequest) (*dto.CalendarEventResponse, *errors.AppError)
	GetEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*dto.CalendarEventResponse, *errors.AppError)

	GetOccurrences(ctx context.Context, tenantID uuid.UUID, filter OccurrenceFilter) ([]dto.CalendarOccurrenceResponse, *errors.AppError)
	MutateEvent(ctx context.Context, tenantID, actorID, eventID uuid.UUID, req MutationRequest) (*dto.MutationResponse, *errors.AppError)

	GetFreeBusy(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]dto.FreeBusyResponse, *errors.AppError)
	FindAvailableSlots(ctx context.Context, tenantID uuid.UUID, req *dto.AvailableSlotsRequest) ([]dto.AvailableSlotResponse, *errors.AppError)
}

// Locker serializes mutations of one event across processes.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (string, error)
	ReleaseLock(ctx context.Context, key, token string) error
}

type OccurrenceFilter struct {
	Start           time.Time
	End             time.Time
	IncludeExternal bool
}

type Settings struct {
	MaxRangeDays           int
	LockTTL                time.Duration
	DefaultDurationMinutes int
}

type calendarService struct {
	repo     repository.CalendarRepository
	locker   Locker
	engine   *ScopeMutationEngine
	finder   *SlotFinder
	settings Settings
	now      func() time.Time
}

func NewCalendarService(repo repository.CalendarRepository, locker Locker, settings Settings) CalendarService {
	if settings.LockTTL <= 0 {
		settings.LockTTL = constants.DefaultTimeout
	}
	if settings.DefaultDurationMinutes <= 0 {
		settings.DefaultDurationMinutes = 30
	}
	return &calendarService{
		repo:     repo,
		locker:   locker,
		engine:   NewScopeMutationEngine(),
		finder:   NewSlotFinder(),
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CreateEvent validates and stores a new event with its members
func (s *calendarService) CreateEvent(ctx context.Context, tenantID, actorID uuid.UUID, req *dto.CreateEventRequest) (*dto.CalendarEventResponse, *errors.AppError) {
	if strings.TrimSpace(req.Title) == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Title is required", nil)
	}
	if req.StartTime.IsZero() || req.EndTime.IsZero() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "start_time_utc and end_time_utc are required", nil)
	}

	now := s.now()
	event := &entity.CalendarEvent{
		TenantID:        tenantID,
		Title:           req.Title,
		Description:     req.Description,
		Location:        req.Location,
		StartTime:       req.StartTime.UTC().Truncate(time.Second),
		EndTime:         req.EndTime.UTC().Truncate(time.Second),
		IsAllDay:        req.IsAllDay,
		CreatedByUserID: actorID,
	}
	event.ID = uuid.New()
	event.Touch(now)

	if event.EndTime.Before(event.StartTime) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "End time must not be before start time", nil)
	}
	if req.ReminderMinutesBefore != nil && *req.ReminderMinutesBefore < 0 {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Reminder minutes must not be negative", nil)
	}
	event.ReminderMinutesBefore = req.ReminderMinutesBefore

	if req.RecurrenceRule != nil && strings.TrimSpace(*req.RecurrenceRule) != "" {
		rule, err := recurrence.Parse(*req.RecurrenceRule)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidRecurrenceRule, "Invalid recurrence rule", err)
		}
		canonical := rule.String()
		event.RecurrenceRule = &canonical
	}

	if req.RecurrenceEndDate != nil {
		if !event.IsRecurring() {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Recurrence end date requires a recurrence rule", nil)
		}
		endDate, appErr := ParseDate(*req.RecurrenceEndDate)
		if appErr != nil {
			return nil, appErr
		}
		if endDate.Before(recurrence.DateOf(event.StartTime)) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Recurrence end date is before the series start", nil)
		}
		event.RecurrenceEndDate = &endDate
	}

	inputs, appErr := MemberInputs(req.Members)
	if appErr != nil {
		return nil, appErr
	}
	members, appErr := BuildMembers(event.ID, inputs)
	if appErr != nil {
		return nil, appErr
	}
	event.Members = members

	if err := s.repo.WithinTx(ctx, func(repo repository.CalendarRepository) error {
		return repo.CreateEvent(ctx, event)
	}); err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create event", err)
	}

	logger.Info("CalendarService:CreateEvent - created",
		"tenant_id", tenantID,
		"event_id", event.ID,
		"recurring", event.IsRecurring(),
		"members", len(event.Members),
	)
	return mapper.ToEventResponse(event), nil
}

func (s *calendarService) GetEvent(ctx context.Context, tenantID, eventID uuid.UUID) (*dto.CalendarEventResponse, *errors.AppError) {
	event, err := s.repo.GetEvent(ctx, tenantID, eventID)
	if err != nil {
		return nil, s.storageError(err, errors.ErrGetFailed, "Failed to get event")
	}
	return mapper.ToEventResponse(event), nil
}

// GetOccurrences expands, resolves and merges every occurrence overlapping the filter range
func (s *calendarService) GetOccurrences(ctx context.Context, tenantID uuid.UUID, filter OccurrenceFilter) ([]dto.CalendarOccurrenceResponse, *errors.AppError) {
	start, end, appErr := s.checkRange(filter.Start, filter.End)
	if appErr != nil {
		return nil, appErr
	}

	events, err := s.repo.ListEventsInRange(ctx, tenantID, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load events", err)
	}

	resolved, appErr := s.resolveEvents(ctx, events, start, end)
	if appErr != nil {
		return nil, appErr
	}

	var famick []entity.CalendarOccurrence
	for _, re := range resolved {
		famick = append(famick, re.Occurrences...)
	}

	var external []entity.CalendarOccurrence
	if filter.IncludeExternal {
		ext, err := s.repo.ListExternalEvents(ctx, tenantID, nil, start, end)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load external events", err)
		}
		external = ExternalOccurrences(ext)
	}

	merged := MergeOccurrences(famick, external)
	logger.Debug("CalendarService:GetOccurrences",
		"tenant_id", tenantID,
		"events", len(events),
		"occurrences", len(merged),
	)
	return mapper.ToOccurrenceResponses(merged), nil
}

// MutateEvent applies a scoped update or delete as one transaction while
// holding the event's lock
func (s *calendarService) MutateEvent(ctx context.Context, tenantID, actorID, eventID uuid.UUID, req MutationRequest) (*dto.MutationResponse, *errors.AppError) {
	if s.locker != nil {
		key := constants.EventLockPrefix + eventID.String()
		token, err := s.locker.AcquireLock(ctx, key, s.settings.LockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockNotAcquired) {
				return nil, errors.NewAppError(errors.ErrConcurrentModification, "Event is being modified, try again", err)
			}
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to lock event", err)
		}
		defer func() {
			if err := s.locker.ReleaseLock(context.WithoutCancel(ctx), key, token); err != nil {
				logger.Warn("CalendarService:MutateEvent - release lock", "event_id", eventID, "error", err)
			}
		}()
	}

	var plan *MutationPlan
	err := s.repo.WithinTx(ctx, func(repo repository.CalendarRepository) error {
		event, err := repo.GetEventForUpdate(ctx, tenantID, eventID)
		if err != nil {
			return err
		}

		exceptions, err := repo.ListExceptions(ctx, []uuid.UUID{event.ID})
		if err != nil {
			return err
		}

		p, appErr := s.engine.Plan(event, exceptions, req)
		if appErr != nil {
			return appErr
		}
		plan = p
		return applyPlan(ctx, repo, event, p)
	})
	if err != nil {
		var appErr *errors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		code := errors.ErrUpdateFailed
		if req.Action == ActionDelete {
			code = errors.ErrDeleteFailed
		}
		return nil, s.storageError(err, code, "Failed to apply change")
	}

	logger.Info("CalendarService:MutateEvent - applied",
		"tenant_id", tenantID,
		"actor_id", actorID,
		"event_id", eventID,
		"action", req.Action,
		"scope", req.Scope,
	)
	return toMutationResponse(eventID, plan), nil
}

func applyPlan(ctx context.Context, repo repository.CalendarRepository, event *entity.CalendarEvent, plan *MutationPlan) error {
	if plan.DeleteOriginal {
		if err := repo.DeleteEvent(ctx, event.TenantID, event.ID); err != nil {
			return err
		}
	}
	if plan.Updated != nil {
		if err := repo.UpdateEvent(ctx, plan.Updated); err != nil {
			return err
		}
	}
	if plan.DiscardExceptionsFrom != nil {
		if err := repo.DeleteExceptionsFrom(ctx, event.ID, *plan.DiscardExceptionsFrom); err != nil {
			return err
		}
	}
	if plan.UpsertException != nil {
		if err := repo.UpsertException(ctx, plan.UpsertException); err != nil {
			return err
		}
	}
	if plan.Created != nil {
		if err := repo.CreateEvent(ctx, plan.Created); err != nil {
			return err
		}
	}
	return nil
}

func toMutationResponse(eventID uuid.UUID, plan *MutationPlan) *dto.MutationResponse {
	resp := &dto.MutationResponse{}
	str := func(id uuid.UUID) *string {
		s := id.String()
		return &s
	}
	if plan.DeleteOriginal {
		resp.DeletedEventID = str(eventID)
	}
	if plan.Updated != nil {
		resp.UpdatedEventID = str(plan.Updated.ID)
	}
	if plan.Created != nil {
		resp.CreatedEventID = str(plan.Created.ID)
	}
	if plan.UpsertException != nil {
		resp.ExceptionID = str(plan.UpsertException.ID)
	}
	return resp
}

// GetFreeBusy returns one entry per requested user, in request order
func (s *calendarService) GetFreeBusy(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]dto.FreeBusyResponse, *errors.AppError) {
	start, end, appErr := s.checkRange(start, end)
	if appErr != nil {
		return nil, appErr
	}

	userIDs = uniqueIDs(userIDs)
	busy, appErr := s.busyIntervals(ctx, tenantID, userIDs, start, end)
	if appErr != nil {
		return nil, appErr
	}

	byUser := make(map[uuid.UUID][]dto.BusyInterval, len(userIDs))
	for _, iv := range busy {
		byUser[iv.UserID] = append(byUser[iv.UserID], mapper.ToBusyInterval(iv))
	}

	out := make([]dto.FreeBusyResponse, 0, len(userIDs))
	for _, id := range userIDs {
		intervals := byUser[id]
		if intervals == nil {
			intervals = []dto.BusyInterval{}
		}
		out = append(out, dto.FreeBusyResponse{UserID: id.String(), Busy: intervals})
	}
	return out, nil
}

// FindAvailableSlots returns slots in which every requested user is free
func (s *calendarService) FindAvailableSlots(ctx context.Context, tenantID uuid.UUID, req *dto.AvailableSlotsRequest) ([]dto.AvailableSlotResponse, *errors.AppError) {
	if len(req.UserIDs) == 0 {
		return nil, errors.NewAppError(errors.ErrEmptyUserList, "At least one user is required", nil)
	}
	userIDs, err := utils.ParseUUIDs(req.UserIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid user id", err)
	}
	userIDs = uniqueIDs(userIDs)

	duration := s.settings.DefaultDurationMinutes
	if req.DurationMinutes != nil {
		duration = *req.DurationMinutes
	}
	if duration <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidDuration, "Duration must be positive", nil)
	}

	var prefs *SlotPreferences
	if p := req.Preferences; p != nil {
		if p.BusinessHoursStart < 0 || p.BusinessHoursEnd < 0 || p.BusinessHoursStart > 24 || p.BusinessHoursEnd > 24 ||
			(p.BusinessHoursEnd > 0 && p.BusinessHoursStart >= p.BusinessHoursEnd) {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid business hours", nil)
		}
		prefs = &SlotPreferences{
			ExcludeWeekends:    p.ExcludeWeekends,
			BusinessHoursStart: p.BusinessHoursStart,
			BusinessHoursEnd:   p.BusinessHoursEnd,
		}
	}

	start, end, appErr := s.checkRange(req.StartTime, req.EndTime)
	if appErr != nil {
		return nil, appErr
	}

	busy, appErr := s.busyIntervals(ctx, tenantID, userIDs, start, end)
	if appErr != nil {
		return nil, appErr
	}

	slots, appErr := s.finder.FindSlots(userIDs, duration, start, end, busy, prefs)
	if appErr != nil {
		return nil, appErr
	}

	logger.Debug("CalendarService:FindAvailableSlots",
		"tenant_id", tenantID,
		"users", len(userIDs),
		"busy", len(busy),
		"slots", len(slots),
	)
	return mapper.ToSlotResponses(slots), nil
}

func (s *calendarService) busyIntervals(ctx context.Context, tenantID uuid.UUID, userIDs []uuid.UUID, start, end time.Time) ([]entity.FreeBusyInterval, *errors.AppError) {
	if len(userIDs) == 0 {
		return []entity.FreeBusyInterval{}, nil
	}

	events, err := s.repo.ListEventsForUsers(ctx, tenantID, userIDs, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load events", err)
	}

	resolved, appErr := s.resolveEvents(ctx, events, start, end)
	if appErr != nil {
		return nil, appErr
	}

	external, err := s.repo.ListExternalEvents(ctx, tenantID, userIDs, start, end)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load external events", err)
	}

	return ComputeFreeBusy(userIDs, resolved, external, start, end), nil
}

// resolveEvents loads exceptions for events and returns their occurrences
// overlapping [start, end).
func (s *calendarService) resolveEvents(ctx context.Context, events []entity.CalendarEvent, start, end time.Time) ([]ResolvedEvent, *errors.AppError) {
	if len(events) == 0 {
		return []ResolvedEvent{}, nil
	}

	ids := make([]uuid.UUID, len(events))
	for i := range events {
		ids[i] = events[i].ID
	}
	exceptions, err := s.repo.ListExceptions(ctx, ids)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to load exceptions", err)
	}
	byEvent := make(map[uuid.UUID][]entity.CalendarEventException, len(events))
	for _, ex := range exceptions {
		byEvent[ex.EventID] = append(byEvent[ex.EventID], ex)
	}

	out := make([]ResolvedEvent, 0, len(events))
	for i := range events {
		event := &events[i]
		occurrences, appErr := OccurrencesInRange(event, byEvent[event.ID], start, end)
		if appErr != nil {
			logger.Error("CalendarService:resolveEvents - stored rule rejected", appErr, "event_id", event.ID)
			return nil, appErr
		}
		out = append(out, ResolvedEvent{Event: event, Occurrences: occurrences})
	}
	return out, nil
}

// OccurrencesInRange returns the resolved occurrences of event overlapping
// [start, end), including ones moved into the range by an exception.
func OccurrencesInRange(event *entity.CalendarEvent, exceptions []entity.CalendarEventException, start, end time.Time) ([]entity.CalendarOccurrence, *errors.AppError) {
	series, appErr := SeriesOf(event)
	if appErr != nil {
		return nil, appErr
	}

	// an occurrence starting up to one duration earlier can still overlap
	starts := recurrence.Expand(series, start.Add(-event.Duration()), end)

	generated := make(map[int64]bool, len(starts))
	for _, t := range starts {
		generated[exceptionKey(t)] = true
	}
	duration := event.Duration()
	for _, ex := range exceptions {
		if ex.IsDeleted || (ex.StartTime == nil && ex.EndTime == nil) || generated[exceptionKey(ex.OriginalStartTime)] {
			continue
		}
		// moved or stretched occurrences can reach the range from outside the expansion window
		exStart, exEnd := exceptionSpan(ex, duration)
		if entity.SpanOverlaps(exStart, exEnd, start, end) && recurrence.Contains(series, ex.OriginalStartTime.UTC()) {
			starts = append(starts, ex.OriginalStartTime.UTC())
			generated[exceptionKey(ex.OriginalStartTime)] = true
		}
	}
	sort.Slice(starts, func(i, j int) bool { return starts[i].Before(starts[j]) })

	resolved := ResolveOccurrences(event, starts, IndexExceptions(exceptions))
	out := make([]entity.CalendarOccurrence, 0, len(resolved))
	for _, o := range resolved {
		if o.Overlaps(start, end) {
			out = append(out, o)
		}
	}
	return out, nil
}

// exceptionSpan is the effective interval of an overridden occurrence.
func exceptionSpan(ex entity.CalendarEventException, duration time.Duration) (time.Time, time.Time) {
	start := ex.OriginalStartTime.UTC()
	if ex.StartTime != nil {
		start = ex.StartTime.UTC()
	}
	end := start.Add(duration)
	if ex.EndTime != nil && ex.EndTime.After(start) {
		end = ex.EndTime.UTC()
	}
	return start, end
}

// checkRange normalizes to UTC and enforces end > start and the configured maximum length.
func (s *calendarService) checkRange(start, end time.Time) (time.Time, time.Time, *errors.AppError) {
	if start.IsZero() || end.IsZero() {
		return start, end, errors.NewAppError(errors.ErrInvalidInput, "start and end are required", nil)
	}
	start, end = start.UTC(), end.UTC()
	if !end.After(start) {
		return start, end, errors.NewAppError(errors.ErrInvalidInput, "end must be after start", nil)
	}
	if s.settings.MaxRangeDays > 0 && end.Sub(start) > time.Duration(s.settings.MaxRangeDays)*24*time.Hour {
		return start, end, errors.NewAppError(errors.ErrInvalidInput, "Requested range is too long", nil)
	}
	return start, end, nil
}

func (s *calendarService) storageError(err error, code errors.ErrorCode, message string) *errors.AppError {
	if errors.Is(err, repository.ErrEventNotFound) {
		return errors.NewAppError(errors.ErrNotFound, "Event not found", err)
	}
	return errors.NewAppError(code, message, err)
}

// ParseDate reads a YYYY-MM-DD date as midnight UTC.
func ParseDate(s string) (time.Time, *errors.AppError) {
	d, err := time.Parse(dto.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.NewAppError(errors.ErrInvalidInput, "Dates must use YYYY-MM-DD", err)
	}
	return d.UTC(), nil
}

// MemberInputs converts request members; nil stays nil.
func MemberInputs(reqs []dto.MemberRequest) ([]MemberInput, *errors.AppError) {
	if reqs == nil {
		return nil, nil
	}
	out := make([]MemberInput, 0, len(reqs))
	for _, m := range reqs {
		id, err := uuid.Parse(m.UserID)
		if err != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid member user id", err)
		}
		out = append(out, MemberInput{
			UserID:            id,
			ParticipationType: entity.ParticipationType(strings.ToLower(m.ParticipationType)),
		})
	}
	return out, nil
}

// PatchFromRequest converts a scoped update body into an EventPatch.
func PatchFromRequest(req *dto.UpdateEventRequest) (EventPatch, *errors.AppError) {
	patch := EventPatch{
		Title:                 req.Title,
		Description:           req.Description,
		Location:              req.Location,
		StartTime:             req.StartTime,
		EndTime:               req.EndTime,
		IsAllDay:              req.IsAllDay,
		RecurrenceRule:        req.RecurrenceRule,
		ReminderMinutesBefore: req.ReminderMinutesBefore,
	}
	if req.RecurrenceEndDate != nil {
		d, appErr := ParseDate(*req.RecurrenceEndDate)
		if appErr != nil {
			return patch, appErr
		}
		patch.RecurrenceEndDate = &d
	}
	members, appErr := MemberInputs(req.Members)
	if appErr != nil {
		return patch, appErr
	}
	patch.Members = members
	return patch, nil
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]bool, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
