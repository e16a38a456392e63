package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"household-api/core/errors"
	"household-api/core/logger"
	calendarEntity "household-api/modules/calendar/entity"
	"household-api/modules/subscription/dto"
	"household-api/modules/subscription/entity"
	"household-api/modules/subscription/ics"
	"household-api/modules/subscription/repository"

	"github.com/google/uuid"
)

const maxFeedBytes = 10 << 20

// Fetcher downloads a feed body.
type Fetcher interface {
	Fetch(ctx context.Context, feedURL string) ([]byte, error)
}

// SyncEnqueuer schedules a background sync of one subscription.
type SyncEnqueuer interface {
	EnqueueSync(ctx context.Context, subscriptionID uuid.UUID) error
}

type SubscriptionServiceInterface interface {
	Create(ctx context.Context, tenantID, userID uuid.UUID, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, *errors.AppError)
	List(ctx context.Context, tenantID, userID uuid.UUID) ([]dto.SubscriptionResponse, *errors.AppError)
	Delete(ctx context.Context, tenantID, userID, id uuid.UUID) *errors.AppError
	RequestSync(ctx context.Context, tenantID, userID, id uuid.UUID) (*dto.SyncResponse, *errors.AppError)

	// Sync fetches the feed and replaces the subscription's external events.
	Sync(ctx context.Context, id uuid.UUID) error
	// EnqueueAll queues a sync for every active subscription.
	EnqueueAll(ctx context.Context) (int, error)
}

type Settings struct {
	FetchTimeout time.Duration
	HorizonDays  int
}

type SubscriptionService struct {
	repo     repository.SubscriptionRepository
	fetcher  Fetcher
	enqueuer SyncEnqueuer
	settings Settings
	now      func() time.Time
}

func NewSubscriptionService(repo repository.SubscriptionRepository, fetcher Fetcher, enqueuer SyncEnqueuer, settings Settings) *SubscriptionService {
	if settings.FetchTimeout <= 0 {
		settings.FetchTimeout = 15 * time.Second
	}
	if settings.HorizonDays <= 0 {
		settings.HorizonDays = 180
	}
	return &SubscriptionService{
		repo:     repo,
		fetcher:  fetcher,
		enqueuer: enqueuer,
		settings: settings,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *SubscriptionService) Create(ctx context.Context, tenantID, userID uuid.UUID, req *dto.CreateSubscriptionRequest) (*dto.SubscriptionResponse, *errors.AppError) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Name is required", nil)
	}
	feedURL, appErr := normalizeFeedURL(req.URL)
	if appErr != nil {
		return nil, appErr
	}

	sub := &entity.CalendarSubscription{
		TenantID: tenantID,
		UserID:   userID,
		Name:     name,
		URL:      feedURL,
		IsActive: true,
	}
	sub.ID = uuid.New()
	sub.Touch(s.now())

	if err := s.repo.Create(ctx, sub); err != nil {
		return nil, errors.NewAppError(errors.ErrCreateFailed, "Failed to create subscription", err)
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.EnqueueSync(ctx, sub.ID); err != nil {
			logger.Warn("SubscriptionService:Create - initial sync not queued", "subscription_id", sub.ID, "error", err)
		}
	}

	logger.Info("SubscriptionService:Create - created", "tenant_id", tenantID, "user_id", userID, "subscription_id", sub.ID)
	resp := toResponse(sub)
	return &resp, nil
}

func (s *SubscriptionService) List(ctx context.Context, tenantID, userID uuid.UUID) ([]dto.SubscriptionResponse, *errors.AppError) {
	subs, err := s.repo.ListByUser(ctx, tenantID, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to list subscriptions", err)
	}
	out := make([]dto.SubscriptionResponse, 0, len(subs))
	for i := range subs {
		out = append(out, toResponse(&subs[i]))
	}
	return out, nil
}

func (s *SubscriptionService) Delete(ctx context.Context, tenantID, userID, id uuid.UUID) *errors.AppError {
	if err := s.repo.Delete(ctx, tenantID, userID, id); err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return errors.NewAppError(errors.ErrNotFound, "Subscription not found", err)
		}
		return errors.NewAppError(errors.ErrDeleteFailed, "Failed to delete subscription", err)
	}
	return nil
}

func (s *SubscriptionService) RequestSync(ctx context.Context, tenantID, userID, id uuid.UUID) (*dto.SyncResponse, *errors.AppError) {
	sub, err := s.repo.Get(ctx, tenantID, id)
	if err != nil {
		if errors.Is(err, repository.ErrSubscriptionNotFound) {
			return nil, errors.NewAppError(errors.ErrNotFound, "Subscription not found", err)
		}
		return nil, errors.NewAppError(errors.ErrGetFailed, "Failed to get subscription", err)
	}
	if sub.UserID != userID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Subscription belongs to another user", nil)
	}

	if s.enqueuer == nil {
		// no worker configured, sync inline
		if err := s.Sync(ctx, sub.ID); err != nil {
			return nil, errors.NewAppError(errors.ErrUpdateFailed, "Sync failed", err)
		}
		return &dto.SyncResponse{SubscriptionID: sub.ID.String(), Queued: false}, nil
	}

	if err := s.enqueuer.EnqueueSync(ctx, sub.ID); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to queue sync", err)
	}
	return &dto.SyncResponse{SubscriptionID: sub.ID.String(), Queued: true}, nil
}

func (s *SubscriptionService) Sync(ctx context.Context, id uuid.UUID) error {
	sub, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !sub.IsActive {
		logger.Debug("SubscriptionService:Sync - inactive, skipping", "subscription_id", id)
		return nil
	}

	now := s.now()
	count, syncErr := s.sync(ctx, sub, now)

	var msg *string
	if syncErr != nil {
		m := syncErr.Error()
		msg = &m
	}
	if err := s.repo.MarkSynced(ctx, sub.ID, now, msg); err != nil {
		logger.Warn("SubscriptionService:Sync - mark synced", "subscription_id", sub.ID, "error", err)
	}

	if syncErr != nil {
		logger.Error("SubscriptionService:Sync - failed", syncErr, "subscription_id", sub.ID)
		return syncErr
	}
	logger.Info("SubscriptionService:Sync - completed", "subscription_id", sub.ID, "events", count)
	return nil
}

func (s *SubscriptionService) sync(ctx context.Context, sub *entity.CalendarSubscription, now time.Time) (int, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.settings.FetchTimeout)
	defer cancel()

	body, err := s.fetcher.Fetch(fetchCtx, sub.URL)
	if err != nil {
		return 0, fmt.Errorf("fetch feed: %w", err)
	}

	parsed, err := ics.ParseFeed(body)
	if err != nil {
		return 0, fmt.Errorf("parse feed: %w", err)
	}

	windowStart := now.AddDate(0, 0, -7)
	windowEnd := now.AddDate(0, 0, s.settings.HorizonDays)
	instances := ics.ExpandFeed(parsed, windowStart, windowEnd)

	events := make([]calendarEntity.ExternalCalendarEvent, 0, len(instances))
	for _, inst := range instances {
		events = append(events, calendarEntity.ExternalCalendarEvent{
			ID:             uuid.New(),
			TenantID:       sub.TenantID,
			SubscriptionID: sub.ID,
			UserID:         sub.UserID,
			ExternalUID:    inst.ExternalUID,
			Title:          inst.Title,
			StartTime:      inst.Start,
			EndTime:        inst.End,
			IsAllDay:       inst.AllDay,
			UpdatedAt:      now,
		})
	}

	if err := s.repo.ReplaceEvents(ctx, sub, events); err != nil {
		return 0, fmt.Errorf("store events: %w", err)
	}
	return len(events), nil
}

func (s *SubscriptionService) EnqueueAll(ctx context.Context) (int, error) {
	if s.enqueuer == nil {
		return 0, errors.New("no sync enqueuer configured")
	}
	subs, err := s.repo.ListActive(ctx)
	if err != nil {
		return 0, err
	}

	queued := 0
	for _, sub := range subs {
		if err := s.enqueuer.EnqueueSync(ctx, sub.ID); err != nil {
			logger.Warn("SubscriptionService:EnqueueAll - not queued", "subscription_id", sub.ID, "error", err)
			continue
		}
		queued++
	}
	return queued, nil
}

func normalizeFeedURL(raw string) (string, *errors.AppError) {
	raw = strings.TrimSpace(raw)
	// webcal is the conventional scheme for subscribable feeds
	if strings.HasPrefix(strings.ToLower(raw), "webcal://") {
		raw = "https://" + raw[len("webcal://"):]
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", errors.NewAppError(errors.ErrInvalidInput, "url must be an http, https or webcal address", err)
	}
	return u.String(), nil
}

func toResponse(sub *entity.CalendarSubscription) dto.SubscriptionResponse {
	return dto.SubscriptionResponse{
		ID:            sub.ID.String(),
		UserID:        sub.UserID.String(),
		Name:          sub.Name,
		URL:           sub.URL,
		IsActive:      sub.IsActive,
		LastSyncedAt:  sub.LastSyncedAt,
		LastSyncError: sub.LastSyncError,
		CreatedAt:     sub.CreatedAt,
	}
}

// HTTPFetcher fetches feeds over HTTP.
type HTTPFetcher struct {
	client *http.Client
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{client: &http.Client{}}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, feedURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
}
