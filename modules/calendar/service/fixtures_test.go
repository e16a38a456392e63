package service

import (
	"time"

	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
)

var (
	tenantA = uuid.MustParse("7b0d7e3c-1111-4c55-9a3f-000000000001")
	alice   = uuid.MustParse("a11ce000-0000-4000-8000-000000000001")
	bob     = uuid.MustParse("b0b00000-0000-4000-8000-000000000002")
	carol   = uuid.MustParse("ca201000-0000-4000-8000-000000000003")
)

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

func ptr[T any](v T) *T {
	return &v
}

// weeklyStandup is the weekly 09:00-10:00 event used across the tests.
func weeklyStandup(rule string) *entity.CalendarEvent {
	id := uuid.MustParse("e0e00000-0000-4000-8000-00000000000a")
	event := &entity.CalendarEvent{
		TenantID:        tenantA,
		Title:           "Standup",
		StartTime:       utc(2024, 1, 1, 9, 0),
		EndTime:         utc(2024, 1, 1, 10, 0),
		CreatedByUserID: alice,
		Members: []entity.CalendarEventMember{
			{EventID: id, UserID: alice, ParticipationType: entity.ParticipationInvolved},
			{EventID: id, UserID: bob, ParticipationType: entity.ParticipationAware},
		},
	}
	event.ID = id
	event.CreatedAt = utc(2023, 12, 1, 0, 0)
	event.UpdatedAt = event.CreatedAt
	if rule != "" {
		event.RecurrenceRule = ptr(rule)
	}
	return event
}

func occurrenceStarts(list []entity.CalendarOccurrence) []time.Time {
	out := make([]time.Time, 0, len(list))
	for _, o := range list {
		out = append(out, o.OccurrenceStart)
	}
	return out
}
