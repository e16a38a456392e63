package service

import (
	"testing"

	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resolvedSingle(title string, startH, endH int, members ...entity.CalendarEventMember) ResolvedEvent {
	id := uuid.New()
	event := &entity.CalendarEvent{Title: title, StartTime: utc(2024, 3, 4, startH, 0), EndTime: utc(2024, 3, 4, endH, 0)}
	event.ID = id
	for _, m := range members {
		m.EventID = id
		event.Members = append(event.Members, m)
	}
	return ResolvedEvent{
		Event: event,
		Occurrences: []entity.CalendarOccurrence{{
			EventID:         id,
			OccurrenceStart: event.StartTime,
			OccurrenceEnd:   event.EndTime,
			Title:           title,
			SourceKind:      entity.SourceFamick,
		}},
	}
}

func involved(userID uuid.UUID) entity.CalendarEventMember {
	return entity.CalendarEventMember{UserID: userID, ParticipationType: entity.ParticipationInvolved}
}

func aware(userID uuid.UUID) entity.CalendarEventMember {
	return entity.CalendarEventMember{UserID: userID, ParticipationType: entity.ParticipationAware}
}

func TestComputeFreeBusy_OnlyInvolvedMembersAreBusy(t *testing.T) {
	events := []ResolvedEvent{
		resolvedSingle("School run", 8, 9, involved(alice), aware(bob)),
	}

	got := ComputeFreeBusy([]uuid.UUID{alice, bob}, events, nil, utc(2024, 3, 4, 0, 0), utc(2024, 3, 5, 0, 0))
	require.Len(t, got, 1)
	assert.Equal(t, alice, got[0].UserID)
	assert.Equal(t, entity.SourceFamick, got[0].Source)
	assert.Equal(t, events[0].Event.ID, got[0].EventID)
}

func TestComputeFreeBusy_ExternalAlwaysBlocksOwner(t *testing.T) {
	subID := uuid.New()
	external := []entity.ExternalCalendarEvent{
		{SubscriptionID: subID, UserID: bob, Title: "Work", StartTime: utc(2024, 3, 4, 13, 0), EndTime: utc(2024, 3, 4, 17, 0)},
		{SubscriptionID: subID, UserID: carol, Title: "Other", StartTime: utc(2024, 3, 4, 13, 0), EndTime: utc(2024, 3, 4, 17, 0)},
	}

	got := ComputeFreeBusy([]uuid.UUID{bob}, nil, external, utc(2024, 3, 4, 0, 0), utc(2024, 3, 5, 0, 0))
	require.Len(t, got, 1)
	assert.Equal(t, bob, got[0].UserID)
	assert.Equal(t, entity.SourceExternal, got[0].Source)
	assert.Equal(t, subID, got[0].EventID)
}

func TestComputeFreeBusy_ClipsWithoutMerging(t *testing.T) {
	events := []ResolvedEvent{
		resolvedSingle("Late", 10, 12, involved(alice)),
		resolvedSingle("Early", 7, 11, involved(alice)),
	}

	got := ComputeFreeBusy([]uuid.UUID{alice}, events, nil, utc(2024, 3, 4, 9, 0), utc(2024, 3, 4, 11, 30))
	require.Len(t, got, 2)
	assert.Equal(t, utc(2024, 3, 4, 9, 0), got[0].Start)
	assert.Equal(t, utc(2024, 3, 4, 11, 0), got[0].End)
	assert.Equal(t, utc(2024, 3, 4, 10, 0), got[1].Start)
	assert.Equal(t, utc(2024, 3, 4, 11, 30), got[1].End)
}

func TestComputeFreeBusy_GroupedByRequestOrder(t *testing.T) {
	events := []ResolvedEvent{
		resolvedSingle("Both", 9, 10, involved(alice), involved(bob)),
		resolvedSingle("Bob early", 7, 8, involved(bob)),
	}

	got := ComputeFreeBusy([]uuid.UUID{bob, alice, bob, carol}, events, nil, utc(2024, 3, 4, 0, 0), utc(2024, 3, 5, 0, 0))
	require.Len(t, got, 3)
	assert.Equal(t, []uuid.UUID{bob, bob, alice}, []uuid.UUID{got[0].UserID, got[1].UserID, got[2].UserID})
	assert.Equal(t, utc(2024, 3, 4, 7, 0), got[0].Start)
	assert.Equal(t, utc(2024, 3, 4, 9, 0), got[1].Start)
}

func TestComputeFreeBusy_OutsideRangeAndEmptyRange(t *testing.T) {
	events := []ResolvedEvent{resolvedSingle("Morning", 8, 9, involved(alice))}

	assert.Empty(t, ComputeFreeBusy([]uuid.UUID{alice}, events, nil, utc(2024, 3, 4, 9, 0), utc(2024, 3, 4, 12, 0)),
		"an event ending at the range start does not overlap")
	assert.Empty(t, ComputeFreeBusy([]uuid.UUID{alice}, events, nil, utc(2024, 3, 4, 12, 0), utc(2024, 3, 4, 12, 0)))
}
