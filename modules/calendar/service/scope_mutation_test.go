package service

import (
	"testing"
	"time"

	"household-api/core/errors"
	"household-api/modules/calendar/entity"
	"household-api/modules/calendar/recurrence"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	planNow   = utc(2024, 1, 10, 12, 0)
	newSeries = uuid.MustParse("e0e00000-0000-4000-8000-0000000000ff")
)

func testEngine() *ScopeMutationEngine {
	engine := NewScopeMutationEngine()
	engine.now = func() time.Time { return planNow }
	engine.newID = func() uuid.UUID { return newSeries }
	return engine
}

func allStarts(t *testing.T, event *entity.CalendarEvent) []time.Time {
	t.Helper()
	series, appErr := SeriesOf(event)
	require.Nil(t, appErr)
	return recurrence.Expand(series, utc(2020, 1, 1, 0, 0), utc(2031, 1, 1, 0, 0))
}

func TestPlan_WeeklySeriesDeleteOneThenSplit(t *testing.T) {
	engine := testEngine()
	event := weeklyStandup("FREQ=WEEKLY;UNTIL=20240201")

	// delete Jan 15 only
	plan, appErr := engine.Plan(event, nil, MutationRequest{
		Action:          ActionDelete,
		Scope:           ScopeThisOccurrence,
		OccurrenceStart: ptr(utc(2024, 1, 15, 9, 0)),
	})
	require.Nil(t, appErr)
	require.NotNil(t, plan.UpsertException)
	assert.False(t, plan.DeleteOriginal)
	assert.Nil(t, plan.Created)
	assert.True(t, plan.UpsertException.IsDeleted)
	assert.Equal(t, event.ID, plan.UpsertException.EventID)
	assert.Equal(t, utc(2024, 1, 15, 9, 0), plan.UpsertException.OriginalStartTime)

	exceptions := []entity.CalendarEventException{*plan.UpsertException}
	got, appErr := OccurrencesInRange(event, exceptions, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Nil(t, appErr)
	assert.Equal(t, []time.Time{
		utc(2024, 1, 1, 9, 0),
		utc(2024, 1, 8, 9, 0),
		utc(2024, 1, 22, 9, 0),
		utc(2024, 1, 29, 9, 0),
	}, occurrenceStarts(got))

	// rename from Jan 22 onward
	plan, appErr = engine.Plan(event, exceptions, MutationRequest{
		Action:          ActionUpdate,
		Scope:           ScopeThisAndFuture,
		OccurrenceStart: ptr(utc(2024, 1, 22, 9, 0)),
		Patch:           EventPatch{Title: ptr("Standup v2")},
	})
	require.Nil(t, appErr)
	require.NotNil(t, plan.Updated)
	require.NotNil(t, plan.Created)
	assert.False(t, plan.DeleteOriginal)

	require.NotNil(t, plan.Updated.RecurrenceEndDate)
	assert.Equal(t, utc(2024, 1, 15, 0, 0), *plan.Updated.RecurrenceEndDate)
	assert.Equal(t, "Standup", plan.Updated.Title)
	require.NotNil(t, plan.DiscardExceptionsFrom)
	assert.Equal(t, utc(2024, 1, 22, 9, 0), *plan.DiscardExceptionsFrom)

	created := plan.Created
	assert.Equal(t, newSeries, created.ID)
	assert.Equal(t, "Standup v2", created.Title)
	assert.Equal(t, utc(2024, 1, 22, 9, 0), created.StartTime)
	assert.Equal(t, utc(2024, 1, 22, 10, 0), created.EndTime)
	require.Len(t, created.Members, 2)
	for _, m := range created.Members {
		assert.Equal(t, newSeries, m.EventID)
	}

	before, appErr := OccurrencesInRange(plan.Updated, exceptions, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Nil(t, appErr)
	after, appErr := OccurrencesInRange(created, nil, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Nil(t, appErr)

	assert.Equal(t, []time.Time{utc(2024, 1, 1, 9, 0), utc(2024, 1, 8, 9, 0)}, occurrenceStarts(before))
	assert.Equal(t, []time.Time{utc(2024, 1, 22, 9, 0), utc(2024, 1, 29, 9, 0)}, occurrenceStarts(after))
	for _, o := range after {
		assert.Equal(t, "Standup v2", o.Title)
	}
}

func TestPlan_SplitPreservesCoverage(t *testing.T) {
	cases := []struct {
		name  string
		rule  string
		index int
	}{
		{"daily count", "FREQ=DAILY;COUNT=10", 3},
		{"daily until", "FREQ=DAILY;UNTIL=20240120", 5},
		{"weekly byday", "FREQ=WEEKLY;BYDAY=MO,WE,FR", 4},
		{"biweekly byday", "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE", 3},
		{"every other month", "FREQ=MONTHLY;INTERVAL=2", 2},
		{"yearly count", "FREQ=YEARLY;COUNT=5", 1},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event := weeklyStandup(tc.rule)
			original := allStarts(t, event)
			require.Greater(t, len(original), tc.index)
			occurrence := original[tc.index]

			plan, appErr := testEngine().Plan(event, nil, MutationRequest{
				Action:          ActionUpdate,
				Scope:           ScopeThisAndFuture,
				OccurrenceStart: &occurrence,
				Patch:           EventPatch{Location: ptr("Garage")},
			})
			require.Nil(t, appErr)
			require.NotNil(t, plan.Updated)
			require.NotNil(t, plan.Created)

			head := allStarts(t, plan.Updated)
			tail := allStarts(t, plan.Created)

			assert.Equal(t, original[:tc.index], head)
			assert.Equal(t, original[tc.index:], tail)
			for _, h := range head {
				assert.True(t, h.Before(occurrence))
			}
		})
	}
}

func TestPlan_SplitCarriesRemainingCount(t *testing.T) {
	event := weeklyStandup("FREQ=DAILY;COUNT=10")

	plan, appErr := testEngine().Plan(event, nil, MutationRequest{
		Action:          ActionUpdate,
		Scope:           ScopeThisAndFuture,
		OccurrenceStart: ptr(utc(2024, 1, 4, 9, 0)),
	})
	require.Nil(t, appErr)
	require.NotNil(t, plan.Created.RecurrenceRule)
	assert.Equal(t, "FREQ=DAILY;COUNT=7", *plan.Created.RecurrenceRule)
	assert.Equal(t, "FREQ=DAILY;COUNT=10", *plan.Updated.RecurrenceRule)
}

func TestPlan_ThisAndFutureOnFirstOccurrence(t *testing.T) {
	event := weeklyStandup("FREQ=WEEKLY;COUNT=4")
	first := utc(2024, 1, 1, 9, 0)

	t.Run("delete removes the series", func(t *testing.T) {
		plan, appErr := testEngine().Plan(event, nil, MutationRequest{
			Action:          ActionDelete,
			Scope:           ScopeThisAndFuture,
			OccurrenceStart: &first,
		})
		require.Nil(t, appErr)
		assert.True(t, plan.DeleteOriginal)
		assert.Nil(t, plan.Updated)
		assert.Nil(t, plan.Created)
	})

	t.Run("update replaces the series", func(t *testing.T) {
		plan, appErr := testEngine().Plan(event, nil, MutationRequest{
			Action:          ActionUpdate,
			Scope:           ScopeThisAndFuture,
			OccurrenceStart: &first,
			Patch:           EventPatch{Title: ptr("Breakfast")},
		})
		require.Nil(t, appErr)
		assert.True(t, plan.DeleteOriginal)
		assert.Nil(t, plan.Updated)
		require.NotNil(t, plan.Created)
		assert.Equal(t, "Breakfast", plan.Created.Title)
		assert.Equal(t, allStarts(t, event), allStarts(t, plan.Created))
	})
}

func TestPlan_ThisAndFutureDelete(t *testing.T) {
	event := weeklyStandup("FREQ=WEEKLY")

	plan, appErr := testEngine().Plan(event, nil, MutationRequest{
		Action:          ActionDelete,
		Scope:           ScopeThisAndFuture,
		OccurrenceStart: ptr(utc(2024, 1, 15, 9, 0)),
	})
	require.Nil(t, appErr)
	assert.Nil(t, plan.Created)
	require.NotNil(t, plan.Updated)
	assert.Equal(t, utc(2024, 1, 8, 0, 0), *plan.Updated.RecurrenceEndDate)
	assert.Equal(t, []time.Time{utc(2024, 1, 1, 9, 0), utc(2024, 1, 8, 9, 0)}, allStarts(t, plan.Updated))
}

func TestPlan_EntireSeries(t *testing.T) {
	t.Run("delete", func(t *testing.T) {
		plan, appErr := testEngine().Plan(weeklyStandup("FREQ=WEEKLY"), nil, MutationRequest{
			Action: ActionDelete,
			Scope:  ScopeEntireSeries,
		})
		require.Nil(t, appErr)
		assert.True(t, plan.DeleteOriginal)
	})

	t.Run("moving the start keeps the duration", func(t *testing.T) {
		plan, appErr := testEngine().Plan(weeklyStandup("FREQ=WEEKLY"), nil, MutationRequest{
			Action: ActionUpdate,
			Scope:  ScopeEntireSeries,
			Patch:  EventPatch{StartTime: ptr(utc(2024, 1, 1, 11, 0))},
		})
		require.Nil(t, appErr)
		assert.Equal(t, utc(2024, 1, 1, 11, 0), plan.Updated.StartTime)
		assert.Equal(t, utc(2024, 1, 1, 12, 0), plan.Updated.EndTime)
		assert.Equal(t, planNow, plan.Updated.UpdatedAt)
	})

	t.Run("clearing the rule makes a single event", func(t *testing.T) {
		event := weeklyStandup("FREQ=WEEKLY")
		event.RecurrenceEndDate = ptr(utc(2024, 3, 1, 0, 0))

		plan, appErr := testEngine().Plan(event, nil, MutationRequest{
			Action: ActionUpdate,
			Scope:  ScopeEntireSeries,
			Patch:  EventPatch{RecurrenceRule: ptr("")},
		})
		require.Nil(t, appErr)
		assert.Nil(t, plan.Updated.RecurrenceRule)
		assert.Nil(t, plan.Updated.RecurrenceEndDate)
	})

	t.Run("members are replaced", func(t *testing.T) {
		plan, appErr := testEngine().Plan(weeklyStandup("FREQ=WEEKLY"), nil, MutationRequest{
			Action: ActionUpdate,
			Scope:  ScopeEntireSeries,
			Patch: EventPatch{Members: []MemberInput{
				{UserID: carol},
				{UserID: bob, ParticipationType: entity.ParticipationInvolved},
			}},
		})
		require.Nil(t, appErr)
		require.Len(t, plan.Updated.Members, 2)
		assert.Equal(t, carol, plan.Updated.Members[0].UserID)
		assert.Equal(t, entity.ParticipationInvolved, plan.Updated.Members[0].ParticipationType)
	})

	t.Run("single event", func(t *testing.T) {
		plan, appErr := testEngine().Plan(weeklyStandup(""), nil, MutationRequest{
			Action: ActionUpdate,
			Scope:  ScopeEntireSeries,
			Patch:  EventPatch{Title: ptr("Dinner")},
		})
		require.Nil(t, appErr)
		assert.Equal(t, "Dinner", plan.Updated.Title)
	})
}

func TestPlan_ThisOccurrenceUpdate(t *testing.T) {
	event := weeklyStandup("FREQ=WEEKLY")
	existingID := uuid.New()
	exceptions := []entity.CalendarEventException{{
		ID:                existingID,
		EventID:           event.ID,
		OriginalStartTime: utc(2024, 1, 8, 9, 0),
		IsDeleted:         true,
	}}

	plan, appErr := testEngine().Plan(event, exceptions, MutationRequest{
		Action:          ActionUpdate,
		Scope:           ScopeThisOccurrence,
		OccurrenceStart: ptr(utc(2024, 1, 8, 9, 0)),
		Patch:           EventPatch{StartTime: ptr(utc(2024, 1, 9, 18, 0))},
	})
	require.Nil(t, appErr)

	ex := plan.UpsertException
	require.NotNil(t, ex)
	assert.Equal(t, existingID, ex.ID, "an existing exception is rewritten in place")
	assert.False(t, ex.IsDeleted, "updating a deleted occurrence restores it")
	assert.Nil(t, ex.Title)
	require.NotNil(t, ex.StartTime)
	assert.Equal(t, utc(2024, 1, 9, 18, 0), *ex.StartTime)
	assert.Nil(t, ex.EndTime)

	assert.Equal(t, event.RecurrenceRule, plan.Updated.RecurrenceRule)
	assert.Nil(t, plan.Created)
}

func TestPlan_DoesNotModifyInput(t *testing.T) {
	event := weeklyStandup("FREQ=WEEKLY;COUNT=6")
	snapshot := *event
	snapshot.Members = append([]entity.CalendarEventMember(nil), event.Members...)

	_, appErr := testEngine().Plan(event, nil, MutationRequest{
		Action:          ActionUpdate,
		Scope:           ScopeThisAndFuture,
		OccurrenceStart: ptr(utc(2024, 1, 15, 9, 0)),
		Patch: EventPatch{
			Title:   ptr("Other"),
			Members: []MemberInput{{UserID: carol}},
		},
	})
	require.Nil(t, appErr)
	assert.Equal(t, snapshot, *event)
}

func TestPlan_Errors(t *testing.T) {
	recurring := weeklyStandup("FREQ=WEEKLY;UNTIL=20240201")
	single := weeklyStandup("")
	broken := weeklyStandup("FREQ=HOURLY")

	cases := []struct {
		name  string
		event *entity.CalendarEvent
		req   MutationRequest
		code  errors.ErrorCode
	}{
		{
			name:  "unknown action",
			event: recurring,
			req:   MutationRequest{Action: "archive", Scope: ScopeEntireSeries},
			code:  errors.ErrInvalidInput,
		},
		{
			name:  "unknown scope",
			event: recurring,
			req:   MutationRequest{Action: ActionDelete, Scope: "sometimes"},
			code:  errors.ErrInvalidScope,
		},
		{
			name:  "occurrence scope on a single event",
			event: single,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeThisOccurrence, OccurrenceStart: ptr(utc(2024, 1, 1, 9, 0))},
			code:  errors.ErrInvalidScope,
		},
		{
			name:  "missing occurrence start",
			event: recurring,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeThisAndFuture},
			code:  errors.ErrOccurrenceNotFound,
		},
		{
			name:  "start not generated by the rule",
			event: recurring,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeThisOccurrence, OccurrenceStart: ptr(utc(2024, 1, 2, 9, 0))},
			code:  errors.ErrOccurrenceNotFound,
		},
		{
			name:  "sub-second start is not a generated start",
			event: recurring,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeThisOccurrence, OccurrenceStart: ptr(utc(2024, 1, 15, 9, 0).Add(500 * time.Millisecond))},
			code:  errors.ErrOccurrenceNotFound,
		},
		{
			name:  "start after the series ends",
			event: recurring,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeThisOccurrence, OccurrenceStart: ptr(utc(2024, 2, 5, 9, 0))},
			code:  errors.ErrOccurrenceNotFound,
		},
		{
			name:  "rule change on one occurrence",
			event: recurring,
			req: MutationRequest{
				Action:          ActionUpdate,
				Scope:           ScopeThisOccurrence,
				OccurrenceStart: ptr(utc(2024, 1, 8, 9, 0)),
				Patch:           EventPatch{RecurrenceRule: ptr("FREQ=DAILY")},
			},
			code: errors.ErrInvalidScope,
		},
		{
			name:  "members change on one occurrence",
			event: recurring,
			req: MutationRequest{
				Action:          ActionUpdate,
				Scope:           ScopeThisOccurrence,
				OccurrenceStart: ptr(utc(2024, 1, 8, 9, 0)),
				Patch:           EventPatch{Members: []MemberInput{}},
			},
			code: errors.ErrInvalidScope,
		},
		{
			name:  "invalid rule in patch",
			event: recurring,
			req: MutationRequest{
				Action:          ActionUpdate,
				Scope:           ScopeThisAndFuture,
				OccurrenceStart: ptr(utc(2024, 1, 8, 9, 0)),
				Patch:           EventPatch{RecurrenceRule: ptr("FREQ=WEEKLY;BYSETPOS=1")},
			},
			code: errors.ErrInvalidRecurrenceRule,
		},
		{
			name:  "stored rule is unreadable",
			event: broken,
			req:   MutationRequest{Action: ActionDelete, Scope: ScopeEntireSeries},
			code:  errors.ErrInvalidRecurrenceRule,
		},
		{
			name:  "empty title",
			event: recurring,
			req:   MutationRequest{Action: ActionUpdate, Scope: ScopeEntireSeries, Patch: EventPatch{Title: ptr("  ")}},
			code:  errors.ErrInvalidInput,
		},
		{
			name:  "end before start",
			event: recurring,
			req:   MutationRequest{Action: ActionUpdate, Scope: ScopeEntireSeries, Patch: EventPatch{EndTime: ptr(utc(2023, 12, 31, 9, 0))}},
			code:  errors.ErrInvalidInput,
		},
		{
			name:  "duplicate members",
			event: recurring,
			req: MutationRequest{Action: ActionUpdate, Scope: ScopeEntireSeries, Patch: EventPatch{Members: []MemberInput{
				{UserID: alice},
				{UserID: alice, ParticipationType: entity.ParticipationAware},
			}}},
			code: errors.ErrInvalidInput,
		},
		{
			name:  "end date on a single event",
			event: single,
			req:   MutationRequest{Action: ActionUpdate, Scope: ScopeEntireSeries, Patch: EventPatch{RecurrenceEndDate: ptr(utc(2024, 5, 1, 0, 0))}},
			code:  errors.ErrInvalidInput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			plan, appErr := testEngine().Plan(tc.event, nil, tc.req)
			assert.Nil(t, plan)
			require.NotNil(t, appErr)
			assert.Equal(t, tc.code, appErr.Code)
		})
	}
}

func TestParseScope(t *testing.T) {
	scope, ok := ParseScope("")
	assert.True(t, ok)
	assert.Equal(t, ScopeEntireSeries, scope)

	scope, ok = ParseScope(" This_And_Future ")
	assert.True(t, ok)
	assert.Equal(t, ScopeThisAndFuture, scope)

	_, ok = ParseScope("everything")
	assert.False(t, ok)
}
