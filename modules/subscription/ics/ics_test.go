package ics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func feed(lines ...string) []byte {
	all := append([]string{"BEGIN:VCALENDAR", "VERSION:2.0", "PRODID:-//household//test//EN"}, lines...)
	all = append(all, "END:VCALENDAR", "")
	return []byte(strings.Join(all, "\r\n"))
}

func utc(y int, m time.Month, d, h, min int) time.Time {
	return time.Date(y, m, d, h, min, 0, 0, time.UTC)
}

var familyFeed = feed(
	"BEGIN:VEVENT",
	"UID:single@example.com",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240110T150000Z",
	"DTEND:20240110T160000Z",
	"SUMMARY:Dentist",
	"END:VEVENT",

	"BEGIN:VEVENT",
	"UID:weekly@example.com",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;TZID=Europe/Berlin:20240101T090000",
	"DTEND;TZID=Europe/Berlin:20240101T100000",
	"RRULE:FREQ=WEEKLY;COUNT=4",
	"EXDATE;TZID=Europe/Berlin:20240108T090000",
	"SUMMARY:Gym",
	"END:VEVENT",

	"BEGIN:VEVENT",
	"UID:weekly@example.com",
	"DTSTAMP:20240101T000000Z",
	"RECURRENCE-ID;TZID=Europe/Berlin:20240115T090000",
	"DTSTART;TZID=Europe/Berlin:20240115T110000",
	"DTEND;TZID=Europe/Berlin:20240115T120000",
	"SUMMARY:Gym (late)",
	"END:VEVENT",

	"BEGIN:VEVENT",
	"UID:allday@example.com",
	"DTSTAMP:20240101T000000Z",
	"DTSTART;VALUE=DATE:20240120",
	"DTEND;VALUE=DATE:20240122",
	"SUMMARY:Trip",
	"END:VEVENT",

	"BEGIN:VEVENT",
	"UID:cancelled@example.com",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240111T150000Z",
	"DTEND:20240111T160000Z",
	"STATUS:CANCELLED",
	"SUMMARY:Called off",
	"END:VEVENT",

	"BEGIN:VEVENT",
	"DTSTAMP:20240101T000000Z",
	"DTSTART:20240112T150000Z",
	"SUMMARY:No uid",
	"END:VEVENT",
)

func TestParseFeed(t *testing.T) {
	events, err := ParseFeed(familyFeed)
	require.NoError(t, err)
	require.Len(t, events, 5, "the event without UID is skipped")

	byKey := map[string]FeedEvent{}
	for _, ev := range events {
		key := ev.UID
		if ev.RecurrenceID != nil {
			key += "#override"
		}
		byKey[key] = ev
	}

	single := byKey["single@example.com"]
	assert.Equal(t, "Dentist", single.Summary)
	assert.True(t, single.Start.Equal(utc(2024, 1, 10, 15, 0)))
	assert.True(t, single.End.Equal(utc(2024, 1, 10, 16, 0)))
	assert.False(t, single.AllDay)

	weekly := byKey["weekly@example.com"]
	assert.Equal(t, "FREQ=WEEKLY;COUNT=4", weekly.RRule)
	assert.True(t, weekly.Start.Equal(utc(2024, 1, 1, 8, 0)))
	assert.Equal(t, "Europe/Berlin", weekly.Start.Location().String())
	require.Len(t, weekly.ExDates, 1)
	assert.Equal(t, utc(2024, 1, 8, 8, 0), weekly.ExDates[0])

	override := byKey["weekly@example.com#override"]
	require.NotNil(t, override.RecurrenceID)
	assert.Equal(t, utc(2024, 1, 15, 8, 0), *override.RecurrenceID)

	allDay := byKey["allday@example.com"]
	assert.True(t, allDay.AllDay)
	assert.Equal(t, utc(2024, 1, 20, 0, 0), allDay.Start)
	assert.Equal(t, utc(2024, 1, 22, 0, 0), allDay.End)

	assert.True(t, byKey["cancelled@example.com"].Cancelled)
}

func TestParseFeed_Empty(t *testing.T) {
	_, err := ParseFeed([]byte("  \r\n"))
	assert.Error(t, err)
}

func TestExpandFeed(t *testing.T) {
	events, err := ParseFeed(familyFeed)
	require.NoError(t, err)

	got := ExpandFeed(events, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Len(t, got, 5)

	assert.Equal(t, Instance{ExternalUID: "weekly@example.com/20240101T080000Z", Title: "Gym", Start: utc(2024, 1, 1, 8, 0), End: utc(2024, 1, 1, 9, 0)}, got[0])
	assert.Equal(t, Instance{ExternalUID: "single@example.com", Title: "Dentist", Start: utc(2024, 1, 10, 15, 0), End: utc(2024, 1, 10, 16, 0)}, got[1])
	assert.Equal(t, Instance{ExternalUID: "weekly@example.com/20240115T080000Z", Title: "Gym (late)", Start: utc(2024, 1, 15, 10, 0), End: utc(2024, 1, 15, 11, 0)}, got[2])
	assert.Equal(t, Instance{ExternalUID: "allday@example.com", Title: "Trip", Start: utc(2024, 1, 20, 0, 0), End: utc(2024, 1, 22, 0, 0), AllDay: true}, got[3])
	assert.Equal(t, "weekly@example.com/20240122T080000Z", got[4].ExternalUID)
}

func TestExpandFeed_Window(t *testing.T) {
	events, err := ParseFeed(familyFeed)
	require.NoError(t, err)

	got := ExpandFeed(events, utc(2024, 1, 21, 0, 0), utc(2024, 1, 23, 0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, "allday@example.com", got[0].ExternalUID, "an instance in progress at the window start is kept")
	assert.Equal(t, "weekly@example.com/20240122T080000Z", got[1].ExternalUID)

	assert.Empty(t, ExpandFeed(events, utc(2025, 1, 1, 0, 0), utc(2025, 2, 1, 0, 0)))
}

func TestExpandFeed_FollowsFeedZoneAcrossDST(t *testing.T) {
	events, err := ParseFeed(feed(
		"BEGIN:VEVENT",
		"UID:dst@example.com",
		"DTSTAMP:20240101T000000Z",
		"DTSTART;TZID=Europe/Berlin:20240325T090000",
		"DTEND;TZID=Europe/Berlin:20240325T093000",
		"RRULE:FREQ=WEEKLY;COUNT=2",
		"SUMMARY:Piano",
		"END:VEVENT",
	))
	require.NoError(t, err)

	got := ExpandFeed(events, utc(2024, 3, 1, 0, 0), utc(2024, 5, 1, 0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, utc(2024, 3, 25, 8, 0), got[0].Start)
	// Berlin switched to summer time on March 31
	assert.Equal(t, utc(2024, 4, 1, 7, 0), got[1].Start)
	assert.Equal(t, utc(2024, 4, 1, 7, 30), got[1].End)
}

func TestExpandFeed_HighestSequenceWins(t *testing.T) {
	events := []FeedEvent{
		{UID: "a", Sequence: 2, Summary: "New", Start: utc(2024, 1, 5, 10, 0), End: utc(2024, 1, 5, 11, 0)},
		{UID: "a", Sequence: 1, Summary: "Old", Start: utc(2024, 1, 5, 9, 0), End: utc(2024, 1, 5, 10, 0)},
	}

	got := ExpandFeed(events, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Len(t, got, 1)
	assert.Equal(t, "New", got[0].Title)
}

func TestExpandFeed_CancelledOverrideRemovesInstance(t *testing.T) {
	rid := utc(2024, 1, 2, 9, 0)
	events := []FeedEvent{
		{UID: "d", Summary: "Walk", Start: utc(2024, 1, 1, 9, 0), End: utc(2024, 1, 1, 10, 0), RRule: "FREQ=DAILY;COUNT=3"},
		{UID: "d", Summary: "Walk", Start: rid, End: rid.Add(time.Hour), RecurrenceID: &rid, Cancelled: true},
	}

	got := ExpandFeed(events, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0))
	require.Len(t, got, 2)
	assert.Equal(t, utc(2024, 1, 1, 9, 0), got[0].Start)
	assert.Equal(t, utc(2024, 1, 3, 9, 0), got[1].Start)
}

func TestExpandFeed_UnreadableRuleIsSkipped(t *testing.T) {
	events := []FeedEvent{{UID: "x", Start: utc(2024, 1, 1, 9, 0), End: utc(2024, 1, 1, 10, 0), RRule: "FREQ=SOMETIMES"}}
	assert.Empty(t, ExpandFeed(events, utc(2024, 1, 1, 0, 0), utc(2024, 2, 1, 0, 0)))
}
