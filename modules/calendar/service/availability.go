package service

import (
	"sort"
	"time"

	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
)

// ResolvedEvent pairs an event (with members) and its resolved occurrences.
type ResolvedEvent struct {
	Event       *entity.CalendarEvent
	Occurrences []entity.CalendarOccurrence
}

// ComputeFreeBusy lists busy intervals per requested user, clipped to
// [rangeStart, rangeEnd). Only involved members are blocked by household
// events; external events always block their owner. Intervals are not
// merged. Output is grouped in request order, then by start.
func ComputeFreeBusy(userIDs []uuid.UUID, events []ResolvedEvent, external []entity.ExternalCalendarEvent, rangeStart, rangeEnd time.Time) []entity.FreeBusyInterval {
	out := make([]entity.FreeBusyInterval, 0)
	if !rangeStart.Before(rangeEnd) {
		return out
	}

	seen := make(map[uuid.UUID]bool, len(userIDs))
	for _, userID := range userIDs {
		if seen[userID] {
			continue
		}
		seen[userID] = true

		var busy []entity.FreeBusyInterval
		for _, re := range events {
			member, ok := re.Event.Member(userID)
			if !ok || member.ParticipationType != entity.ParticipationInvolved {
				continue
			}
			for _, occ := range re.Occurrences {
				if iv, ok := clip(occ.OccurrenceStart, occ.OccurrenceEnd, rangeStart, rangeEnd); ok {
					iv.UserID = userID
					iv.Source = entity.SourceFamick
					iv.EventID = re.Event.ID
					busy = append(busy, iv)
				}
			}
		}

		for _, ext := range external {
			if ext.UserID != userID {
				continue
			}
			if iv, ok := clip(ext.StartTime.UTC(), ext.EndTime.UTC(), rangeStart, rangeEnd); ok {
				iv.UserID = userID
				iv.Source = entity.SourceExternal
				iv.EventID = ext.SubscriptionID
				busy = append(busy, iv)
			}
		}

		sort.SliceStable(busy, func(i, j int) bool {
			if !busy[i].Start.Equal(busy[j].Start) {
				return busy[i].Start.Before(busy[j].Start)
			}
			return busy[i].End.Before(busy[j].End)
		})
		out = append(out, busy...)
	}
	return out
}

func clip(start, end, rangeStart, rangeEnd time.Time) (entity.FreeBusyInterval, bool) {
	if start.Before(rangeStart) {
		start = rangeStart
	}
	if end.After(rangeEnd) {
		end = rangeEnd
	}
	if !start.Before(end) {
		return entity.FreeBusyInterval{}, false
	}
	return entity.FreeBusyInterval{Start: start, End: end}, true
}
