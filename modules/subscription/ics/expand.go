package ics

import (
	"sort"
	"time"

	"github.com/teambition/rrule-go"

	"household-api/core/logger"
)

const maxInstancesPerEvent = 5000

// Instance is one concrete busy block taken from a feed, in UTC.
type Instance struct {
	ExternalUID string
	Title       string
	Start       time.Time
	End         time.Time
	AllDay      bool
}

// ExpandFeed turns parsed feed events into instances overlapping
// [windowStart, windowEnd). Recurring events get one instance per
// occurrence, keyed by UID and original start; overrides and EXDATEs apply.
func ExpandFeed(events []FeedEvent, windowStart, windowEnd time.Time) []Instance {
	bases := make(map[string]FeedEvent)
	overrides := make(map[string]map[int64]FeedEvent)

	for _, ev := range events {
		if ev.RecurrenceID != nil {
			byRID, ok := overrides[ev.UID]
			if !ok {
				byRID = make(map[int64]FeedEvent)
				overrides[ev.UID] = byRID
			}
			key := ev.RecurrenceID.Unix()
			if prev, ok := byRID[key]; !ok || ev.Sequence >= prev.Sequence {
				byRID[key] = ev
			}
			continue
		}
		if prev, ok := bases[ev.UID]; !ok || ev.Sequence >= prev.Sequence {
			bases[ev.UID] = ev
		}
	}

	byUID := make(map[string]Instance)
	add := func(uid string, ev FeedEvent, start, end time.Time) {
		inst := Instance{
			ExternalUID: uid,
			Title:       ev.Summary,
			Start:       start.UTC(),
			End:         end.UTC(),
			AllDay:      ev.AllDay,
		}
		if inst.Start.Before(windowEnd) && inst.End.After(windowStart) {
			byUID[uid] = inst
		}
	}

	for uid, base := range bases {
		if base.Cancelled {
			continue
		}
		ov := overrides[uid]

		if base.RRule == "" {
			if o, ok := ov[base.Start.Unix()]; ok {
				if !o.Cancelled {
					add(uid, o, o.Start, o.End)
				}
				continue
			}
			add(uid, base, base.Start, base.End)
			continue
		}

		for _, start := range expandRecurring(base, windowStart, windowEnd) {
			instanceUID := uid + "/" + start.UTC().Format("20060102T150405Z")
			if o, ok := ov[start.Unix()]; ok {
				if !o.Cancelled {
					add(instanceUID, o, o.Start, o.End)
				}
				continue
			}
			add(instanceUID, base, start, start.Add(base.End.Sub(base.Start)))
		}
	}

	out := make([]Instance, 0, len(byUID))
	for _, inst := range byUID {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Start.Equal(out[j].Start) {
			return out[i].Start.Before(out[j].Start)
		}
		return out[i].ExternalUID < out[j].ExternalUID
	})
	return out
}

func expandRecurring(ev FeedEvent, windowStart, windowEnd time.Time) []time.Time {
	r, err := rrule.StrToRRule(ev.RRule)
	if err != nil {
		logger.Warn("ics: unreadable RRULE", "uid", ev.UID, "rrule", ev.RRule, "error", err)
		return nil
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	from := windowStart.Add(-ev.End.Sub(ev.Start)).In(ev.Start.Location())
	starts := set.Between(from, windowEnd.In(ev.Start.Location()), true)
	if len(starts) > maxInstancesPerEvent {
		logger.Warn("ics: truncated recurring event", "uid", ev.UID, "cap", maxInstancesPerEvent)
		starts = starts[:maxInstancesPerEvent]
	}
	return starts
}
