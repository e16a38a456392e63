package service

import (
	"sort"
	"time"

	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
)

// ExceptionIndex maps an occurrence's original start to its exception.
type ExceptionIndex map[int64]*entity.CalendarEventException

func exceptionKey(t time.Time) int64 {
	return t.UTC().Truncate(time.Second).Unix()
}

// IndexExceptions builds the lookup for one event's exceptions.
func IndexExceptions(exceptions []entity.CalendarEventException) ExceptionIndex {
	idx := make(ExceptionIndex, len(exceptions))
	for i := range exceptions {
		idx[exceptionKey(exceptions[i].OriginalStartTime)] = &exceptions[i]
	}
	return idx
}

func (idx ExceptionIndex) Lookup(originalStart time.Time) (*entity.CalendarEventException, bool) {
	ex, ok := idx[exceptionKey(originalStart)]
	return ex, ok
}

// ResolveOccurrences overlays exceptions onto generated starts. Deleted
// occurrences are dropped; override fields replace base fields one by one.
func ResolveOccurrences(event *entity.CalendarEvent, starts []time.Time, exceptions ExceptionIndex) []entity.CalendarOccurrence {
	out := make([]entity.CalendarOccurrence, 0, len(starts))
	duration := event.Duration()

	for _, start := range starts {
		occ := entity.CalendarOccurrence{
			EventID:           event.ID,
			OriginalStartTime: start,
			OccurrenceStart:   start,
			OccurrenceEnd:     start.Add(duration),
			Title:             event.Title,
			Description:       event.Description,
			Location:          event.Location,
			IsAllDay:          event.IsAllDay,
			SourceKind:        entity.SourceFamick,
		}

		if ex, ok := exceptions.Lookup(start); ok {
			if ex.IsDeleted {
				continue
			}
			applyException(&occ, ex, duration)
		}

		out = append(out, occ)
	}
	return out
}

func applyException(occ *entity.CalendarOccurrence, ex *entity.CalendarEventException, duration time.Duration) {
	occ.IsException = true
	if ex.Title != nil {
		occ.Title = *ex.Title
	}
	if ex.Description != nil {
		occ.Description = ex.Description
	}
	if ex.Location != nil {
		occ.Location = ex.Location
	}
	if ex.IsAllDay != nil {
		occ.IsAllDay = *ex.IsAllDay
	}
	if ex.StartTime != nil {
		occ.OccurrenceStart = ex.StartTime.UTC()
		occ.OccurrenceEnd = occ.OccurrenceStart.Add(duration)
	}
	if ex.EndTime != nil && ex.EndTime.After(occ.OccurrenceStart) {
		occ.OccurrenceEnd = ex.EndTime.UTC()
	}
}

// ExternalOccurrences converts synced external events into occurrences.
func ExternalOccurrences(events []entity.ExternalCalendarEvent) []entity.CalendarOccurrence {
	out := make([]entity.CalendarOccurrence, 0, len(events))
	for _, e := range events {
		out = append(out, entity.CalendarOccurrence{
			EventID:           e.SubscriptionID,
			OriginalStartTime: e.StartTime.UTC(),
			OccurrenceStart:   e.StartTime.UTC(),
			OccurrenceEnd:     e.EndTime.UTC(),
			Title:             e.Title,
			IsAllDay:          e.IsAllDay,
			SourceKind:        entity.SourceExternal,
		})
	}
	return out
}

type occurrenceKey struct {
	kind  entity.SourceKind
	id    uuid.UUID
	start int64
	title string
}

// MergeOccurrences unions both sources, dropping exact duplicates, and sorts
// by start with source kind and id as tie breakers so output is deterministic.
func MergeOccurrences(famick, external []entity.CalendarOccurrence) []entity.CalendarOccurrence {
	out := make([]entity.CalendarOccurrence, 0, len(famick)+len(external))
	seen := make(map[occurrenceKey]bool, cap(out))

	add := func(list []entity.CalendarOccurrence) {
		for _, o := range list {
			key := occurrenceKey{kind: o.SourceKind, id: o.EventID, start: o.OccurrenceStart.UnixNano()}
			if o.SourceKind == entity.SourceExternal {
				// one subscription can hold several events at the same instant
				key.title = o.Title
			}
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, o)
		}
	}
	add(famick)
	add(external)

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.OccurrenceStart.Equal(b.OccurrenceStart) {
			return a.OccurrenceStart.Before(b.OccurrenceStart)
		}
		if a.SourceKind != b.SourceKind {
			return a.SourceKind < b.SourceKind
		}
		return a.EventID.String() < b.EventID.String()
	})
	return out
}
