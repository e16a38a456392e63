package entity

import (
	"time"

	"github.com/google/uuid"
)

// SourceKind tells where an occurrence or busy interval came from.
type SourceKind string

const (
	SourceFamick   SourceKind = "famick"
	SourceExternal SourceKind = "external"
)

// CalendarOccurrence is one concrete instance of an event after exception overlay.
// It is computed, never persisted.
type CalendarOccurrence struct {
	EventID           uuid.UUID // event id, or subscription id for external events
	OriginalStartTime time.Time // generated start; the key for scoped mutations
	OccurrenceStart   time.Time
	OccurrenceEnd     time.Time
	Title             string
	Description       *string
	Location          *string
	IsAllDay          bool
	IsException       bool
	SourceKind        SourceKind
}

// Overlaps reports whether the occurrence intersects [start, end).
func (o CalendarOccurrence) Overlaps(start, end time.Time) bool {
	return SpanOverlaps(o.OccurrenceStart, o.OccurrenceEnd, start, end)
}

// SpanOverlaps reports whether [s, e) intersects [start, end). A zero-length
// span counts when s lies in [start, end).
func SpanOverlaps(s, e, start, end time.Time) bool {
	if !s.Before(end) {
		return false
	}
	if !e.After(s) {
		return !s.Before(start)
	}
	return e.After(start)
}

// FreeBusyInterval is a busy block for one user.
type FreeBusyInterval struct {
	UserID  uuid.UUID
	Start   time.Time
	End     time.Time
	Source  SourceKind
	EventID uuid.UUID
}

// AvailableSlot is a window where every requested user is free.
type AvailableSlot struct {
	Start time.Time
	End   time.Time
}

// TimeSlot represents a generic half-open time range.
type TimeSlot struct {
	Start time.Time
	End   time.Time
}
