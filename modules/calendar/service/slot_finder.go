package service

import (
	"sort"
	"time"

	"household-api/core/errors"
	"household-api/modules/calendar/entity"

	"github.com/google/uuid"
)

// SlotPreferences restrict where slots may fall. Hours are UTC; a zero
// BusinessHoursEnd means no business hours restriction.
type SlotPreferences struct {
	ExcludeWeekends    bool
	BusinessHoursStart int
	BusinessHoursEnd   int
}

func (p *SlotPreferences) hasBusinessHours() bool {
	return p != nil && p.BusinessHoursEnd > 0
}

// SlotFinder handles the algorithm to find common free time
type SlotFinder struct{}

func NewSlotFinder() *SlotFinder {
	return &SlotFinder{}
}

type boundary struct {
	at    time.Time
	delta int
}

// FindSlots returns one slot of durationMinutes at the start of every maximal
// gap in [windowStart, windowEnd) where none of userIDs is busy.
func (sf *SlotFinder) FindSlots(
	userIDs []uuid.UUID,
	durationMinutes int,
	windowStart time.Time,
	windowEnd time.Time,
	busy []entity.FreeBusyInterval,
	preferences *SlotPreferences,
) ([]entity.AvailableSlot, *errors.AppError) {
	if len(userIDs) == 0 {
		return nil, errors.NewAppError(errors.ErrEmptyUserList, "At least one user is required", nil)
	}
	if durationMinutes <= 0 {
		return nil, errors.NewAppError(errors.ErrInvalidDuration, "Duration must be positive", nil)
	}

	slots := []entity.AvailableSlot{}
	if !windowStart.Before(windowEnd) {
		return slots, nil
	}
	duration := time.Duration(durationMinutes) * time.Minute

	// 1. Merge each user's busy times within the window
	perUser := make(map[uuid.UUID][]entity.TimeSlot, len(userIDs))
	for _, id := range userIDs {
		perUser[id] = nil
	}
	for _, b := range busy {
		if _, ok := perUser[b.UserID]; !ok {
			continue
		}
		if iv, ok := clip(b.Start, b.End, windowStart, windowEnd); ok {
			perUser[b.UserID] = append(perUser[b.UserID], entity.TimeSlot{Start: iv.Start, End: iv.End})
		}
	}

	var boundaries []boundary
	addAll := func(list []entity.TimeSlot) {
		for _, s := range list {
			boundaries = append(boundaries, boundary{at: s.Start, delta: 1}, boundary{at: s.End, delta: -1})
		}
	}
	for _, list := range perUser {
		addAll(sf.mergeOverlappingSlots(list))
	}

	// 2. Preferences block time like an extra participant
	addAll(sf.mergeOverlappingSlots(sf.blockedByPreferences(windowStart, windowEnd, preferences)))

	// 3. Sweep; ends sort before starts at the same instant
	sort.Slice(boundaries, func(i, j int) bool {
		if !boundaries[i].at.Equal(boundaries[j].at) {
			return boundaries[i].at.Before(boundaries[j].at)
		}
		return boundaries[i].delta < boundaries[j].delta
	})

	emit := func(from, to time.Time) {
		if to.Sub(from) >= duration {
			slots = append(slots, entity.AvailableSlot{Start: from, End: from.Add(duration)})
		}
	}

	cursor := windowStart
	active := 0
	for _, b := range boundaries {
		if active == 0 && b.at.After(cursor) {
			emit(cursor, b.at)
		}
		active += b.delta
		if active == 0 && b.at.After(cursor) {
			cursor = b.at
		}
	}
	if active == 0 && windowEnd.After(cursor) {
		emit(cursor, windowEnd)
	}

	return slots, nil
}

// mergeOverlappingSlots merges overlapping or adjacent slots
func (sf *SlotFinder) mergeOverlappingSlots(slots []entity.TimeSlot) []entity.TimeSlot {
	if len(slots) == 0 {
		return slots
	}

	sorted := make([]entity.TimeSlot, len(slots))
	copy(sorted, slots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	merged := []entity.TimeSlot{sorted[0]}

	for i := 1; i < len(sorted); i++ {
		last := &merged[len(merged)-1]
		current := sorted[i]

		if !current.Start.After(last.End) {
			if current.End.After(last.End) {
				last.End = current.End
			}
		} else {
			merged = append(merged, current)
		}
	}

	return merged
}

// blockedByPreferences turns weekend and business hour preferences into
// blocked ranges covering the window.
func (sf *SlotFinder) blockedByPreferences(start, end time.Time, preferences *SlotPreferences) []entity.TimeSlot {
	if preferences == nil || (!preferences.ExcludeWeekends && !preferences.hasBusinessHours()) {
		return nil
	}

	var blocked []entity.TimeSlot
	s := start.UTC()
	for day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, time.UTC); day.Before(end); day = day.AddDate(0, 0, 1) {
		next := day.AddDate(0, 0, 1)

		if preferences.ExcludeWeekends && (day.Weekday() == time.Saturday || day.Weekday() == time.Sunday) {
			blocked = append(blocked, entity.TimeSlot{Start: day, End: next})
			continue
		}

		if preferences.hasBusinessHours() {
			open := day.Add(time.Duration(preferences.BusinessHoursStart) * time.Hour)
			closing := day.Add(time.Duration(preferences.BusinessHoursEnd) * time.Hour)
			if open.After(day) {
				blocked = append(blocked, entity.TimeSlot{Start: day, End: open})
			}
			if closing.Before(next) {
				blocked = append(blocked, entity.TimeSlot{Start: closing, End: next})
			}
		}
	}

	for i := range blocked {
		if blocked[i].Start.Before(start) {
			blocked[i].Start = start
		}
		if blocked[i].End.After(end) {
			blocked[i].End = end
		}
	}
	out := blocked[:0]
	for _, b := range blocked {
		if b.Start.Before(b.End) {
			out = append(out, b)
		}
	}
	return out
}
