package recurrence

import (
	"time"

	"github.com/teambition/rrule-go"

	"household-api/core/logger"
)

// maxGenerated caps generator steps per walk.
const maxGenerated = 100000

// Series is everything expansion needs to know about an event.
type Series struct {
	Start   time.Time
	Rule    *Rule      // nil for a single event
	EndDate *time.Time // date granularity; occurrences on this UTC date are kept
}

// HardStop returns the exclusive upper bound implied by EndDate.
func (s Series) HardStop() (time.Time, bool) {
	if s.EndDate == nil {
		return time.Time{}, false
	}
	return EndOfDate(*s.EndDate), true
}

// DateOf truncates t to midnight UTC.
func DateOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDate is the first instant of the UTC day after t.
func EndOfDate(t time.Time) time.Time {
	return DateOf(t).AddDate(0, 0, 1)
}

// walk calls fn with each occurrence start in ascending order until fn
// returns false or the series is exhausted.
func (s Series) walk(fn func(time.Time) bool) {
	// the generator works at second precision
	start := s.Start.UTC().Truncate(time.Second)
	stop, hasStop := s.HardStop()

	emitted := 0
	emit := func(t time.Time) bool {
		if hasStop && !t.Before(stop) {
			return false
		}
		if s.Rule != nil {
			if s.Rule.Count > 0 && emitted >= s.Rule.Count {
				return false
			}
			if s.Rule.Until != nil && t.After(*s.Rule.Until) {
				return false
			}
		}
		emitted++
		return fn(t)
	}

	if !emit(start) || s.Rule == nil {
		return
	}

	r, err := rrule.NewRRule(s.Rule.option(start))
	if err != nil {
		logger.Error("recurrence: generator rejected rule", err, "rule", s.Rule.String())
		return
	}

	next := r.Iterator()
	last := start
	for i := 0; i < maxGenerated; i++ {
		t, ok := next()
		if !ok {
			return
		}
		t = t.UTC()
		if !t.After(last) {
			continue
		}
		last = t
		if !emit(t) {
			return
		}
	}
	logger.Warn("recurrence: expansion hit generator cap", "rule", s.Rule.String(), "start", start, "cap", maxGenerated)
}

// Expand returns the occurrence starts of s within [windowStart, windowEnd), ascending.
func Expand(s Series, windowStart, windowEnd time.Time) []time.Time {
	out := make([]time.Time, 0)
	if !windowStart.Before(windowEnd) {
		return out
	}
	s.walk(func(t time.Time) bool {
		if !t.Before(windowEnd) {
			return false
		}
		if !t.Before(windowStart) {
			out = append(out, t)
		}
		return true
	})
	return out
}

// Contains reports whether t is a generated occurrence start of s.
func Contains(s Series, t time.Time) bool {
	found := false
	s.walk(func(o time.Time) bool {
		if o.Equal(t) {
			found = true
		}
		return o.Before(t)
	})
	return found
}

// Previous returns the last occurrence strictly before t.
func Previous(s Series, t time.Time) (time.Time, bool) {
	var prev time.Time
	found := false
	s.walk(func(o time.Time) bool {
		if !o.Before(t) {
			return false
		}
		prev, found = o, true
		return true
	})
	return prev, found
}

// CountBefore returns how many occurrences start strictly before t.
func CountBefore(s Series, t time.Time) int {
	n := 0
	s.walk(func(o time.Time) bool {
		if !o.Before(t) {
			return false
		}
		n++
		return true
	})
	return n
}
