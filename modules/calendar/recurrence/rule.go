// Package recurrence parses the supported RRULE subset into a Rule value and
// expands a series (start, rule, end date) into occurrence start times.
//
// Supported grammar, optionally prefixed with "RRULE:":
//
//	FREQ=DAILY|WEEKLY|MONTHLY|YEARLY   required
//	INTERVAL=1..999
//	BYDAY=MO,TU,WE,TH,FR,SA,SU         no ordinal prefixes
//	COUNT=1..10000                     exclusive with UNTIL
//	UNTIL=YYYYMMDD | YYYYMMDDTHHMMSSZ
//	WKST=MO..SU
package recurrence

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teambition/rrule-go"
)

const (
	MaxRuleLength = 500
	MaxInterval   = 999
	MaxCount      = 10000
)

// ErrInvalidRule is wrapped by every parse failure.
var ErrInvalidRule = errors.New("invalid recurrence rule")

type Frequency string

const (
	Daily   Frequency = "DAILY"
	Weekly  Frequency = "WEEKLY"
	Monthly Frequency = "MONTHLY"
	Yearly  Frequency = "YEARLY"
)

var allowedKeys = map[string]bool{
	"FREQ":     true,
	"INTERVAL": true,
	"BYDAY":    true,
	"COUNT":    true,
	"UNTIL":    true,
	"WKST":     true,
}

var toRRuleFreq = map[Frequency]rrule.Frequency{
	Daily:   rrule.DAILY,
	Weekly:  rrule.WEEKLY,
	Monthly: rrule.MONTHLY,
	Yearly:  rrule.YEARLY,
}

// indexed by time.Weekday
var toRRuleWeekday = [7]rrule.Weekday{rrule.SU, rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR, rrule.SA}

var weekdayCodes = [7]string{"SU", "MO", "TU", "WE", "TH", "FR", "SA"}

// Rule is the parsed form of a recurrence specification.
type Rule struct {
	Frequency Frequency
	Interval  int
	ByDay     []time.Weekday
	WeekStart time.Weekday
	Count     int        // 0 means unbounded
	Until     *time.Time // inclusive
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
}

// Parse validates text against the supported grammar and returns the structured rule.
func Parse(text string) (*Rule, error) {
	text = strings.ToUpper(strings.TrimSpace(text))
	if text == "" {
		return nil, invalid("empty rule")
	}
	if len(text) > MaxRuleLength {
		return nil, invalid("rule exceeds %d characters", MaxRuleLength)
	}
	text = strings.TrimPrefix(text, "RRULE:")

	seen := make(map[string]string)
	for _, part := range strings.Split(text, ";") {
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" || value == "" {
			return nil, invalid("malformed component %q", part)
		}
		if !allowedKeys[key] {
			return nil, invalid("unsupported component %s", key)
		}
		if _, dup := seen[key]; dup {
			return nil, invalid("duplicate component %s", key)
		}
		seen[key] = value
	}
	if _, ok := seen["FREQ"]; !ok {
		return nil, invalid("FREQ is required")
	}
	if _, hasCount := seen["COUNT"]; hasCount {
		if _, hasUntil := seen["UNTIL"]; hasUntil {
			return nil, invalid("COUNT and UNTIL are mutually exclusive")
		}
	}
	if v, ok := seen["INTERVAL"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxInterval {
			return nil, invalid("INTERVAL must be between 1 and %d", MaxInterval)
		}
	}
	if v, ok := seen["COUNT"]; ok {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxCount {
			return nil, invalid("COUNT must be between 1 and %d", MaxCount)
		}
	}

	opt, err := rrule.StrToROption(text)
	if err != nil {
		return nil, invalid("%v", err)
	}

	rule := &Rule{
		Interval:  max(opt.Interval, 1),
		Count:     opt.Count,
		WeekStart: time.Monday,
	}

	switch Frequency(seen["FREQ"]) {
	case Daily, Weekly, Monthly, Yearly:
		rule.Frequency = Frequency(seen["FREQ"])
	default:
		return nil, invalid("unsupported FREQ %s", seen["FREQ"])
	}

	if v, ok := seen["BYDAY"]; ok {
		days := make(map[time.Weekday]bool)
		for _, code := range strings.Split(v, ",") {
			day, ok := weekdayFromCode(code)
			if !ok {
				return nil, invalid("unsupported BYDAY value %q", code)
			}
			if days[day] {
				continue
			}
			days[day] = true
			rule.ByDay = append(rule.ByDay, day)
		}
	}
	if v, ok := seen["WKST"]; ok {
		day, ok := weekdayFromCode(v)
		if !ok {
			return nil, invalid("unsupported WKST value %q", v)
		}
		rule.WeekStart = day
	}
	if _, ok := seen["UNTIL"]; ok {
		until := opt.Until.UTC()
		rule.Until = &until
	}

	// rrule-go rejects combinations it cannot iterate; surface that now rather than at expansion.
	if _, err := rrule.NewRRule(rule.option(time.Unix(0, 0).UTC())); err != nil {
		return nil, invalid("%v", err)
	}

	return rule, nil
}

func weekdayFromCode(code string) (time.Weekday, bool) {
	for i, c := range weekdayCodes {
		if c == code {
			return time.Weekday(i), true
		}
	}
	return 0, false
}

// option builds the generator options. Count and Until are left out: the
// expander applies them itself so the base start can be counted.
func (r *Rule) option(dtstart time.Time) rrule.ROption {
	opt := rrule.ROption{
		Freq:     toRRuleFreq[r.Frequency],
		Dtstart:  dtstart,
		Interval: r.Interval,
		Wkst:     toRRuleWeekday[r.WeekStart],
	}
	for _, d := range r.ByDay {
		opt.Byweekday = append(opt.Byweekday, toRRuleWeekday[d])
	}
	return opt
}

// WithCount returns a copy of r limited to n occurrences.
func (r *Rule) WithCount(n int) *Rule {
	cp := *r
	cp.ByDay = append([]time.Weekday(nil), r.ByDay...)
	cp.Count = n
	if r.Until != nil {
		until := *r.Until
		cp.Until = &until
	}
	return &cp
}

// String renders the rule in canonical RRULE form, without prefix.
func (r *Rule) String() string {
	parts := []string{"FREQ=" + string(r.Frequency)}
	if r.Interval > 1 {
		parts = append(parts, "INTERVAL="+strconv.Itoa(r.Interval))
	}
	if len(r.ByDay) > 0 {
		codes := make([]string, len(r.ByDay))
		for i, d := range r.ByDay {
			codes[i] = weekdayCodes[d]
		}
		parts = append(parts, "BYDAY="+strings.Join(codes, ","))
	}
	if r.WeekStart != time.Monday {
		parts = append(parts, "WKST="+weekdayCodes[r.WeekStart])
	}
	if r.Count > 0 {
		parts = append(parts, "COUNT="+strconv.Itoa(r.Count))
	}
	if r.Until != nil {
		parts = append(parts, "UNTIL="+r.Until.UTC().Format("20060102T150405Z"))
	}
	return strings.Join(parts, ";")
}
