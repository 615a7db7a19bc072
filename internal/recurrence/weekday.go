package recurrence

import (
	"fmt"
	"strings"
	"time"
)

// WeekdaySet is a bitmask of time.Weekday values.
type WeekdaySet uint8

// weekOrder lists weekdays Monday-first, the order users write them in.
var weekOrder = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s WeekdaySet) With(d time.Weekday) WeekdaySet {
	if d < time.Sunday || d > time.Saturday {
		return s
	}
	return s | 1<<uint(d)
}

func (s WeekdaySet) Has(d time.Weekday) bool {
	if d < time.Sunday || d > time.Saturday {
		return false
	}
	return s&(1<<uint(d)) != 0
}

func (s WeekdaySet) Empty() bool {
	return s == 0
}

// Days returns the members Monday-first.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for _, d := range weekOrder {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

// String renders the set as "Mon, Fri".
func (s WeekdaySet) String() string {
	days := s.Days()
	names := make([]string, len(days))
	for i, d := range days {
		names[i] = WeekdayName(d)
	}
	return strings.Join(names, ", ")
}

// WeekdayName is the three-letter name used on the wire.
func WeekdayName(d time.Weekday) string {
	return d.String()[:3]
}

// ParseWeekday accepts "Mon", "monday", "MO" and similar spellings.
func ParseWeekday(s string) (time.Weekday, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) >= 2 {
		for _, d := range weekOrder {
			name := strings.ToLower(d.String())
			if strings.HasPrefix(name, s) {
				return d, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown weekday %q", s)
}

// ParseWeekdays parses a comma separated list. Unrecognized names are
// skipped and reported in the error; the returned set holds the rest.
func ParseWeekdays(s string) (WeekdaySet, error) {
	var (
		set WeekdaySet
		bad []string
	)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		d, err := ParseWeekday(part)
		if err != nil {
			bad = append(bad, part)
			continue
		}
		set = set.With(d)
	}
	if len(bad) > 0 {
		return set, fmt.Errorf("unknown weekdays: %s", strings.Join(bad, ", "))
	}
	return set, nil
}
