package recurrence

import (
	"fmt"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
)

// OccursOn reports whether r is due on today. It reads only r and today and
// never mutates r; rules it cannot resolve to a concrete day are not due.
func OccursOn(r Rule, today calendar.Date) bool {
	if today.IsZero() || ended(r, today) {
		return false
	}

	switch f := r.Frequency.(type) {
	case Daily:
		if r.StartDate.IsZero() {
			return false
		}
		return onCycle(calendar.DaysBetween(r.StartDate, today), f.Interval)

	case Weekdays:
		wd := today.Weekday()
		return wd >= time.Monday && wd <= time.Friday

	case Weekly:
		if r.StartDate.IsZero() || !f.Days.Has(today.Weekday()) {
			return false
		}
		return onCycle(calendar.WeeksBetween(r.StartDate, today), f.Interval)

	case Monthly:
		if r.StartDate.IsZero() {
			return false
		}
		if !onCycle(calendar.MonthsBetween(r.StartDate, today), f.Interval) {
			return false
		}
		return monthlyDay(f.Mode, today) == today.Day

	case Annual:
		if r.StartDate.IsZero() {
			return false
		}
		if today.Month != r.StartDate.Month || today.Day != r.StartDate.Day {
			return false
		}
		return onCycle(calendar.YearsBetween(r.StartDate, today), f.Interval)

	default:
		return false
	}
}

func ended(r Rule, today calendar.Date) bool {
	switch e := r.End.(type) {
	case OnDate:
		return !e.Date.IsZero() && today.After(e.Date)
	case AfterCount:
		return r.OccurrenceCount >= max(e.N, 0)
	default:
		return false
	}
}

// monthlyDay is the day-of-month the mode selects in today's month, or 0.
func monthlyDay(mode MonthlyMode, today calendar.Date) int {
	switch m := mode.(type) {
	case ByDate:
		// No rollover: a day past the end of a short month simply never matches.
		if m.Day < 1 || m.Day > 31 {
			return 0
		}
		return m.Day
	case ByWeekday:
		if m.Index != -1 && (m.Index < 1 || m.Index > 5) {
			return 0
		}
		day, ok := calendar.NthWeekdayOfMonth(today.Year, today.Month, m.Weekday, m.Index)
		if !ok {
			return 0
		}
		return day
	default:
		return 0
	}
}

// onCycle reports whether n units since the start lands on the interval.
// Intervals below 1 count as 1.
func onCycle(n, interval int) bool {
	return n >= 0 && n%max(interval, 1) == 0
}

// Malformed explains why r can never be due, or returns nil. It inspects the
// decoded rule as stored, so defaults applied by Spec.Decode do not hide
// anything.
func Malformed(r Rule) error {
	problem := func(format string, args ...any) error {
		return fmt.Errorf("%w: %s", ErrInvalidRule, fmt.Sprintf(format, args...))
	}

	switch f := r.Frequency.(type) {
	case nil:
		return problem("no frequency")
	case Unknown:
		return problem("unknown frequency %q", f.Name)
	case Weekdays:
	case Weekly:
		if f.Days.Empty() {
			return problem("weekly rule has no days")
		}
	case Monthly:
		switch m := f.Mode.(type) {
		case ByDate:
			if m.Day < 1 || m.Day > 31 {
				return problem("monthly day %d out of range 1..31", m.Day)
			}
		case ByWeekday:
			if m.Index != -1 && (m.Index < 1 || m.Index > 5) {
				return problem("monthly week index %d not in {1..5, -1}", m.Index)
			}
			if m.Weekday < time.Sunday || m.Weekday > time.Saturday {
				return problem("monthly weekday out of range")
			}
		default:
			return problem("monthly rule has no mode")
		}
	}

	if _, ok := r.Frequency.(Weekdays); !ok && r.StartDate.IsZero() {
		return problem("no start date")
	}
	if e, ok := r.End.(AfterCount); ok && e.N < 1 {
		return problem("end count %d is below 1", e.N)
	}
	return nil
}
