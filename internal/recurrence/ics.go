package recurrence

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/teambition/rrule-go"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
)

const icsDateLayout = "20060102"

// firstOccurrenceHorizon bounds the search for a rule's first date. Eight
// years covers a Feb 29 annual rule.
const firstOccurrenceHorizon = 8 * 366

var rruleWeekdays = map[time.Weekday]rrule.Weekday{
	time.Monday:    rrule.MO,
	time.Tuesday:   rrule.TU,
	time.Wednesday: rrule.WE,
	time.Thursday:  rrule.TH,
	time.Friday:    rrule.FR,
	time.Saturday:  rrule.SA,
	time.Sunday:    rrule.SU,
}

// BuildCalendarICS renders every rule that can still occur as an all-day
// VEVENT with an RRULE. Exhausted rules and rules that can never occur are
// left out.
func BuildCalendarICS(rules []Rule, now time.Time) (string, error) {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, "-//Quest Log//Recurring Quests//EN")
	cal.Props.SetText("CALSCALE", "GREGORIAN")
	cal.Props.SetText("METHOD", "PUBLISH")

	for _, r := range rules {
		ev, ok := ruleEvent(r, now)
		if !ok {
			continue
		}
		cal.Children = append(cal.Children, ev.Component)
	}

	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", fmt.Errorf("encode calendar: %w", err)
	}
	return buf.String(), nil
}

func ruleEvent(r Rule, now time.Time) (*ical.Event, bool) {
	if exhausted(r, calendar.FromTime(now.UTC())) {
		return nil, false
	}
	first, ok := FirstOccurrence(r)
	if !ok {
		return nil, false
	}
	opt, ok := RRuleOption(r, first)
	if !ok {
		return nil, false
	}

	title := strings.TrimSpace(r.Name)
	if title == "" {
		title = "Recurring Quest"
	}
	uid := fmt.Sprintf("rule-%s@questlog", strings.TrimSpace(r.ID))
	if strings.TrimSpace(r.ID) == "" {
		uid = fmt.Sprintf("rule-export-%d@questlog", now.UnixNano())
	}

	ev := ical.NewEvent()
	ev.Props.SetText(ical.PropUID, uid)
	ev.Props.SetDateTime(ical.PropDateTimeStamp, now.UTC())
	ev.Props.SetText(ical.PropSummary, title)
	if r.Rank != "" {
		ev.Props.SetText(ical.PropCategories, string(r.Rank))
	}
	ev.Props.Add(dateProp(ical.PropDateTimeStart, first))
	ev.Props.Add(dateProp(ical.PropDateTimeEnd, first.AddDays(1)))

	rr := ical.NewProp(ical.PropRecurrenceRule)
	rr.Value = opt.RRuleString()
	ev.Props.Add(rr)

	return ev, true
}

func dateProp(name string, d calendar.Date) *ical.Prop {
	p := ical.NewProp(name)
	p.Params.Set("VALUE", "DATE")
	p.Value = d.Time().Format(icsDateLayout)
	return p
}

// FirstOccurrence is the earliest date on or after the start date the rule
// occurs on, ignoring how many times it has already fired.
func FirstOccurrence(r Rule) (calendar.Date, bool) {
	if r.StartDate.IsZero() {
		return calendar.Date{}, false
	}
	probe := r
	probe.OccurrenceCount = 0
	for i := 0; i < firstOccurrenceHorizon; i++ {
		d := r.StartDate.AddDays(i)
		if OccursOn(probe, d) {
			return d, true
		}
		if e, ok := r.End.(OnDate); ok && d.After(e.Date) {
			break
		}
	}
	return calendar.Date{}, false
}

// RRuleOption expresses r as an RFC 5545 recurrence anchored at dtstart,
// which must be an occurrence of r. Week boundaries start on dtstart's
// weekday so interval weeks count from the start date as OccursOn does.
func RRuleOption(r Rule, dtstart calendar.Date) (rrule.ROption, bool) {
	opt := rrule.ROption{
		Dtstart: dtstart.Time(),
		Wkst:    rruleWeekdays[dtstart.Weekday()],
	}

	switch f := r.Frequency.(type) {
	case Daily:
		opt.Freq, opt.Interval = rrule.DAILY, max(f.Interval, 1)
	case Weekdays:
		opt.Freq, opt.Interval = rrule.WEEKLY, 1
		opt.Byweekday = []rrule.Weekday{rrule.MO, rrule.TU, rrule.WE, rrule.TH, rrule.FR}
	case Weekly:
		if f.Days.Empty() {
			return rrule.ROption{}, false
		}
		opt.Freq, opt.Interval = rrule.WEEKLY, max(f.Interval, 1)
		for _, d := range f.Days.Days() {
			opt.Byweekday = append(opt.Byweekday, rruleWeekdays[d])
		}
	case Monthly:
		opt.Freq, opt.Interval = rrule.MONTHLY, max(f.Interval, 1)
		switch m := f.Mode.(type) {
		case ByDate:
			opt.Bymonthday = []int{m.Day}
		case ByWeekday:
			wd, ok := rruleWeekdays[m.Weekday]
			if !ok {
				return rrule.ROption{}, false
			}
			idx := m.Index
			// Clamping makes a 5th weekday the same as the last one.
			if idx == 5 {
				idx = -1
			}
			opt.Byweekday = []rrule.Weekday{wd.Nth(idx)}
		default:
			return rrule.ROption{}, false
		}
	case Annual:
		opt.Freq, opt.Interval = rrule.YEARLY, max(f.Interval, 1)
		opt.Bymonth = []int{int(r.StartDate.Month)}
		opt.Bymonthday = []int{r.StartDate.Day}
	default:
		return rrule.ROption{}, false
	}

	switch e := r.End.(type) {
	case OnDate:
		opt.Until = e.Date.Time()
	case AfterCount:
		// dtstart is the first occurrence, so COUNT covers the whole series.
		if e.N <= 0 {
			return rrule.ROption{}, false
		}
		opt.Count = e.N
	}
	return opt, true
}

func exhausted(r Rule, today calendar.Date) bool {
	switch e := r.End.(type) {
	case OnDate:
		return today.After(e.Date)
	case AfterCount:
		return r.OccurrenceCount >= e.N
	default:
		return false
	}
}
