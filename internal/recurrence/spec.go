package recurrence

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
)

var ErrInvalidRule = errors.New("invalid recurrence rule")

const (
	MonthlyByDate    = "ByDate"
	MonthlyByWeekday = "ByWeekday"

	EndNever      = "Never"
	EndOnDate     = "OnDate"
	EndAfterCount = "AfterCount"
)

// Spec is the flat form of a schedule, used on the wire and in storage.
// Fields that do not apply to Frequency are ignored.
type Spec struct {
	Frequency        string         `json:"frequency"`
	Interval         int            `json:"interval,omitempty"`
	Days             string         `json:"days,omitempty"`
	MonthlyMode      string         `json:"monthly_mode,omitempty"`
	MonthlyDay       int            `json:"monthly_day,omitempty"`
	MonthlyWeekIndex int            `json:"monthly_week_index,omitempty"`
	MonthlyWeekday   string         `json:"monthly_weekday,omitempty"`
	StartDate        calendar.Date  `json:"start_date"`
	EndType          string         `json:"end_type,omitempty"`
	EndDate          *calendar.Date `json:"end_date,omitempty"`
	EndCount         int            `json:"end_count,omitempty"`
}

// Decode converts s to its variant form. It always returns usable variants:
// anything malformed decodes to a shape that never occurs, and the problems
// are reported in err (wrapping ErrInvalidRule) so API callers can reject
// the input while stored rules keep loading.
func (s Spec) Decode() (Frequency, EndCondition, error) {
	var problems []string

	freq := s.decodeFrequency(&problems)
	end := s.decodeEnd(&problems)

	if len(problems) > 0 {
		return freq, end, fmt.Errorf("%w: %s", ErrInvalidRule, strings.Join(problems, "; "))
	}
	return freq, end, nil
}

func (s Spec) decodeFrequency(problems *[]string) Frequency {
	if s.Interval < 0 {
		*problems = append(*problems, "interval must be positive")
	}

	switch Kind(normalizeWord(s.Frequency)) {
	case KindDaily:
		return Daily{Interval: s.Interval}

	case KindWeekdays:
		return Weekdays{}

	case KindWeekly:
		days, err := ParseWeekdays(s.Days)
		if err != nil {
			*problems = append(*problems, err.Error())
		}
		if days.Empty() {
			*problems = append(*problems, "weekly rule needs at least one day")
		}
		return Weekly{Days: days, Interval: s.Interval}

	case KindMonthly:
		return Monthly{Interval: s.Interval, Mode: s.decodeMonthlyMode(problems)}

	case KindAnnual:
		return Annual{Interval: s.Interval}

	default:
		*problems = append(*problems, fmt.Sprintf("unknown frequency %q", s.Frequency))
		return Unknown{Name: s.Frequency}
	}
}

func (s Spec) decodeMonthlyMode(problems *[]string) MonthlyMode {
	switch normalizeWord(s.MonthlyMode) {
	case "", MonthlyByDate:
		day := s.MonthlyDay
		if day == 0 {
			day = s.StartDate.Day
		}
		if day < 1 || day > 31 {
			*problems = append(*problems, fmt.Sprintf("monthly_day %d out of range 1..31", day))
		}
		return ByDate{Day: day}

	case MonthlyByWeekday:
		idx := s.MonthlyWeekIndex
		if idx != -1 && (idx < 1 || idx > 5) {
			*problems = append(*problems, fmt.Sprintf("monthly_week_index %d not in {1..5, -1}", idx))
		}
		wd, err := ParseWeekday(s.MonthlyWeekday)
		if err != nil {
			*problems = append(*problems, "monthly_weekday: "+err.Error())
			// Out of range so NthWeekdayOfMonth refuses it.
			wd = -1
		}
		return ByWeekday{Index: idx, Weekday: wd}

	default:
		*problems = append(*problems, fmt.Sprintf("unknown monthly_mode %q", s.MonthlyMode))
		return ByDate{}
	}
}

func (s Spec) decodeEnd(problems *[]string) EndCondition {
	switch normalizeWord(s.EndType) {
	case "", EndNever:
		return Never{}

	case EndOnDate:
		if s.EndDate == nil || s.EndDate.IsZero() {
			*problems = append(*problems, "end_date is required for OnDate")
			return Never{}
		}
		return OnDate{Date: *s.EndDate}

	case EndAfterCount:
		if s.EndCount < 1 {
			*problems = append(*problems, "end_count must be at least 1")
		}
		return AfterCount{N: s.EndCount}

	default:
		*problems = append(*problems, fmt.Sprintf("unknown end_type %q", s.EndType))
		return Never{}
	}
}

// SpecOf flattens the schedule of r.
func SpecOf(r Rule) Spec {
	s := Spec{StartDate: r.StartDate, EndType: EndNever}

	switch f := r.Frequency.(type) {
	case Daily:
		s.Frequency, s.Interval = string(KindDaily), f.Interval
	case Weekdays:
		s.Frequency = string(KindWeekdays)
	case Weekly:
		s.Frequency, s.Interval, s.Days = string(KindWeekly), f.Interval, f.Days.String()
	case Monthly:
		s.Frequency, s.Interval = string(KindMonthly), f.Interval
		switch m := f.Mode.(type) {
		case ByDate:
			s.MonthlyMode, s.MonthlyDay = MonthlyByDate, m.Day
		case ByWeekday:
			s.MonthlyMode, s.MonthlyWeekIndex = MonthlyByWeekday, m.Index
			if m.Weekday >= 0 && m.Weekday <= 6 {
				s.MonthlyWeekday = WeekdayName(m.Weekday)
			}
		}
	case Annual:
		s.Frequency, s.Interval = string(KindAnnual), f.Interval
	case Unknown:
		s.Frequency = f.Name
	}

	switch e := r.End.(type) {
	case OnDate:
		s.EndType, s.EndDate = EndOnDate, calendar.Ptr(e.Date)
	case AfterCount:
		s.EndType, s.EndCount = EndAfterCount, e.N
	}
	return s
}

// normalizeWord maps "weekly", "WEEKLY" and "on_date" style spellings onto
// the canonical names.
func normalizeWord(s string) string {
	s = strings.TrimSpace(s)
	key := strings.ToLower(strings.NewReplacer("_", "", "-", "", " ", "").Replace(s))
	for _, name := range []string{
		string(KindDaily), string(KindWeekdays), string(KindWeekly), string(KindMonthly), string(KindAnnual),
		MonthlyByDate, MonthlyByWeekday, EndNever, EndOnDate, EndAfterCount,
	} {
		if strings.ToLower(name) == key {
			return name
		}
	}
	if key == "yearly" {
		return string(KindAnnual)
	}
	return s
}
