package recurrence

import (
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

// Rule is a template that materializes one quest on every date it occurs on.
type Rule struct {
	ID         string
	Name       string
	Rank       model.Rank
	CategoryID *string

	Frequency Frequency
	StartDate calendar.Date
	End       EndCondition

	// Firing bookkeeping, owned by the materializer.
	OccurrenceCount int
	LastFiredDate   *calendar.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Kind names a frequency family on the wire.
type Kind string

const (
	KindDaily    Kind = "Daily"
	KindWeekdays Kind = "Weekdays"
	KindWeekly   Kind = "Weekly"
	KindMonthly  Kind = "Monthly"
	KindAnnual   Kind = "Annual"
)

// Frequency is one of Daily, Weekdays, Weekly, Monthly, Annual or Unknown.
type Frequency interface {
	Kind() Kind
	isFrequency()
}

// Daily repeats every Interval days from the start date.
type Daily struct {
	Interval int
}

// Weekdays repeats Monday through Friday.
type Weekdays struct{}

// Weekly repeats on Days, every Interval weeks counted from the start date.
type Weekly struct {
	Days     WeekdaySet
	Interval int
}

// Monthly repeats every Interval calendar months, on the day chosen by Mode.
type Monthly struct {
	Interval int
	Mode     MonthlyMode
}

// Annual repeats on the start date's month and day, every Interval years.
type Annual struct {
	Interval int
}

// Unknown holds a frequency name that could not be decoded. It never occurs.
type Unknown struct {
	Name string
}

func (Daily) Kind() Kind    { return KindDaily }
func (Weekdays) Kind() Kind { return KindWeekdays }
func (Weekly) Kind() Kind   { return KindWeekly }
func (Monthly) Kind() Kind  { return KindMonthly }
func (Annual) Kind() Kind   { return KindAnnual }
func (u Unknown) Kind() Kind {
	return Kind(u.Name)
}

func (Daily) isFrequency()    {}
func (Weekdays) isFrequency() {}
func (Weekly) isFrequency()   {}
func (Monthly) isFrequency()  {}
func (Annual) isFrequency()   {}
func (Unknown) isFrequency()  {}

// MonthlyMode is ByDate or ByWeekday.
type MonthlyMode interface {
	isMonthlyMode()
}

// ByDate fires on a fixed day of the month. Months without that day are skipped.
type ByDate struct {
	Day int
}

// ByWeekday fires on the Index-th Weekday of the month; Index -1 is the last one.
type ByWeekday struct {
	Index   int
	Weekday time.Weekday
}

func (ByDate) isMonthlyMode()    {}
func (ByWeekday) isMonthlyMode() {}

// EndCondition is Never, OnDate or AfterCount.
type EndCondition interface {
	isEndCondition()
}

type Never struct{}

// OnDate stops the rule after Date; Date itself still counts.
type OnDate struct {
	Date calendar.Date
}

// AfterCount stops the rule once it has fired N times.
type AfterCount struct {
	N int
}

func (Never) isEndCondition()      {}
func (OnDate) isEndCondition()     {}
func (AfterCount) isEndCondition() {}
