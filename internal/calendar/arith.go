package calendar

import "time"

const secondsPerDay = 24 * 60 * 60

// DaysBetween returns the signed number of whole days from a to b.
func DaysBetween(a, b Date) int {
	return int((b.Time().Unix() - a.Time().Unix()) / secondsPerDay)
}

// WeeksBetween is whole-week floor division of DaysBetween, so a date six
// days before a is week -1, not week 0.
func WeeksBetween(a, b Date) int {
	return floorDiv(DaysBetween(a, b), 7)
}

// MonthsBetween counts calendar months from a to b, ignoring day-of-month.
func MonthsBetween(a, b Date) int {
	return (b.Year-a.Year)*12 + int(b.Month) - int(a.Month)
}

func YearsBetween(a, b Date) int {
	return b.Year - a.Year
}

func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// NthWeekdayOfMonth returns the day-of-month of the n-th weekday in the
// given month. n == -1 selects the last one; n larger than the number of
// matches clamps to the last. Any other n (zero or below -1) reports !ok.
func NthWeekdayOfMonth(year int, month time.Month, weekday time.Weekday, n int) (int, bool) {
	if n == 0 || n < -1 || weekday < time.Sunday || weekday > time.Saturday {
		return 0, false
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday()
	firstMatch := 1 + (int(weekday)-int(first)+7)%7
	last := DaysIn(year, month)

	matches := make([]int, 0, 5)
	for day := firstMatch; day <= last; day += 7 {
		matches = append(matches, day)
	}

	if n == -1 || n > len(matches) {
		return matches[len(matches)-1], true
	}
	return matches[n-1], true
}

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
