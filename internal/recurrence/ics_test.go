package recurrence

import (
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildCalendarICS(t *testing.T) {
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	rules := []Rule{
		{
			ID:        "r-weekly",
			Name:      "Gym, legs",
			Rank:      "Rare",
			Frequency: Weekly{Days: NewWeekdaySet(time.Monday, time.Friday), Interval: 2},
			StartDate: d("2025-01-01"),
			End:       AfterCount{N: 10},
		},
		{
			ID:        "r-last-friday",
			Name:      "Review budget",
			Frequency: Monthly{Interval: 1, Mode: ByWeekday{Index: -1, Weekday: time.Friday}},
			StartDate: d("2025-01-01"),
			End:       OnDate{Date: d("2025-12-31")},
		},
		{
			ID:        "r-never",
			Name:      "Broken",
			Frequency: Weekly{Interval: 1},
			StartDate: d("2025-01-01"),
		},
		{
			ID:              "r-done",
			Name:            "Finished",
			Frequency:       Daily{Interval: 1},
			StartDate:       d("2025-01-01"),
			End:             AfterCount{N: 2},
			OccurrenceCount: 2,
		},
	}

	out, err := BuildCalendarICS(rules, now)
	require.NoError(t, err)

	cal, err := ical.NewDecoder(strings.NewReader(out)).Decode()
	require.NoError(t, err)

	events := cal.Events()
	require.Len(t, events, 2)

	byUID := map[string]ical.Event{}
	for _, ev := range events {
		uid, err := ev.Props.Text(ical.PropUID)
		require.NoError(t, err)
		byUID[uid] = ev
	}

	weekly, ok := byUID["rule-r-weekly@questlog"]
	require.True(t, ok)
	summary, err := weekly.Props.Text(ical.PropSummary)
	require.NoError(t, err)
	assert.Equal(t, "Gym, legs", summary)
	// First occurrence is Friday 2025-01-03, so weeks start on Friday.
	assert.Equal(t, "20250103", weekly.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;WKST=FR;COUNT=10;BYDAY=MO,FR", weekly.Props.Get(ical.PropRecurrenceRule).Value)

	monthly, ok := byUID["rule-r-last-friday@questlog"]
	require.True(t, ok)
	assert.Equal(t, "20250131", monthly.Props.Get(ical.PropDateTimeStart).Value)
	assert.Contains(t, monthly.Props.Get(ical.PropRecurrenceRule).Value, "BYDAY=-1FR")
	assert.Contains(t, monthly.Props.Get(ical.PropRecurrenceRule).Value, "UNTIL=20251231T000000Z")
}

func TestFirstOccurrence(t *testing.T) {
	r := Rule{Frequency: Monthly{Interval: 2, Mode: ByDate{Day: 31}}, StartDate: d("2025-02-10")}
	first, ok := FirstOccurrence(r)
	require.True(t, ok)
	assert.Equal(t, d("2025-08-31"), first)

	_, ok = FirstOccurrence(Rule{Frequency: Weekly{}, StartDate: d("2025-02-10")})
	assert.False(t, ok)
}
