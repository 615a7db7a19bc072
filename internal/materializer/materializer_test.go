package materializer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
	"github.com/Magget135/Minimal-Quest-Log/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func d(s string) calendar.Date { return calendar.MustParse(s) }

// flakyQuests fails Create for the named quests.
type flakyQuests struct {
	quest.Repo
	mu   sync.Mutex
	fail map[string]bool
}

func (f *flakyQuests) Create(ctx context.Context, q quest.Quest) (quest.Quest, error) {
	f.mu.Lock()
	fail := f.fail[q.Name]
	f.mu.Unlock()
	if fail {
		return quest.Quest{}, errors.New("disk full")
	}
	return f.Repo.Create(ctx, q)
}

func seed(t *testing.T, rules recurrence.Repo, rs ...recurrence.Rule) []recurrence.Rule {
	t.Helper()
	var out []recurrence.Rule
	for _, r := range rs {
		created, err := rules.Create(context.Background(), r)
		require.NoError(t, err)
		out = append(out, created)
	}
	return out
}

func instancesOn(t *testing.T, quests quest.Repo, ruleID string, day calendar.Date) int {
	t.Helper()
	list, err := quests.List(context.Background())
	require.NoError(t, err)
	n := 0
	for _, q := range list {
		if q.RecurringID != nil && *q.RecurringID == ruleID && q.DueDate == day {
			n++
		}
	}
	return n
}

func TestRun_CreatesDueInstancesOnce(t *testing.T) {
	ctx := context.Background()
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	cat := "chores"

	rs := seed(t, rules,
		recurrence.Rule{Name: "Dishes", Rank: model.RankRare, CategoryID: &cat, Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")},
		recurrence.Rule{Name: "Trash", Frequency: recurrence.Weekly{Days: recurrence.NewWeekdaySet(time.Tuesday), Interval: 1}, StartDate: d("2025-03-01")},
	)
	m := New(rules, quests, Options{})

	// 2025-03-10 is a Monday.
	res, err := m.Run(ctx, d("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	assert.Equal(t, 1, res.NotDue)
	assert.NoError(t, res.Err())

	list, err := quests.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	q := list[0]
	assert.Equal(t, "Dishes", q.Name)
	assert.Equal(t, model.RankRare, q.Rank)
	assert.Equal(t, d("2025-03-10"), q.DueDate)
	assert.Equal(t, model.StatusPending, q.Status)
	assert.Equal(t, "chores", *q.CategoryID)
	assert.Equal(t, rs[0].ID, *q.RecurringID)

	for i := 0; i < 3; i++ {
		res, err = m.Run(ctx, d("2025-03-10"))
		require.NoError(t, err)
		assert.Zero(t, res.Created)
		assert.Equal(t, 1, res.Skipped)
	}
	assert.Equal(t, 1, instancesOn(t, quests, rs[0].ID, d("2025-03-10")))

	got, err := rules.Get(ctx, rs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.OccurrenceCount)
	assert.Equal(t, d("2025-03-10"), *got.LastFiredDate)
}

func TestRun_AfterCountStopsAcrossDays(t *testing.T) {
	ctx := context.Background()
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	rs := seed(t, rules, recurrence.Rule{
		Name: "Course", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-01-01"), End: recurrence.AfterCount{N: 2},
	})
	m := New(rules, quests, Options{})

	for day := d("2025-01-01"); day.Before(d("2025-01-10")); day = day.AddDays(1) {
		_, err := m.Run(ctx, day)
		require.NoError(t, err)
		_, err = m.Run(ctx, day)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, instancesOn(t, quests, rs[0].ID, d("2025-01-01")))
	assert.Equal(t, 1, instancesOn(t, quests, rs[0].ID, d("2025-01-02")))
	list, err := quests.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	got, err := rules.Get(ctx, rs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.OccurrenceCount)
}

func TestRun_ConcurrentCallersCreateOneInstance(t *testing.T) {
	for name, setup := range map[string]func(t *testing.T) (recurrence.Repo, quest.Repo){
		"memory": func(t *testing.T) (recurrence.Repo, quest.Repo) {
			return recurrence.NewMemoryRepo(), quest.NewMemoryRepo()
		},
		"gorm": func(t *testing.T) (recurrence.Repo, quest.Repo) {
			db := testutil.DB(t)
			rules, err := recurrence.NewGormRepo(db)
			require.NoError(t, err)
			quests, err := quest.NewGormRepo(db)
			require.NoError(t, err)
			return rules, quests
		},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			rules, quests := setup(t)
			rs := seed(t, rules,
				recurrence.Rule{Name: "Meditate", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")},
				recurrence.Rule{Name: "Read", Frequency: recurrence.Weekdays{}, StartDate: d("2025-03-01"), End: recurrence.AfterCount{N: 1}},
			)
			m := New(rules, quests, Options{Workers: 2})

			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := m.Run(ctx, d("2025-03-10"))
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			for _, r := range rs {
				assert.Equal(t, 1, instancesOn(t, quests, r.ID, d("2025-03-10")), r.Name)
				got, err := rules.Get(ctx, r.ID)
				require.NoError(t, err)
				assert.Equal(t, 1, got.OccurrenceCount, r.Name)
			}
		})
	}
}

func TestRun_FailureIsPerRuleAndReleasesClaim(t *testing.T) {
	ctx := context.Background()
	rules := recurrence.NewMemoryRepo()
	quests := &flakyQuests{Repo: quest.NewMemoryRepo(), fail: map[string]bool{"Broken": true}}
	rs := seed(t, rules,
		recurrence.Rule{Name: "Broken", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")},
		recurrence.Rule{Name: "Fine", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")},
	)
	m := New(rules, quests, Options{})

	res, err := m.Run(ctx, d("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, rs[0].ID, res.Failures[0].RuleID)
	assert.ErrorContains(t, res.Err(), "disk full")

	got, err := rules.Get(ctx, rs[0].ID)
	require.NoError(t, err)
	assert.Zero(t, got.OccurrenceCount)
	assert.Nil(t, got.LastFiredDate)

	quests.mu.Lock()
	quests.fail = nil
	quests.mu.Unlock()

	res, err = m.Run(ctx, d("2025-03-10"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Created, "released rule fires on retry")
	assert.Equal(t, 1, res.Skipped)
}

func TestRun_MalformedRuleIsNotDue(t *testing.T) {
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	seed(t, rules, recurrence.Rule{Name: "Nothing", Frequency: recurrence.Weekly{Interval: 1}, StartDate: d("2025-03-01")})

	res, err := New(rules, quests, Options{}).Run(context.Background(), d("2025-03-10"))
	require.NoError(t, err)
	assert.Zero(t, res.Created)
	assert.Equal(t, 1, res.NotDue)
}

func TestRun_WarnsOncePerMalformedRuleVersion(t *testing.T) {
	ctx := context.Background()
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	rs := seed(t, rules,
		recurrence.Rule{Name: "Rent", Frequency: recurrence.Monthly{Interval: 1, Mode: recurrence.ByDate{}}, StartDate: d("2025-03-10")},
		recurrence.Rule{Name: "Journal", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")},
	)

	core, logs := observer.New(zapcore.WarnLevel)
	m := New(rules, quests, Options{Logger: logger.Wrap(zap.New(core))})

	for _, day := range []string{"2025-03-10", "2025-03-10", "2025-03-11"} {
		_, err := m.Run(ctx, d(day))
		require.NoError(t, err)
	}
	warned := logs.FilterMessage("recurring_rule_malformed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, rs[0].ID, warned[0].ContextMap()["rule_id"])
	assert.Zero(t, instancesOn(t, quests, rs[0].ID, d("2025-03-10")))

	// An edit that leaves the rule malformed is reported again.
	time.Sleep(time.Millisecond)
	name := "Rent due"
	_, err := rules.Update(ctx, rs[0].ID, recurrence.Patch{Name: &name})
	require.NoError(t, err)
	_, err = m.Run(ctx, d("2025-03-12"))
	require.NoError(t, err)
	assert.Equal(t, 2, logs.FilterMessage("recurring_rule_malformed").Len())
}

func TestRunToday_UsesClockAndLocation(t *testing.T) {
	ctx := context.Background()
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	rs := seed(t, rules, recurrence.Rule{Name: "Journal", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")})

	loc := time.FixedZone("UTC-5", -5*3600)
	clock := calendar.NewFakeClock(time.Date(2025, 3, 11, 2, 0, 0, 0, time.UTC))
	m := New(rules, quests, Options{Clock: clock, Location: loc})

	res, err := m.RunToday(ctx)
	require.NoError(t, err)
	assert.Equal(t, d("2025-03-10"), res.Date)
	assert.Equal(t, 1, instancesOn(t, quests, rs[0].ID, d("2025-03-10")))
}

func TestScheduler_RunsOnStartupAndStops(t *testing.T) {
	rules := recurrence.NewMemoryRepo()
	quests := quest.NewMemoryRepo()
	rs := seed(t, rules, recurrence.Rule{Name: "Water", Frequency: recurrence.Daily{Interval: 1}, StartDate: d("2025-03-01")})

	clock := calendar.NewFakeClock(time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC))
	s := NewScheduler(New(rules, quests, Options{Clock: clock}), 10*time.Millisecond, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return instancesOn(t, quests, rs[0].ID, d("2025-03-10")) == 1
	}, time.Second, 5*time.Millisecond)

	clock.Advance(24 * time.Hour)
	require.Eventually(t, func() bool {
		return instancesOn(t, quests, rs[0].ID, d("2025-03-11")) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, 1, instancesOn(t, quests, rs[0].ID, d("2025-03-10")))
}
