// Package materializer turns recurring rules into dated quest instances,
// at most one per rule per day.
package materializer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
)

const defaultWorkers = 4

// QuestCreator receives the materialized instances.
type QuestCreator interface {
	Create(ctx context.Context, q quest.Quest) (quest.Quest, error)
}

type Options struct {
	Workers  int
	Clock    calendar.Clock
	Location *time.Location
	Logger   *logger.Logger
}

type Materializer struct {
	rules   recurrence.Repo
	quests  QuestCreator
	workers int
	clock   calendar.Clock
	loc     *time.Location
	log     *logger.Logger

	// warned maps rule id to the UpdatedAt of the version already reported
	// as malformed.
	warned sync.Map
}

// RuleFailure is a rule whose instance could not be created.
type RuleFailure struct {
	RuleID string `json:"rule_id"`
	Name   string `json:"name"`
	Err    error  `json:"-"`
}

type Result struct {
	Date     calendar.Date `json:"date"`
	Created  int           `json:"created"`
	Skipped  int           `json:"skipped"`
	NotDue   int           `json:"not_due"`
	Failures []RuleFailure `json:"failures,omitempty"`
}

// Err combines the per-rule failures, or nil when there were none.
func (r Result) Err() error {
	var err error
	for _, f := range r.Failures {
		err = multierr.Append(err, fmt.Errorf("rule %s: %w", f.RuleID, f.Err))
	}
	return err
}

func New(rules recurrence.Repo, quests QuestCreator, opts Options) *Materializer {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Clock == nil {
		opts.Clock = calendar.RealClock{}
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Logger == nil {
		opts.Logger = logger.Nop()
	}
	return &Materializer{
		rules:   rules,
		quests:  quests,
		workers: opts.Workers,
		clock:   opts.Clock,
		loc:     opts.Location,
		log:     opts.Logger.With("component", "materializer"),
	}
}

// Today is the current date in the configured location.
func (m *Materializer) Today() calendar.Date {
	return calendar.Today(m.clock, m.loc)
}

// RunToday is Run for Today().
func (m *Materializer) RunToday(ctx context.Context) (Result, error) {
	return m.Run(ctx, m.Today())
}

type outcome int

const (
	outcomeCreated outcome = iota
	outcomeSkipped
	outcomeNotDue
	outcomeFailed
)

// Run creates today's instance for every rule due today that has not fired
// yet. Calling it again for the same day creates nothing new. A failing rule
// does not stop the others; the error is non-nil only if the rules cannot be
// listed.
func (m *Materializer) Run(ctx context.Context, today calendar.Date) (Result, error) {
	res := Result{Date: today}
	if today.IsZero() {
		return res, errors.New("materialize: date is required")
	}

	rules, err := m.rules.List(ctx)
	if err != nil {
		return res, fmt.Errorf("list recurring rules: %w", err)
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(m.workers)

	for _, r := range rules {
		r := r
		g.Go(func() error {
			out, err := m.fire(ctx, r, today)

			mu.Lock()
			defer mu.Unlock()
			switch out {
			case outcomeCreated:
				res.Created++
			case outcomeSkipped:
				res.Skipped++
			case outcomeNotDue:
				res.NotDue++
			case outcomeFailed:
				res.Failures = append(res.Failures, RuleFailure{RuleID: r.ID, Name: r.Name, Err: err})
			}
			return nil
		})
	}
	_ = g.Wait()

	m.log.Info("materializer_run",
		"date", today.String(),
		"rules", len(rules),
		"created", res.Created,
		"skipped", res.Skipped,
		"not_due", res.NotDue,
		"failed", len(res.Failures),
	)
	return res, nil
}

func (m *Materializer) fire(ctx context.Context, r recurrence.Rule, today calendar.Date) (outcome, error) {
	if recurrence.FiredOnOrAfter(r.LastFiredDate, today) {
		return outcomeSkipped, nil
	}
	m.warnMalformed(r)
	if !recurrence.OccursOn(r, today) {
		return outcomeNotDue, nil
	}

	claimed, err := m.rules.ClaimFiring(ctx, r.ID, today, r.OccurrenceCount)
	if err != nil {
		m.log.Warn("recurring_rule_claim_failed", "rule_id", r.ID, "error", err)
		return outcomeFailed, fmt.Errorf("claim: %w", err)
	}
	if !claimed {
		// Another run got here first.
		return outcomeSkipped, nil
	}

	ruleID := r.ID
	_, err = m.quests.Create(ctx, quest.Quest{
		Name:        r.Name,
		Rank:        r.Rank,
		DueDate:     today,
		Status:      model.StatusPending,
		CategoryID:  r.CategoryID,
		RecurringID: &ruleID,
	})
	if err != nil {
		if rerr := m.rules.ReleaseFiring(ctx, r.ID, today, r.LastFiredDate, r.OccurrenceCount); rerr != nil {
			m.log.Error("recurring_rule_release_failed", "rule_id", r.ID, "error", rerr)
		}
		m.log.Warn("recurring_instance_failed", "rule_id", r.ID, "error", err)
		return outcomeFailed, fmt.Errorf("create instance: %w", err)
	}

	m.log.Debug("recurring_instance_created", "rule_id", r.ID, "date", today.String())
	return outcomeCreated, nil
}

// warnMalformed logs a rule that can never be due, once per stored version
// of the rule.
func (m *Materializer) warnMalformed(r recurrence.Rule) {
	err := recurrence.Malformed(r)
	if err == nil {
		m.warned.Delete(r.ID)
		return
	}
	if prev, ok := m.warned.Load(r.ID); ok && prev.(time.Time).Equal(r.UpdatedAt) {
		return
	}
	m.warned.Store(r.ID, r.UpdatedAt)
	m.log.Warn("recurring_rule_malformed", "rule_id", r.ID, "error", err)
}
