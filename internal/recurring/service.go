// Package recurring exposes recurring rules over HTTP and links them to quests.
package recurring

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/materializer"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
)

// View is the wire form of a rule.
type View struct {
	ID         string     `json:"id"`
	TaskName   string     `json:"task_name"`
	Rank       model.Rank `json:"quest_rank"`
	CategoryID *string    `json:"category_id"`
	recurrence.Spec
	OccurrenceCount int            `json:"occurrence_count"`
	LastFiredDate   *calendar.Date `json:"last_fired_date"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

func ViewOf(r recurrence.Rule) View {
	return View{
		ID:              r.ID,
		TaskName:        r.Name,
		Rank:            r.Rank,
		CategoryID:      r.CategoryID,
		Spec:            recurrence.SpecOf(r),
		OccurrenceCount: r.OccurrenceCount,
		LastFiredDate:   r.LastFiredDate,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

// UpsertInput creates a rule, or updates the rule named by ID.
type UpsertInput struct {
	ID         string     `json:"id,omitempty"`
	TaskName   string     `json:"task_name"`
	Rank       model.Rank `json:"quest_rank"`
	CategoryID *string    `json:"category_id"`
	recurrence.Spec
}

// LinkInput is the schedule for a quest's rule. Name, rank and category come
// from the quest.
type LinkInput struct {
	recurrence.Spec
}

type Service struct {
	rules  recurrence.Repo
	quests quest.Repo
	mat    *materializer.Materializer
	clock  calendar.Clock
	log    *logger.Logger
}

func NewService(rules recurrence.Repo, quests quest.Repo, mat *materializer.Materializer, clock calendar.Clock, log *logger.Logger) *Service {
	if clock == nil {
		clock = calendar.RealClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{rules: rules, quests: quests, mat: mat, clock: clock, log: log.With("service", "recurring")}
}

func (s *Service) List(ctx context.Context) ([]View, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]View, 0, len(rules))
	for _, r := range rules {
		out = append(out, ViewOf(r))
	}
	return out, nil
}

func (s *Service) Upsert(ctx context.Context, in UpsertInput) (View, error) {
	name := strings.TrimSpace(in.TaskName)
	if name == "" {
		return View{}, fmt.Errorf("%w: task_name is required", recurrence.ErrInvalidRule)
	}
	rank, err := parseRank(in.Rank)
	if err != nil {
		return View{}, err
	}
	if in.StartDate.IsZero() {
		in.StartDate = s.mat.Today()
	}
	freq, end, err := in.Spec.Decode()
	if err != nil {
		return View{}, err
	}

	if in.ID == "" {
		r, err := s.rules.Create(ctx, recurrence.Rule{
			Name:       name,
			Rank:       rank,
			CategoryID: blankToNil(in.CategoryID),
			Frequency:  freq,
			StartDate:  in.StartDate,
			End:        end,
		})
		if err != nil {
			return View{}, err
		}
		s.log.Info("recurring_rule_created", "rule_id", r.ID, "frequency", string(freq.Kind()))
		return ViewOf(r), nil
	}

	cat := model.Null[string]()
	if id := blankToNil(in.CategoryID); id != nil {
		cat = model.Some(*id)
	}
	r, err := s.rules.Update(ctx, in.ID, recurrence.Patch{
		Name:       &name,
		Rank:       &rank,
		CategoryID: &cat,
		Frequency:  freq,
		StartDate:  &in.StartDate,
		End:        end,
	})
	if err != nil {
		return View{}, err
	}
	return ViewOf(r), nil
}

// Delete removes the rule and clears the back-reference on its quests. The
// quests themselves stay.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.rules.Delete(ctx, id); err != nil {
		return err
	}
	n, err := s.quests.ClearRecurring(ctx, id)
	if err != nil {
		return fmt.Errorf("unlink quests of rule %s: %w", id, err)
	}
	s.log.Info("recurring_rule_deleted", "rule_id", id, "unlinked_quests", n)
	return nil
}

// Run materializes today's instances.
func (s *Service) Run(ctx context.Context) (materializer.Result, error) {
	return s.mat.RunToday(ctx)
}

func (s *Service) CalendarICS(ctx context.Context) (string, error) {
	rules, err := s.rules.List(ctx)
	if err != nil {
		return "", err
	}
	return recurrence.BuildCalendarICS(rules, s.clock.Now())
}

// Linked returns the rule linked to the quest, or nil.
func (s *Service) Linked(ctx context.Context, questID string) (*View, error) {
	q, err := s.quests.Get(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.RecurringID == nil {
		return nil, nil
	}
	r, err := s.rules.Get(ctx, *q.RecurringID)
	if errors.Is(err, recurrence.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	v := ViewOf(r)
	return &v, nil
}

// Link makes the quest recurring. A rule already linked to the quest is
// updated in place; otherwise a new rule is created and counted as having
// fired on the quest's due date, so the materializer does not add a second
// quest for that day.
func (s *Service) Link(ctx context.Context, questID string, in LinkInput) (View, error) {
	q, err := s.quests.Get(ctx, questID)
	if err != nil {
		return View{}, err
	}
	if in.StartDate.IsZero() {
		in.StartDate = q.DueDate
	}
	freq, end, err := in.Spec.Decode()
	if err != nil {
		return View{}, err
	}

	cat := model.Null[string]()
	if q.CategoryID != nil {
		cat = model.Some(*q.CategoryID)
	}

	if q.RecurringID != nil {
		r, err := s.rules.Update(ctx, *q.RecurringID, recurrence.Patch{
			Name:       &q.Name,
			Rank:       &q.Rank,
			CategoryID: &cat,
			Frequency:  freq,
			StartDate:  &in.StartDate,
			End:        end,
		})
		if err == nil {
			return ViewOf(r), nil
		}
		if !errors.Is(err, recurrence.ErrNotFound) {
			return View{}, err
		}
	}

	r := recurrence.Rule{
		Name:          q.Name,
		Rank:          q.Rank,
		CategoryID:    q.CategoryID,
		Frequency:     freq,
		StartDate:     in.StartDate,
		End:           end,
		LastFiredDate: calendar.Ptr(q.DueDate),
	}
	if recurrence.OccursOn(r, q.DueDate) {
		r.OccurrenceCount = 1
	}
	r, err = s.rules.Create(ctx, r)
	if err != nil {
		return View{}, err
	}

	if _, err := s.quests.Update(ctx, questID, quest.Patch{RecurringID: model.Some(r.ID)}); err != nil {
		// Do not leave an orphan rule behind.
		if derr := s.rules.Delete(ctx, r.ID); derr != nil {
			s.log.Error("recurring_rule_orphaned", "rule_id", r.ID, "error", derr)
		}
		return View{}, fmt.Errorf("link quest %s: %w", questID, err)
	}
	s.log.Info("recurring_rule_linked", "rule_id", r.ID, "quest_id", questID)
	return ViewOf(r), nil
}

// Unlink detaches the quest from its rule. With deleteRule the rule is
// deleted as well, which unlinks every other quest created from it.
func (s *Service) Unlink(ctx context.Context, questID string, deleteRule bool) error {
	q, err := s.quests.Get(ctx, questID)
	if err != nil {
		return err
	}
	if q.RecurringID == nil {
		return nil
	}
	if deleteRule {
		err := s.Delete(ctx, *q.RecurringID)
		if err == nil || !errors.Is(err, recurrence.ErrNotFound) {
			return err
		}
	}
	_, err = s.quests.Update(ctx, questID, quest.Patch{RecurringID: model.Null[string]()})
	return err
}

func parseRank(r model.Rank) (model.Rank, error) {
	if r == "" {
		return model.RankCommon, nil
	}
	rank, err := model.ParseRank(string(r))
	if err != nil {
		return "", fmt.Errorf("%w: %v", recurrence.ErrInvalidRule, err)
	}
	return rank, nil
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
