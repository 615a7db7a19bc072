package recurrence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

var ErrNotFound = errors.New("recurring rule not found")

// Patch is a partial update; nil fields are left alone.
type Patch struct {
	Name       *string
	Rank       *model.Rank
	CategoryID *model.Nullable[string]
	Frequency  Frequency
	StartDate  *calendar.Date
	End        EndCondition

	OccurrenceCount *int
	LastFiredDate   *model.Nullable[calendar.Date]
}

type Repo interface {
	List(ctx context.Context) ([]Rule, error)
	Get(ctx context.Context, id string) (Rule, error)
	Create(ctx context.Context, r Rule) (Rule, error)
	Update(ctx context.Context, id string, p Patch) (Rule, error)
	Delete(ctx context.Context, id string) error

	// ClaimFiring records a firing for today. It succeeds only when the rule
	// has no firing on or after today and its count still equals
	// observedCount; the check and the write are one atomic step.
	ClaimFiring(ctx context.Context, id string, today calendar.Date, observedCount int) (bool, error)

	// ReleaseFiring undoes a claim for today, restoring prev and prevCount.
	// It does nothing when the rule has moved on since the claim.
	ReleaseFiring(ctx context.Context, id string, today calendar.Date, prev *calendar.Date, prevCount int) error
}

func applyPatch(r *Rule, p Patch) {
	if p.Name != nil {
		r.Name = strings.TrimSpace(*p.Name)
	}
	if p.Rank != nil {
		r.Rank = *p.Rank
	}
	if p.CategoryID != nil {
		p.CategoryID.Apply(&r.CategoryID)
	}
	if p.Frequency != nil {
		r.Frequency = p.Frequency
	}
	if p.StartDate != nil {
		r.StartDate = *p.StartDate
	}
	if p.End != nil {
		r.End = p.End
	}
	if p.OccurrenceCount != nil {
		r.OccurrenceCount = *p.OccurrenceCount
	}
	if p.LastFiredDate != nil {
		p.LastFiredDate.Apply(&r.LastFiredDate)
	}
	r.UpdatedAt = time.Now().UTC()
}

func normalizeRule(r *Rule) {
	r.Name = strings.TrimSpace(r.Name)
	if r.Rank == "" {
		r.Rank = model.RankCommon
	}
	if r.End == nil {
		r.End = Never{}
	}
	if r.OccurrenceCount < 0 {
		r.OccurrenceCount = 0
	}
}

func cloneRule(r Rule) Rule {
	if r.CategoryID != nil {
		v := *r.CategoryID
		r.CategoryID = &v
	}
	if r.LastFiredDate != nil {
		v := *r.LastFiredDate
		r.LastFiredDate = &v
	}
	return r
}

// FiredOnOrAfter reports whether last is set and not before today. A firing
// recorded for a later day (a linked quest due in the future) counts, so
// lastFiredDate never moves backwards.
func FiredOnOrAfter(last *calendar.Date, today calendar.Date) bool {
	return last != nil && !last.Before(today)
}

func sameDate(a *calendar.Date, b calendar.Date) bool {
	return a != nil && *a == b
}
