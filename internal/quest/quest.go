package quest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

var (
	ErrNotFound      = errors.New("quest not found")
	ErrInvalidRank   = errors.New("invalid quest rank")
	ErrInvalidStatus = errors.New("invalid quest status")
	ErrInvalidQuest  = errors.New("invalid quest")
)

var dueTimeRE = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Quest is an active quest. Completing it moves it to the completed list.
type Quest struct {
	ID              string        `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name            string        `json:"quest_name" gorm:"not null"`
	Rank            model.Rank    `json:"quest_rank" gorm:"not null"`
	DueDate         calendar.Date `json:"due_date" gorm:"index"`
	DueTime         *string       `json:"due_time"`
	DurationMinutes *int          `json:"duration_minutes"`
	Status          model.Status  `json:"status" gorm:"not null"`
	RedeemReward    *string       `json:"redeem_reward"`
	CategoryID      *string       `json:"category_id" gorm:"type:varchar(36);index"`
	RecurringID     *string       `json:"recurring_id" gorm:"type:varchar(36);index"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (Quest) TableName() string { return "active_quests" }

// CompletedQuest is the XP ledger entry written when a quest is completed.
type CompletedQuest struct {
	ID            string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string     `json:"quest_name" gorm:"not null"`
	Rank          model.Rank `json:"quest_rank" gorm:"not null"`
	XPEarned      int        `json:"xp_earned" gorm:"not null"`
	DateCompleted time.Time  `json:"date_completed" gorm:"index"`
}

func (CompletedQuest) TableName() string { return "completed_quests" }

// Patch is a partial update. Nullable fields accept an explicit null to clear.
type Patch struct {
	Name            *string                `json:"quest_name,omitempty"`
	Rank            *model.Rank            `json:"quest_rank,omitempty"`
	DueDate         *calendar.Date         `json:"due_date,omitempty"`
	DueTime         model.Nullable[string] `json:"due_time"`
	DurationMinutes model.Nullable[int]    `json:"duration_minutes"`
	Status          *model.Status          `json:"status,omitempty"`
	RedeemReward    model.Nullable[string] `json:"redeem_reward"`
	CategoryID      model.Nullable[string] `json:"category_id"`
	RecurringID     model.Nullable[string] `json:"-"`
}

// Normalize fills defaults and validates q.
func Normalize(q *Quest) error {
	q.Name = strings.TrimSpace(q.Name)
	if q.Name == "" {
		return fmt.Errorf("%w: quest_name is required", ErrInvalidQuest)
	}

	if q.Rank == "" {
		q.Rank = model.RankCommon
	}
	rank, err := model.ParseRank(string(q.Rank))
	if err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRank, q.Rank)
	}
	q.Rank = rank

	if q.Status == "" {
		q.Status = model.StatusPending
	}
	if !q.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, q.Status)
	}

	if q.DueDate.IsZero() {
		return fmt.Errorf("%w: due_date is required", ErrInvalidQuest)
	}
	q.DueTime = blankToNil(q.DueTime)
	if q.DueTime != nil && !dueTimeRE.MatchString(*q.DueTime) {
		return fmt.Errorf("%w: due_time %q is not HH:MM", ErrInvalidQuest, *q.DueTime)
	}
	if q.DurationMinutes != nil && *q.DurationMinutes < 0 {
		return fmt.Errorf("%w: duration_minutes must not be negative", ErrInvalidQuest)
	}
	q.RedeemReward = blankToNil(q.RedeemReward)
	q.CategoryID = blankToNil(q.CategoryID)
	q.RecurringID = blankToNil(q.RecurringID)
	return nil
}

func applyPatch(q *Quest, p Patch) {
	if p.Name != nil {
		q.Name = *p.Name
	}
	if p.Rank != nil {
		q.Rank = *p.Rank
	}
	if p.DueDate != nil {
		q.DueDate = *p.DueDate
	}
	p.DueTime.Apply(&q.DueTime)
	p.DurationMinutes.Apply(&q.DurationMinutes)
	if p.Status != nil {
		q.Status = *p.Status
	}
	p.RedeemReward.Apply(&q.RedeemReward)
	p.CategoryID.Apply(&q.CategoryID)
	p.RecurringID.Apply(&q.RecurringID)
}

// Sort orders quests by due date, then due time (untimed first), then name.
func Sort(qs []Quest) {
	sort.SliceStable(qs, func(i, j int) bool {
		a, b := qs[i], qs[j]
		if a.DueDate != b.DueDate {
			return a.DueDate.Before(b.DueDate)
		}
		at, bt := deref(a.DueTime), deref(b.DueTime)
		if at != bt {
			return at < bt
		}
		return strings.ToLower(a.Name) < strings.ToLower(b.Name)
	})
}

func blankToNil(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func clone(q Quest) Quest {
	q.DueTime = cloneStr(q.DueTime)
	q.RedeemReward = cloneStr(q.RedeemReward)
	q.CategoryID = cloneStr(q.CategoryID)
	q.RecurringID = cloneStr(q.RecurringID)
	if q.DurationMinutes != nil {
		v := *q.DurationMinutes
		q.DurationMinutes = &v
	}
	return q
}

func cloneStr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
