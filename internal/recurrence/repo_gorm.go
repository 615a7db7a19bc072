package recurrence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

// ruleRow is the storage shape of a Rule: the schedule is kept flat, as in Spec.
type ruleRow struct {
	ID         string  `gorm:"primaryKey;type:varchar(36)"`
	Name       string  `gorm:"not null"`
	Rank       string  `gorm:"not null;default:Common"`
	CategoryID *string `gorm:"type:varchar(36);index"`

	Frequency        string `gorm:"not null"`
	Interval         int    `gorm:"column:repeat_interval;not null;default:1"`
	Days             string
	MonthlyMode      string
	MonthlyDay       int
	MonthlyWeekIndex int
	MonthlyWeekday   string
	StartDate        calendar.Date
	EndType          string `gorm:"not null;default:Never"`
	EndDate          *calendar.Date
	EndCount         int

	OccurrenceCount int `gorm:"not null;default:0"`
	LastFiredDate   *calendar.Date

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (ruleRow) TableName() string { return "recurring_rules" }

func rowFromRule(r Rule) ruleRow {
	s := SpecOf(r)
	return ruleRow{
		ID:               r.ID,
		Name:             r.Name,
		Rank:             string(r.Rank),
		CategoryID:       r.CategoryID,
		Frequency:        s.Frequency,
		Interval:         s.Interval,
		Days:             s.Days,
		MonthlyMode:      s.MonthlyMode,
		MonthlyDay:       s.MonthlyDay,
		MonthlyWeekIndex: s.MonthlyWeekIndex,
		MonthlyWeekday:   s.MonthlyWeekday,
		StartDate:        s.StartDate,
		EndType:          s.EndType,
		EndDate:          s.EndDate,
		EndCount:         s.EndCount,
		OccurrenceCount:  r.OccurrenceCount,
		LastFiredDate:    r.LastFiredDate,
		CreatedAt:        r.CreatedAt,
		UpdatedAt:        r.UpdatedAt,
	}
}

// rule decodes the row. Malformed stored schedules still load; they decode
// to a rule that never occurs.
func (row ruleRow) rule() Rule {
	freq, end, _ := Spec{
		Frequency:        row.Frequency,
		Interval:         row.Interval,
		Days:             row.Days,
		MonthlyMode:      row.MonthlyMode,
		MonthlyDay:       row.MonthlyDay,
		MonthlyWeekIndex: row.MonthlyWeekIndex,
		MonthlyWeekday:   row.MonthlyWeekday,
		StartDate:        row.StartDate,
		EndType:          row.EndType,
		EndDate:          row.EndDate,
		EndCount:         row.EndCount,
	}.Decode()

	return Rule{
		ID:              row.ID,
		Name:            row.Name,
		Rank:            model.Rank(row.Rank),
		CategoryID:      row.CategoryID,
		Frequency:       freq,
		StartDate:       row.StartDate,
		End:             end,
		OccurrenceCount: row.OccurrenceCount,
		LastFiredDate:   row.LastFiredDate,
		CreatedAt:       row.CreatedAt,
		UpdatedAt:       row.UpdatedAt,
	}
}

type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the recurring_rules table.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&ruleRow{}); err != nil {
		return nil, fmt.Errorf("migrate recurring_rules: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) List(ctx context.Context) ([]Rule, error) {
	var rows []ruleRow
	if err := g.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]Rule, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.rule())
	}
	return out, nil
}

func (g *GormRepo) Get(ctx context.Context, id string) (Rule, error) {
	var row ruleRow
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Rule{}, ErrNotFound
	}
	if err != nil {
		return Rule{}, err
	}
	return row.rule(), nil
}

func (g *GormRepo) Create(ctx context.Context, r Rule) (Rule, error) {
	normalizeRule(&r)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	row := rowFromRule(r)
	if err := g.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Rule{}, err
	}
	return r, nil
}

// Update rewrites the schedule columns under a row lock. The firing
// bookkeeping is written only when the patch sets it, so an edit cannot undo
// a claim committed after the row was read.
func (g *GormRepo) Update(ctx context.Context, id string, p Patch) (Rule, error) {
	var out Rule
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row ruleRow
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		r := row.rule()
		applyPatch(&r, p)
		normalizeRule(&r)

		next := rowFromRule(r)
		cols := map[string]interface{}{
			"name":               next.Name,
			"rank":               next.Rank,
			"category_id":        next.CategoryID,
			"frequency":          next.Frequency,
			"repeat_interval":    next.Interval,
			"days":               next.Days,
			"monthly_mode":       next.MonthlyMode,
			"monthly_day":        next.MonthlyDay,
			"monthly_week_index": next.MonthlyWeekIndex,
			"monthly_weekday":    next.MonthlyWeekday,
			"start_date":         next.StartDate,
			"end_type":           next.EndType,
			"end_date":           next.EndDate,
			"end_count":          next.EndCount,
			"updated_at":         next.UpdatedAt,
		}
		if p.OccurrenceCount != nil {
			cols["occurrence_count"] = next.OccurrenceCount
		}
		if p.LastFiredDate != nil {
			cols["last_fired_date"] = next.LastFiredDate
		}
		if err := tx.Model(&ruleRow{}).Where("id = ?", id).Updates(cols).Error; err != nil {
			return err
		}

		var saved ruleRow
		if err := tx.Where("id = ?", id).First(&saved).Error; err != nil {
			return err
		}
		out = saved.rule()
		return nil
	})
	return out, err
}

func (g *GormRepo) Delete(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&ruleRow{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepo) ClaimFiring(ctx context.Context, id string, today calendar.Date, observedCount int) (bool, error) {
	res := g.db.WithContext(ctx).
		Model(&ruleRow{}).
		Where("id = ? AND occurrence_count = ?", id, observedCount).
		Where("(last_fired_date IS NULL OR last_fired_date < ?)", today).
		Updates(map[string]interface{}{
			"last_fired_date":  today,
			"occurrence_count": observedCount + 1,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}
	return false, g.exists(ctx, id)
}

func (g *GormRepo) ReleaseFiring(ctx context.Context, id string, today calendar.Date, prev *calendar.Date, prevCount int) error {
	var last interface{}
	if prev != nil {
		last = *prev
	}
	res := g.db.WithContext(ctx).
		Model(&ruleRow{}).
		Where("id = ? AND occurrence_count = ? AND last_fired_date = ?", id, prevCount+1, today).
		Updates(map[string]interface{}{
			"last_fired_date":  last,
			"occurrence_count": prevCount,
			"updated_at":       time.Now().UTC(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		return nil
	}
	return g.exists(ctx, id)
}

func (g *GormRepo) exists(ctx context.Context, id string) error {
	var n int64
	if err := g.db.WithContext(ctx).Model(&ruleRow{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
