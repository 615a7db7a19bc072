package quest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the active_quests table.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&Quest{}); err != nil {
		return nil, fmt.Errorf("migrate active_quests: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) List(ctx context.Context) ([]Quest, error) {
	out := []Quest{}
	if err := g.db.WithContext(ctx).Find(&out).Error; err != nil {
		return nil, err
	}
	Sort(out)
	return out, nil
}

func (g *GormRepo) Get(ctx context.Context, id string) (Quest, error) {
	var q Quest
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&q).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Quest{}, ErrNotFound
	}
	return q, err
}

func (g *GormRepo) Create(ctx context.Context, q Quest) (Quest, error) {
	if err := Normalize(&q); err != nil {
		return Quest{}, err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now

	if err := g.db.WithContext(ctx).Create(&q).Error; err != nil {
		return Quest{}, err
	}
	return q, nil
}

func (g *GormRepo) Update(ctx context.Context, id string, p Patch) (Quest, error) {
	var out Quest
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var q Quest
		err := tx.Where("id = ?", id).First(&q).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		applyPatch(&q, p)
		if err := Normalize(&q); err != nil {
			return err
		}
		q.UpdatedAt = time.Now().UTC()
		if err := tx.Save(&q).Error; err != nil {
			return err
		}
		out = q
		return nil
	})
	return out, err
}

func (g *GormRepo) Delete(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&Quest{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (g *GormRepo) ClearRecurring(ctx context.Context, ruleID string) (int, error) {
	return g.clear(ctx, "recurring_id", ruleID)
}

func (g *GormRepo) ClearCategory(ctx context.Context, categoryID string) (int, error) {
	return g.clear(ctx, "category_id", categoryID)
}

func (g *GormRepo) clear(ctx context.Context, column, id string) (int, error) {
	res := g.db.WithContext(ctx).
		Model(&Quest{}).
		Where(column+" = ?", id).
		Updates(map[string]interface{}{
			column:       nil,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return 0, res.Error
	}
	return int(res.RowsAffected), nil
}

type GormCompletedRepo struct {
	db *gorm.DB
}

// NewGormCompletedRepo migrates the completed_quests table.
func NewGormCompletedRepo(db *gorm.DB) (*GormCompletedRepo, error) {
	if err := db.AutoMigrate(&CompletedQuest{}); err != nil {
		return nil, fmt.Errorf("migrate completed_quests: %w", err)
	}
	return &GormCompletedRepo{db: db}, nil
}

func (g *GormCompletedRepo) Add(ctx context.Context, c CompletedQuest) (CompletedQuest, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DateCompleted.IsZero() {
		c.DateCompleted = time.Now().UTC()
	}
	if err := g.db.WithContext(ctx).Create(&c).Error; err != nil {
		return CompletedQuest{}, err
	}
	return c, nil
}

func (g *GormCompletedRepo) List(ctx context.Context) ([]CompletedQuest, error) {
	out := []CompletedQuest{}
	err := g.db.WithContext(ctx).Order("date_completed DESC").Find(&out).Error
	return out, err
}

func (g *GormCompletedRepo) TotalXP(ctx context.Context) (int, error) {
	var total int64
	err := g.db.WithContext(ctx).
		Model(&CompletedQuest{}).
		Select("COALESCE(SUM(xp_earned), 0)").
		Scan(&total).Error
	return int(total), err
}
