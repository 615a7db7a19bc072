package reward

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the reward tables.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&StoreItem{}, &LogEntry{}, &InventoryItem{}); err != nil {
		return nil, fmt.Errorf("migrate reward tables: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) ListStore(ctx context.Context) ([]StoreItem, error) {
	out := []StoreItem{}
	err := g.db.WithContext(ctx).Order("created_at ASC, id ASC").Find(&out).Error
	return out, err
}

func (g *GormRepo) GetStore(ctx context.Context, id string) (StoreItem, error) {
	return g.findStore(ctx, "id = ?", id)
}

func (g *GormRepo) FindStoreByName(ctx context.Context, name string) (StoreItem, error) {
	return g.findStore(ctx, "reward_name = ?", strings.TrimSpace(name))
}

func (g *GormRepo) findStore(ctx context.Context, query string, arg string) (StoreItem, error) {
	var it StoreItem
	err := g.db.WithContext(ctx).Where(query, arg).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return StoreItem{}, ErrRewardNotFound
	}
	return it, err
}

func (g *GormRepo) SaveStore(ctx context.Context, item StoreItem) (StoreItem, error) {
	if item.ID == "" {
		item.ID = uuid.NewString()
		item.CreatedAt = time.Now().UTC()
		if err := g.db.WithContext(ctx).Create(&item).Error; err != nil {
			return StoreItem{}, err
		}
		return item, nil
	}

	res := g.db.WithContext(ctx).
		Model(&StoreItem{}).
		Where("id = ?", item.ID).
		Updates(map[string]interface{}{
			"reward_name": item.Name,
			"xp_cost":     item.XPCost,
		})
	if res.Error != nil {
		return StoreItem{}, res.Error
	}
	if res.RowsAffected == 0 {
		return StoreItem{}, ErrRewardNotFound
	}
	return item, nil
}

func (g *GormRepo) DeleteStore(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&StoreItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRewardNotFound
	}
	return nil
}

func (g *GormRepo) SeedStore(ctx context.Context, items []StoreItem) (int, error) {
	n := 0
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&StoreItem{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		base := time.Now().UTC()
		for i, it := range items {
			it.ID = uuid.NewString()
			// Distinct timestamps keep the seeded order stable.
			it.CreatedAt = base.Add(time.Duration(i) * time.Millisecond)
			if err := tx.Create(&it).Error; err != nil {
				return err
			}
			n++
		}
		return nil
	})
	return n, err
}

func (g *GormRepo) AddRedemption(ctx context.Context, entry LogEntry, item InventoryItem) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Create(&item).Error
	})
}

func (g *GormRepo) ListLog(ctx context.Context) ([]LogEntry, error) {
	out := []LogEntry{}
	err := g.db.WithContext(ctx).Order("date_redeemed DESC").Find(&out).Error
	return out, err
}

func (g *GormRepo) TotalSpent(ctx context.Context) (int, error) {
	var total int64
	err := g.db.WithContext(ctx).
		Model(&LogEntry{}).
		Select("COALESCE(SUM(xp_cost), 0)").
		Scan(&total).Error
	return int(total), err
}

func (g *GormRepo) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	out := []InventoryItem{}
	err := g.db.WithContext(ctx).Order("date_redeemed DESC, id ASC").Find(&out).Error
	return out, err
}

func (g *GormRepo) MarkUsed(ctx context.Context, id string, at time.Time) (InventoryItem, error) {
	res := g.db.WithContext(ctx).
		Model(&InventoryItem{}).
		Where("id = ? AND used = ?", id, false).
		Updates(map[string]interface{}{
			"used":    true,
			"used_at": at,
		})
	if res.Error != nil {
		return InventoryItem{}, res.Error
	}

	var it InventoryItem
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return InventoryItem{}, ErrInventoryNotFound
	}
	if err != nil {
		return InventoryItem{}, err
	}
	if res.RowsAffected == 0 {
		return InventoryItem{}, ErrAlreadyUsed
	}
	return it, nil
}
