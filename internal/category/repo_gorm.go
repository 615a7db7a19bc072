package category

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

// NewGormRepo migrates the categories table.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&Category{}); err != nil {
		return nil, fmt.Errorf("migrate categories: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) List(ctx context.Context) ([]Category, error) {
	out := []Category{}
	err := g.db.WithContext(ctx).Order("LOWER(name) ASC, id ASC").Find(&out).Error
	return out, err
}

func (g *GormRepo) Get(ctx context.Context, id string) (Category, error) {
	return g.first(ctx, "id = ?", id)
}

func (g *GormRepo) FindByName(ctx context.Context, name string) (Category, error) {
	return g.first(ctx, "name = ?", strings.TrimSpace(name))
}

func (g *GormRepo) first(ctx context.Context, query string, arg string) (Category, error) {
	var c Category
	err := g.db.WithContext(ctx).Where(query, arg).Order("created_at ASC").First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Category{}, ErrNotFound
	}
	return c, err
}

func (g *GormRepo) Create(ctx context.Context, c Category) (Category, error) {
	if err := normalize(&c); err != nil {
		return Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()
	if err := g.db.WithContext(ctx).Create(&c).Error; err != nil {
		return Category{}, err
	}
	return c, nil
}

func (g *GormRepo) Update(ctx context.Context, id string, p Patch) (Category, error) {
	var out Category
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var c Category
		err := tx.Where("id = ?", id).First(&c).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		applyPatch(&c, p)
		if err := normalize(&c); err != nil {
			return err
		}
		if err := tx.Save(&c).Error; err != nil {
			return err
		}
		out = c
		return nil
	})
	return out, err
}

func (g *GormRepo) Delete(ctx context.Context, id string) error {
	res := g.db.WithContext(ctx).Where("id = ?", id).Delete(&Category{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
