package category

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrNotFound        = errors.New("Category not found")
	ErrInvalidCategory = errors.New("invalid category")
)

type Category struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"not null;index"`
	Color     string    `json:"color"`
	Active    *bool     `json:"active" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
}

func (Category) TableName() string { return "categories" }

type Patch struct {
	Name   *string `json:"name,omitempty"`
	Color  *string `json:"color,omitempty"`
	Active *bool   `json:"active,omitempty"`
}

type Repo interface {
	List(ctx context.Context) ([]Category, error)
	Get(ctx context.Context, id string) (Category, error)
	FindByName(ctx context.Context, name string) (Category, error)
	Create(ctx context.Context, c Category) (Category, error)
	Update(ctx context.Context, id string, p Patch) (Category, error)
	Delete(ctx context.Context, id string) error
}

func normalize(c *Category) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCategory)
	}
	c.Color = strings.TrimSpace(c.Color)
	if c.Active == nil {
		active := true
		c.Active = &active
	}
	return nil
}

func applyPatch(c *Category, p Patch) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Active != nil {
		v := *p.Active
		c.Active = &v
	}
}
