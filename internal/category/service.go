package category

import (
	"context"
	"errors"
	"fmt"

	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
)

// QuestUnlinker drops a category from the quests that reference it.
type QuestUnlinker interface {
	ClearCategory(ctx context.Context, categoryID string) (int, error)
}

type Service struct {
	repo   Repo
	quests QuestUnlinker
	log    *logger.Logger
}

func NewService(repo Repo, quests QuestUnlinker, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{repo: repo, quests: quests, log: log.With("service", "category")}
}

func (s *Service) Repo() Repo { return s.repo }

// Ensure returns the category with the given name, creating it when missing.
func (s *Service) Ensure(ctx context.Context, name, color string) (Category, error) {
	c, err := s.repo.FindByName(ctx, name)
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Category{}, err
	}
	return s.repo.Create(ctx, Category{Name: name, Color: color})
}

// Delete removes the category; its quests stay, uncategorized.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	n, err := s.quests.ClearCategory(ctx, id)
	if err != nil {
		return fmt.Errorf("unlink quests from category %s: %w", id, err)
	}
	s.log.Info("category_deleted", "category_id", id, "quests_unlinked", n)
	return nil
}
