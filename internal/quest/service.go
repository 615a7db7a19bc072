package quest

import (
	"context"
	"fmt"
	"time"

	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
	"github.com/Magget135/Minimal-Quest-Log/internal/model"
)

// Service moves quests from the active list to the XP ledger.
type Service struct {
	quests    Repo
	completed CompletedRepo
	xp        model.XPTable
	log       *logger.Logger
	now       func() time.Time
}

func NewService(quests Repo, completed CompletedRepo, xp model.XPTable, log *logger.Logger) *Service {
	if xp == nil {
		xp = model.DefaultXPTable()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		quests:    quests,
		completed: completed,
		xp:        xp,
		log:       log.With("service", "quest"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Quests() Repo             { return s.quests }
func (s *Service) Completed() CompletedRepo { return s.completed }

// Complete awards the quest's XP and removes it from the active list. Only
// one of two concurrent calls for the same quest succeeds; the other gets
// ErrNotFound.
func (s *Service) Complete(ctx context.Context, id string) (CompletedQuest, error) {
	q, err := s.quests.Get(ctx, id)
	if err != nil {
		return CompletedQuest{}, err
	}
	if err := s.quests.Delete(ctx, id); err != nil {
		return CompletedQuest{}, err
	}

	c, err := s.completed.Add(ctx, CompletedQuest{
		Name:          q.Name,
		Rank:          q.Rank,
		XPEarned:      s.xp.XP(q.Rank),
		DateCompleted: s.now(),
	})
	if err != nil {
		if _, rerr := s.quests.Create(ctx, q); rerr != nil {
			s.log.Error("quest_restore_failed", "quest_id", id, "error", rerr)
		}
		return CompletedQuest{}, fmt.Errorf("record completion: %w", err)
	}

	s.log.Info("quest_completed", "quest_id", id, "rank", q.Rank, "xp", c.XPEarned)
	return c, nil
}

// MarkIncomplete drops the quest without awarding XP.
func (s *Service) MarkIncomplete(ctx context.Context, id string) error {
	if err := s.quests.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("quest_marked_incomplete", "quest_id", id)
	return nil
}
