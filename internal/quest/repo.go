package quest

import (
	"context"
)

type Repo interface {
	List(ctx context.Context) ([]Quest, error)
	Get(ctx context.Context, id string) (Quest, error)
	Create(ctx context.Context, q Quest) (Quest, error)
	Update(ctx context.Context, id string, p Patch) (Quest, error)
	Delete(ctx context.Context, id string) error

	// ClearRecurring and ClearCategory drop a back-reference from every
	// quest holding it and report how many quests changed.
	ClearRecurring(ctx context.Context, ruleID string) (int, error)
	ClearCategory(ctx context.Context, categoryID string) (int, error)
}

type CompletedRepo interface {
	Add(ctx context.Context, c CompletedQuest) (CompletedQuest, error)
	List(ctx context.Context) ([]CompletedQuest, error)
	TotalXP(ctx context.Context) (int, error)
}
