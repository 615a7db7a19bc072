package reward

import (
	"context"
	"time"
)

type Repo interface {
	ListStore(ctx context.Context) ([]StoreItem, error)
	GetStore(ctx context.Context, id string) (StoreItem, error)
	FindStoreByName(ctx context.Context, name string) (StoreItem, error)
	// SaveStore creates the item when ID is empty and replaces it otherwise.
	SaveStore(ctx context.Context, item StoreItem) (StoreItem, error)
	DeleteStore(ctx context.Context, id string) error
	// SeedStore inserts items only if the store is empty.
	SeedStore(ctx context.Context, items []StoreItem) (int, error)

	// AddRedemption writes the log entry and the inventory item together.
	AddRedemption(ctx context.Context, entry LogEntry, item InventoryItem) error
	ListLog(ctx context.Context) ([]LogEntry, error)
	TotalSpent(ctx context.Context) (int, error)

	ListInventory(ctx context.Context) ([]InventoryItem, error)
	// MarkUsed flips Used once; a second call returns ErrAlreadyUsed.
	MarkUsed(ctx context.Context, id string, at time.Time) (InventoryItem, error)
}
