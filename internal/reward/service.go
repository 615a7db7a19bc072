package reward

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Magget135/Minimal-Quest-Log/internal/logger"
)

// XPSource reports the XP earned so far.
type XPSource interface {
	TotalXP(ctx context.Context) (int, error)
}

type Service struct {
	repo     Repo
	earned   XPSource
	defaults []StoreItem
	log      *logger.Logger
	now      func() time.Time

	// Serializes balance checks with the spend that follows them.
	redeemMu sync.Mutex
}

// NewService seeds defaults into an empty store on first listing; pass nil
// defaults to disable seeding.
func NewService(repo Repo, earned XPSource, defaults []StoreItem, log *logger.Logger) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		repo:     repo,
		earned:   earned,
		defaults: defaults,
		log:      log.With("service", "reward"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Store(ctx context.Context) ([]StoreItem, error) {
	if len(s.defaults) > 0 {
		n, err := s.repo.SeedStore(ctx, s.defaults)
		if err != nil {
			return nil, fmt.Errorf("seed reward store: %w", err)
		}
		if n > 0 {
			s.log.Info("reward_store_seeded", "items", n)
		}
	}
	return s.repo.ListStore(ctx)
}

func (s *Service) Upsert(ctx context.Context, item StoreItem) (StoreItem, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return StoreItem{}, fmt.Errorf("%w: reward_name is required", ErrInvalidReward)
	}
	if item.XPCost < 0 {
		return StoreItem{}, fmt.Errorf("%w: xp_cost must not be negative", ErrInvalidReward)
	}
	return s.repo.SaveStore(ctx, item)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	return s.repo.DeleteStore(ctx, id)
}

func (s *Service) Log(ctx context.Context) ([]LogEntry, error) {
	return s.repo.ListLog(ctx)
}

func (s *Service) Inventory(ctx context.Context) ([]InventoryItem, error) {
	return s.repo.ListInventory(ctx)
}

func (s *Service) Summary(ctx context.Context) (Summary, error) {
	earned, err := s.earned.TotalXP(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("total earned: %w", err)
	}
	spent, err := s.repo.TotalSpent(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("total spent: %w", err)
	}
	return Summary{TotalEarned: earned, TotalSpent: spent, Balance: earned - spent}, nil
}

// Redeem spends XP on a store reward and puts it in the inventory.
func (s *Service) Redeem(ctx context.Context, in RedeemInput) (InventoryItem, error) {
	item, err := s.lookup(ctx, in)
	if err != nil {
		return InventoryItem{}, err
	}

	s.redeemMu.Lock()
	defer s.redeemMu.Unlock()

	sum, err := s.Summary(ctx)
	if err != nil {
		return InventoryItem{}, err
	}
	if sum.Balance < item.XPCost {
		return InventoryItem{}, ErrNotEnoughXP
	}

	now := s.now()
	entry := LogEntry{ID: uuid.NewString(), DateRedeemed: now, RewardName: item.Name, XPCost: item.XPCost}
	inv := InventoryItem{ID: uuid.NewString(), RewardName: item.Name, XPCost: item.XPCost, DateRedeemed: now}
	if err := s.repo.AddRedemption(ctx, entry, inv); err != nil {
		return InventoryItem{}, fmt.Errorf("record redemption: %w", err)
	}

	s.log.Info("reward_redeemed", "reward", item.Name, "xp_cost", item.XPCost, "balance", sum.Balance-item.XPCost)
	return inv, nil
}

func (s *Service) Use(ctx context.Context, inventoryID string) (InventoryItem, error) {
	return s.repo.MarkUsed(ctx, inventoryID, s.now())
}

func (s *Service) lookup(ctx context.Context, in RedeemInput) (StoreItem, error) {
	if id := strings.TrimSpace(in.RewardID); id != "" {
		return s.repo.GetStore(ctx, id)
	}
	if name := strings.TrimSpace(in.RewardName); name != "" {
		return s.repo.FindStoreByName(ctx, name)
	}
	return StoreItem{}, ErrRewardNotFound
}
