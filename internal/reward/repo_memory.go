package reward

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu        sync.RWMutex
	store     map[string]StoreItem
	order     []string
	log       []LogEntry
	inventory map[string]InventoryItem
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		store:     make(map[string]StoreItem),
		inventory: make(map[string]InventoryItem),
	}
}

func (m *MemoryRepo) ListStore(ctx context.Context) ([]StoreItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]StoreItem, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.store[id])
	}
	return out, nil
}

func (m *MemoryRepo) GetStore(ctx context.Context, id string) (StoreItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	it, ok := m.store[id]
	if !ok {
		return StoreItem{}, ErrRewardNotFound
	}
	return it, nil
}

func (m *MemoryRepo) FindStoreByName(ctx context.Context, name string) (StoreItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, id := range m.order {
		if it := m.store[id]; it.Name == strings.TrimSpace(name) {
			return it, nil
		}
	}
	return StoreItem{}, ErrRewardNotFound
}

func (m *MemoryRepo) SaveStore(ctx context.Context, item StoreItem) (StoreItem, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if item.ID == "" {
		item.ID = uuid.NewString()
		m.order = append(m.order, item.ID)
	} else if _, ok := m.store[item.ID]; !ok {
		return StoreItem{}, ErrRewardNotFound
	}
	m.store[item.ID] = item
	return item, nil
}

func (m *MemoryRepo) DeleteStore(ctx context.Context, id string) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.store[id]; !ok {
		return ErrRewardNotFound
	}
	delete(m.store, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *MemoryRepo) SeedStore(ctx context.Context, items []StoreItem) (int, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.store) > 0 {
		return 0, nil
	}
	for _, it := range items {
		it.ID = uuid.NewString()
		m.store[it.ID] = it
		m.order = append(m.order, it.ID)
	}
	return len(items), nil
}

func (m *MemoryRepo) AddRedemption(ctx context.Context, entry LogEntry, item InventoryItem) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	m.log = append(m.log, entry)
	m.inventory[item.ID] = item
	return nil
}

func (m *MemoryRepo) ListLog(ctx context.Context) ([]LogEntry, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]LogEntry, len(m.log))
	copy(out, m.log)
	sort.SliceStable(out, func(i, j int) bool { return out[i].DateRedeemed.After(out[j].DateRedeemed) })
	return out, nil
}

func (m *MemoryRepo) TotalSpent(ctx context.Context) (int, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, e := range m.log {
		total += e.XPCost
	}
	return total, nil
}

func (m *MemoryRepo) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]InventoryItem, 0, len(m.inventory))
	for _, it := range m.inventory {
		out = append(out, it)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DateRedeemed.Equal(out[j].DateRedeemed) {
			return out[i].DateRedeemed.After(out[j].DateRedeemed)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) MarkUsed(ctx context.Context, id string, at time.Time) (InventoryItem, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.inventory[id]
	if !ok {
		return InventoryItem{}, ErrInventoryNotFound
	}
	if it.Used {
		return InventoryItem{}, ErrAlreadyUsed
	}
	it.Used = true
	it.UsedAt = &at
	m.inventory[id] = it
	return it, nil
}
