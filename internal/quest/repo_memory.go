package quest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu     sync.RWMutex
	quests map[string]Quest
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{quests: make(map[string]Quest)}
}

func (m *MemoryRepo) List(ctx context.Context) ([]Quest, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Quest, 0, len(m.quests))
	for _, q := range m.quests {
		out = append(out, clone(q))
	}
	Sort(out)
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (Quest, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	q, ok := m.quests[id]
	if !ok {
		return Quest{}, ErrNotFound
	}
	return clone(q), nil
}

func (m *MemoryRepo) Create(ctx context.Context, q Quest) (Quest, error) {
	_ = ctx

	if err := Normalize(&q); err != nil {
		return Quest{}, err
	}
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	q.CreatedAt, q.UpdatedAt = now, now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.quests[q.ID] = clone(q)
	return q, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, p Patch) (Quest, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	q, ok := m.quests[id]
	if !ok {
		return Quest{}, ErrNotFound
	}
	q = clone(q)
	applyPatch(&q, p)
	if err := Normalize(&q); err != nil {
		return Quest{}, err
	}
	q.UpdatedAt = time.Now().UTC()
	m.quests[id] = clone(q)
	return q, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.quests[id]; !ok {
		return ErrNotFound
	}
	delete(m.quests, id)
	return nil
}

func (m *MemoryRepo) ClearRecurring(ctx context.Context, ruleID string) (int, error) {
	return m.clear(ctx, func(q *Quest) **string { return &q.RecurringID }, ruleID)
}

func (m *MemoryRepo) ClearCategory(ctx context.Context, categoryID string) (int, error) {
	return m.clear(ctx, func(q *Quest) **string { return &q.CategoryID }, categoryID)
}

func (m *MemoryRepo) clear(ctx context.Context, field func(*Quest) **string, id string) (int, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	n := 0
	now := time.Now().UTC()
	for key, q := range m.quests {
		ref := field(&q)
		if *ref == nil || **ref != id {
			continue
		}
		*ref = nil
		q.UpdatedAt = now
		m.quests[key] = q
		n++
	}
	return n, nil
}

type MemoryCompletedRepo struct {
	mu   sync.RWMutex
	done []CompletedQuest
}

func NewMemoryCompletedRepo() *MemoryCompletedRepo {
	return &MemoryCompletedRepo{}
}

func (m *MemoryCompletedRepo) Add(ctx context.Context, c CompletedQuest) (CompletedQuest, error) {
	_ = ctx

	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.DateCompleted.IsZero() {
		c.DateCompleted = time.Now().UTC()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = append(m.done, c)
	return c, nil
}

// List returns the most recent completions first.
func (m *MemoryCompletedRepo) List(ctx context.Context) ([]CompletedQuest, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]CompletedQuest, len(m.done))
	copy(out, m.done)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DateCompleted.After(out[j].DateCompleted)
	})
	return out, nil
}

func (m *MemoryCompletedRepo) TotalXP(ctx context.Context) (int, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	total := 0
	for _, c := range m.done {
		total += c.XPEarned
	}
	return total, nil
}
