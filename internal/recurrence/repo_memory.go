package recurrence

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Magget135/Minimal-Quest-Log/internal/calendar"
)

type MemoryRepo struct {
	mu    sync.RWMutex
	rules map[string]Rule
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{rules: make(map[string]Rule)}
}

func (m *MemoryRepo) List(ctx context.Context) ([]Rule, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, 0, len(m.rules))
	for _, r := range m.rules {
		out = append(out, cloneRule(r))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (Rule, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	return cloneRule(r), nil
}

func (m *MemoryRepo) Create(ctx context.Context, r Rule) (Rule, error) {
	_ = ctx

	normalizeRule(&r)
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	r.CreatedAt, r.UpdatedAt = now, now

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules[r.ID] = cloneRule(r)
	return r, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, p Patch) (Rule, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return Rule{}, ErrNotFound
	}
	applyPatch(&r, p)
	normalizeRule(&r)
	m.rules[id] = cloneRule(r)
	return r, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.rules[id]; !ok {
		return ErrNotFound
	}
	delete(m.rules, id)
	return nil
}

func (m *MemoryRepo) ClaimFiring(ctx context.Context, id string, today calendar.Date, observedCount int) (bool, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return false, ErrNotFound
	}
	if FiredOnOrAfter(r.LastFiredDate, today) || r.OccurrenceCount != observedCount {
		return false, nil
	}
	r.LastFiredDate = calendar.Ptr(today)
	r.OccurrenceCount = observedCount + 1
	r.UpdatedAt = time.Now().UTC()
	m.rules[id] = r
	return true, nil
}

func (m *MemoryRepo) ReleaseFiring(ctx context.Context, id string, today calendar.Date, prev *calendar.Date, prevCount int) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.rules[id]
	if !ok {
		return ErrNotFound
	}
	if !sameDate(r.LastFiredDate, today) || r.OccurrenceCount != prevCount+1 {
		return nil
	}
	r.LastFiredDate = nil
	if prev != nil {
		r.LastFiredDate = calendar.Ptr(*prev)
	}
	r.OccurrenceCount = prevCount
	r.UpdatedAt = time.Now().UTC()
	m.rules[id] = r
	return nil
}
