package category

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

type MemoryRepo struct {
	mu   sync.RWMutex
	cats map[string]Category
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{cats: make(map[string]Category)}
}

func (m *MemoryRepo) List(ctx context.Context) ([]Category, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Category, 0, len(m.cats))
	for _, c := range m.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryRepo) Get(ctx context.Context, id string) (Category, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.cats[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	return c, nil
}

func (m *MemoryRepo) FindByName(ctx context.Context, name string) (Category, error) {
	list, _ := m.List(ctx)
	for _, c := range list {
		if c.Name == strings.TrimSpace(name) {
			return c, nil
		}
	}
	return Category{}, ErrNotFound
}

func (m *MemoryRepo) Create(ctx context.Context, c Category) (Category, error) {
	_ = ctx

	if err := normalize(&c); err != nil {
		return Category{}, err
	}
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now().UTC()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cats[c.ID] = c
	return c, nil
}

func (m *MemoryRepo) Update(ctx context.Context, id string, p Patch) (Category, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.cats[id]
	if !ok {
		return Category{}, ErrNotFound
	}
	applyPatch(&c, p)
	if err := normalize(&c); err != nil {
		return Category{}, err
	}
	m.cats[id] = c
	return c, nil
}

func (m *MemoryRepo) Delete(ctx context.Context, id string) error {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.cats[id]; !ok {
		return ErrNotFound
	}
	delete(m.cats, id)
	return nil
}
