// Package rulesdoc stores the single house-rules markdown document.
package rulesdoc

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Magget135/Minimal-Quest-Log/internal/api"
)

type Doc struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Content   string    `json:"content" gorm:"type:text"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Doc) TableName() string { return "rules_doc" }

type Repo interface {
	// Get returns nil when no document has been written yet.
	Get(ctx context.Context) (*Doc, error)
	Put(ctx context.Context, content string) (Doc, error)
}

type MemoryRepo struct {
	mu  sync.RWMutex
	doc *Doc
}

func NewMemoryRepo() *MemoryRepo { return &MemoryRepo{} }

func (m *MemoryRepo) Get(ctx context.Context) (*Doc, error) {
	_ = ctx

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.doc == nil {
		return nil, nil
	}
	d := *m.doc
	return &d, nil
}

func (m *MemoryRepo) Put(ctx context.Context, content string) (Doc, error) {
	_ = ctx

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.doc == nil {
		m.doc = &Doc{ID: uuid.NewString()}
	}
	m.doc.Content = content
	m.doc.UpdatedAt = time.Now().UTC()
	return *m.doc, nil
}

type GormRepo struct {
	db *gorm.DB
}

// NewGormRepo migrates the rules_doc table.
func NewGormRepo(db *gorm.DB) (*GormRepo, error) {
	if err := db.AutoMigrate(&Doc{}); err != nil {
		return nil, fmt.Errorf("migrate rules_doc: %w", err)
	}
	return &GormRepo{db: db}, nil
}

func (g *GormRepo) Get(ctx context.Context) (*Doc, error) {
	var d Doc
	err := g.db.WithContext(ctx).Order("updated_at ASC").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (g *GormRepo) Put(ctx context.Context, content string) (Doc, error) {
	var out Doc
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Order("updated_at ASC").First(&out).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			out = Doc{ID: uuid.NewString()}
		} else if err != nil {
			return err
		}
		out.Content = content
		out.UpdatedAt = time.Now().UTC()
		return tx.Save(&out).Error
	})
	return out, err
}

type Handler struct {
	repo Repo
}

func NewHandler(repo Repo) *Handler {
	return &Handler{repo: repo}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/rules", h.Get)
	mux.HandleFunc("PUT /api/rules", h.Put)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	d, err := h.repo.Get(r.Context())
	if err != nil {
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, d)
}

func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Content string `json:"content"`
	}
	if err := api.DecodeJSON(r, &body); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	d, err := h.repo.Put(r.Context(), body.Content)
	if err != nil {
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
		return
	}
	api.WriteJSON(w, http.StatusOK, d)
}
