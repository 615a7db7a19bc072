package category

import (
	"errors"
	"net/http"

	"github.com/Magget135/Minimal-Quest-Log/internal/api"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/categories", h.List)
	mux.HandleFunc("POST /api/categories", h.Create)
	mux.HandleFunc("PATCH /api/categories/{id}", h.Patch)
	mux.HandleFunc("DELETE /api/categories/{id}", h.Delete)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cats, err := h.svc.Repo().List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, cats)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var c Category
	if err := api.DecodeJSON(r, &c); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.svc.Repo().Create(r.Context(), c)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, created)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := api.DecodeJSON(r, &p); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.svc.Repo().Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.WriteErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidCategory):
		api.WriteErr(w, http.StatusBadRequest, err.Error())
	default:
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
	}
}
