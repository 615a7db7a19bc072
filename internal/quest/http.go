package quest

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

// Register mounts the quest routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/quests/active", h.List)
	mux.HandleFunc("POST /api/quests/active", h.Create)
	mux.HandleFunc("GET /api/quests/active/{id}", h.Get)
	mux.HandleFunc("PATCH /api/quests/active/{id}", h.Patch)
	mux.HandleFunc("DELETE /api/quests/active/{id}", h.Delete)
	mux.HandleFunc("POST /api/quests/active/{id}/complete", h.Complete)
	mux.HandleFunc("POST /api/quests/active/{id}/mark-incomplete", h.MarkIncomplete)
	mux.HandleFunc("GET /api/quests/completed", h.ListCompleted)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	qs, err := h.svc.Quests().List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, qs)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var q Quest
	if err := api.DecodeJSON(r, &q); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	q.ID = ""
	created, err := h.svc.Quests().Create(r.Context(), q)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Quests().Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) Patch(w http.ResponseWriter, r *http.Request) {
	var p Patch
	if err := api.DecodeJSON(r, &p); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	q, err := h.svc.Quests().Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Quests().Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Complete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) MarkIncomplete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.MarkIncomplete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) ListCompleted(w http.ResponseWriter, r *http.Request) {
	cs, err := h.svc.Completed().List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, cs)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		api.WriteErr(w, http.StatusNotFound, "Quest not found")
	case errors.Is(err, ErrInvalidQuest), errors.Is(err, ErrInvalidRank), errors.Is(err, ErrInvalidStatus):
		api.WriteErr(w, http.StatusBadRequest, err.Error())
	default:
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
	}
}
