package recurring

import (
	"errors"
	"net/http"

	"github.com/Magget135/Minimal-Quest-Log/internal/api"
	"github.com/Magget135/Minimal-Quest-Log/internal/quest"
	"github.com/Magget135/Minimal-Quest-Log/internal/recurrence"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/recurring", h.List)
	mux.HandleFunc("POST /api/recurring", h.Upsert)
	mux.HandleFunc("DELETE /api/recurring/{id}", h.Delete)
	mux.HandleFunc("POST /api/recurring/run", h.Run)
	mux.HandleFunc("GET /api/recurring/calendar.ics", h.Calendar)

	mux.HandleFunc("GET /api/quests/active/{id}/recurrence", h.GetLink)
	mux.HandleFunc("PUT /api/quests/active/{id}/recurrence", h.PutLink)
	mux.HandleFunc("DELETE /api/quests/active/{id}/recurrence", h.DeleteLink)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	vs, err := h.svc.List(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, vs)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in UpsertInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.svc.Upsert(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Run(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Run(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{
		"created": res.Created,
		"skipped": res.Skipped,
		"failed":  len(res.Failures),
		"date":    res.Date,
	})
}

func (h *Handler) Calendar(w http.ResponseWriter, r *http.Request) {
	body, err := h.svc.CalendarICS(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="quests.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

func (h *Handler) GetLink(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Linked(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) PutLink(w http.ResponseWriter, r *http.Request) {
	var in LinkInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	v, err := h.svc.Link(r.Context(), r.PathValue("id"), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, v)
}

func (h *Handler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Unlink(r.Context(), r.PathValue("id"), api.BoolQuery(r, "delete_rule")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, recurrence.ErrNotFound):
		api.WriteErr(w, http.StatusNotFound, "Recurring task not found")
	case errors.Is(err, quest.ErrNotFound):
		api.WriteErr(w, http.StatusNotFound, "Quest not found")
	case errors.Is(err, recurrence.ErrInvalidRule), errors.Is(err, quest.ErrInvalidQuest):
		api.WriteErr(w, http.StatusBadRequest, err.Error())
	default:
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
	}
}
