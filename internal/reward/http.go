package reward

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
	mux.HandleFunc("GET /api/rewards/store", h.Store)
	mux.HandleFunc("POST /api/rewards/store", h.Upsert)
	mux.HandleFunc("DELETE /api/rewards/store/{id}", h.Delete)
	mux.HandleFunc("GET /api/rewards/log", h.Log)
	mux.HandleFunc("POST /api/rewards/redeem", h.Redeem)
	mux.HandleFunc("GET /api/rewards/inventory", h.Inventory)
	mux.HandleFunc("POST /api/rewards/use/{id}", h.Use)
	mux.HandleFunc("GET /api/xp/summary", h.Summary)
}

func (h *Handler) Store(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Store(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	var item StoreItem
	if err := api.DecodeJSON(r, &item); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	saved, err := h.svc.Upsert(r.Context(), item)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, saved)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) Log(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Log(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, entries)
}

func (h *Handler) Redeem(w http.ResponseWriter, r *http.Request) {
	var in RedeemInput
	if err := api.DecodeJSON(r, &in); err != nil {
		api.WriteErr(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := h.svc.Redeem(r.Context(), in)
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) Inventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Inventory(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) Use(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.Use(r.Context(), r.PathValue("id"))
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		writeErr(w, err)
		return
	}
	api.WriteJSON(w, http.StatusOK, sum)
}

func writeErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRewardNotFound), errors.Is(err, ErrInventoryNotFound):
		api.WriteErr(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNotEnoughXP), errors.Is(err, ErrAlreadyUsed), errors.Is(err, ErrInvalidReward):
		api.WriteErr(w, http.StatusBadRequest, err.Error())
	default:
		api.WriteErr(w, http.StatusInternalServerError, err.Error())
	}
}
