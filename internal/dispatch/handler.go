package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/lead"
)

type Handler struct {
	d   *Dispatcher
	log *zap.Logger
}

func NewHandler(d *Dispatcher, log *zap.Logger) *Handler {
	return &Handler{d: d, log: log}
}

// HandleTrigger runs the claim-and-fan-out for one lead, outside the
// polling schedule. The idempotency guard still applies: a lead that was
// already processed comes back as a conflict, not a second fan-out.
func (h *Handler) HandleTrigger(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		LeadID string `json:"leadId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.LeadID == "" {
		http.Error(w, "missing leadId", http.StatusBadRequest)
		return
	}

	err := h.d.DispatchLead(r.Context(), payload.LeadID)
	switch {
	case errors.Is(err, lead.ErrNotFound):
		http.Error(w, "unknown lead", http.StatusNotFound)
		return
	case errors.Is(err, ErrAlreadyProcessed):
		http.Error(w, "lead already processed", http.StatusConflict)
		return
	case err != nil:
		h.log.Error("manual trigger failed", zap.String("lead_id", payload.LeadID), zap.Error(err))
		http.Error(w, "dispatch error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "leadId": payload.LeadID})
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/trigger-automation", h.HandleTrigger)
}
