package lead

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	svc  Service
	repo Repo
	log  *zap.Logger
}

func NewHandler(svc Service, repo Repo, log *zap.Logger) *Handler {
	return &Handler{svc: svc, repo: repo, log: log}
}

// HandleCapture — direct lead capture from forms. Responds as soon as the
// lead is durable; automation happens later, on the poller's clock.
func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID string             `json:"clientId"`
		Contact  Contact            `json:"contact"`
		Vehicle  Vehicle            `json:"vehicle"`
		Service  ServicePreferences `json:"service"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	saved, err := h.svc.Capture(r.Context(), CaptureInput{
		ClientID: payload.ClientID,
		Contact:  payload.Contact,
		Vehicle:  payload.Vehicle,
		Service:  payload.Service,
	})
	if errors.Is(err, ErrValidation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("capture failed", zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   true,
		"leadId":    saved.ID,
		"leadScore": saved.Score,
	})
}

// chatContext round-trips the caller's last-known lead state between turns.
type chatContext struct {
	LeadID     string     `json:"leadId,omitempty"`
	Attributes Attributes `json:"attributes"`
	Stage      Stage      `json:"conversationState,omitempty"`
}

// HandleChat — one widget message in, reply plus updated lead state out.
func (h *Handler) HandleChat(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ClientID  string      `json:"clientId"`
		SessionID string      `json:"sessionId"`
		Message   string      `json:"message"`
		Context   chatContext `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	res, err := h.svc.Chat(r.Context(), ChatInput{
		ClientID: payload.ClientID,
		LeadID:   payload.Context.LeadID,
		Message:  payload.Message,
		Prior:    payload.Context.Attributes,
		Stage:    payload.Context.Stage,
	})
	if errors.Is(err, ErrValidation) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.log.Error("chat turn failed", zap.String("session_id", payload.SessionID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"response":  res.Reply,
		"leadData":  res.Lead,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleAutomationLog — operator audit read for one lead's fan-out history.
func (h *Handler) HandleAutomationLog(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "leadID")
	if leadID == "" {
		http.Error(w, "missing lead id", http.StatusBadRequest)
		return
	}

	entries, err := h.repo.ListAutomationLog(r.Context(), leadID)
	if err != nil {
		h.log.Error("automation log read failed", zap.String("lead_id", leadID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []AutomationLogEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"leadId": leadID, "entries": entries})
}
