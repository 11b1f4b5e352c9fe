// Package webhook receives inbound events from external chat and CRM
// providers. Everything is acknowledged with 200, recognized or not;
// rejecting unknown event types only earns provider retry storms.
package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tintbot/tintbot/internal/lead"
)

type Handler struct {
	leads lead.Service
	log   *zap.Logger
}

func NewHandler(leads lead.Service, log *zap.Logger) *Handler {
	return &Handler{leads: leads, log: log}
}

func (h *Handler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var payload struct {
		Event  string `json:"event"`
		LeadID string `json:"leadId"`
		Text   string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		// Malformed body still gets an ACK; there is nothing a provider
		// retry could fix.
		h.log.Warn("webhook body undecodable", zap.String("client_id", clientID), zap.Error(err))
		w.WriteHeader(http.StatusOK)
		return
	}

	switch payload.Event {
	case "chat.message":
		if payload.Text == "" {
			h.log.Warn("chat.message event without text", zap.String("client_id", clientID))
			break
		}
		// Provider-relayed messages carry no round-tripped context; the
		// lead id, when present, keys the turn into the existing record,
		// and a first message without one opens a lead the same way the
		// widget path does.
		if _, err := h.leads.Chat(r.Context(), lead.ChatInput{
			ClientID: clientID,
			LeadID:   payload.LeadID,
			Message:  payload.Text,
		}); err != nil {
			h.log.Error("webhook chat turn failed",
				zap.String("client_id", clientID),
				zap.String("lead_id", payload.LeadID),
				zap.Error(err))
		}
	case "crm.contact.updated":
		h.log.Info("crm contact update received",
			zap.String("client_id", clientID),
			zap.String("lead_id", payload.LeadID))
	default:
		h.log.Info("unrecognized webhook event",
			zap.String("client_id", clientID),
			zap.String("event", payload.Event))
	}

	w.WriteHeader(http.StatusOK)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/webhook/{clientID}", h.HandleEvent)
}
