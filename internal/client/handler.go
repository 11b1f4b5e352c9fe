package client

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	repo Repo
	log  *zap.Logger
}

func NewHandler(repo Repo, log *zap.Logger) *Handler {
	return &Handler{repo: repo, log: log}
}

// HandleGet serves tenant branding and integration config to the widget.
// Secrets are stripped: the widget only needs to know which channels exist.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")
	if clientID == "" {
		http.Error(w, "missing client id", http.StatusBadRequest)
		return
	}

	cfg, err := h.repo.Get(r.Context(), clientID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "unknown client", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("client config load failed", zap.String("client_id", clientID), zap.Error(err))
		http.Error(w, "storage error", http.StatusInternalServerError)
		return
	}

	type channelView struct {
		Type    ChannelType `json:"type"`
		Enabled bool        `json:"enabled"`
	}
	resp := struct {
		ClientID string        `json:"clientId"`
		Branding Branding      `json:"branding"`
		Channels []channelView `json:"channels"`
	}{ClientID: cfg.ClientID, Branding: cfg.Branding}
	for _, ch := range cfg.Channels {
		resp.Channels = append(resp.Channels, channelView{Type: ch.Type, Enabled: ch.Enabled})
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
