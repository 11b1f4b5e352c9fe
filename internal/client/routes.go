package client

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Get("/client/{clientID}", h.HandleGet)
}
