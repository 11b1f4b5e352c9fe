package lead

import "github.com/go-chi/chi/v5"

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/capture-lead", h.HandleCapture)
	r.Post("/chat", h.HandleChat)
	r.Get("/leads/{leadID}/automation-log", h.HandleAutomationLog)
}
