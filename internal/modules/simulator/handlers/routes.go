package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers simulator routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/simulator", func(r chi.Router) {
		r.Get("/stats", h.HandleStats)
		r.Put("/settings", h.HandleUpdateSettings)
		r.Post("/run/send", h.HandleRunSend)
		r.Post("/run/process", h.HandleRunProcess)
	})
}
