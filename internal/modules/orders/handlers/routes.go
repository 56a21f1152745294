package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all order routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/place", h.HandlePlace)
		r.Get("/history", h.HandleHistory)
		r.Get("/{id}/status", h.HandleGetStatus)
		r.Put("/{id}/status", h.HandleUpdateStatus)
	})
}
