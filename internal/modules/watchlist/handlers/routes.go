package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers watchlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/watchlist", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Get("/all", h.HandleList)
		r.Post("/", h.HandleAddAlert)
		r.Post("/stock", h.HandleAddStock)
		r.Post("/check", h.HandleCheck)
		r.Delete("/{entryID}", h.HandleRemove)
	})
}
