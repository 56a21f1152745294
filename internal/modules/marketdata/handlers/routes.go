package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers live price routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/live-prices", func(r chi.Router) {
		r.Get("/popular", h.HandlePopular)
		r.Get("/search", h.HandleSearch)
		r.Post("/batch", h.HandleBatch)
		r.Get("/batch", h.HandleBatch)
		r.Delete("/cache", h.HandleClearCache)

		r.Route("/{symbol}", func(r chi.Router) {
			r.Get("/", h.HandleLivePrice)
			r.Get("/history", h.HandleHistory)
			r.Get("/intraday", h.HandleIntraday)
			r.Get("/indicators", h.HandleIndicators)
		})
	})
}
