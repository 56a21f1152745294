package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Get("/search", h.HandleSearch)

		r.Route("/ticker/{symbol}", func(r chi.Router) {
			r.Get("/live-price", h.HandleLivePriceBySymbol)
			r.Get("/profile", h.HandleProfile)
		})

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/price-history", h.HandlePriceHistory)
			r.Post("/price-history", h.HandleRecordPrice)
			r.Get("/live-price", h.HandleLivePrice)
		})
	})
}
