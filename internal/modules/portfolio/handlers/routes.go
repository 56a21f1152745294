package handlers

import "github.com/go-chi/chi/v5"

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolios", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Post("/create", h.HandleCreate) // alias kept for older clients
		r.Get("/summary", h.HandleSummary)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleGet)
			r.Put("/", h.HandleUpdate)
			r.Delete("/", h.HandleDelete)
			r.Get("/dashboard", h.HandleDashboard)
			r.Get("/performance", h.HandlePerformance)
			r.Get("/allocation", h.HandleAllocation)
			r.Get("/holdings", h.HandleHoldings)
			r.Post("/close", h.HandleClose)
		})
	})
}
