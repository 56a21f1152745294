// Package handlers provides HTTP handlers for live market data.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/modules/marketdata"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles live price HTTP requests
type Handler struct {
	service *marketdata.Service
	log     zerolog.Logger
}

// NewHandler creates a new live price handler
func NewHandler(service *marketdata.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "marketdata").Logger(),
	}
}

// HandleLivePrice handles GET /api/live-prices/{symbol}
func (h *Handler) HandleLivePrice(w http.ResponseWriter, r *http.Request) {
	price, err := h.service.GetLivePrice(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, price)
}

// HandleBatch handles POST /api/live-prices/batch with a JSON array of symbols.
// GET /api/live-prices/batch?symbols=AAPL,MSFT is accepted too.
func (h *Handler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	var symbols []string
	if r.Method == http.MethodGet {
		symbols = utils.ParseSymbols(r.URL.Query().Get("symbols"))
	} else if err := json.NewDecoder(r.Body).Decode(&symbols); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "request body must be a JSON array of symbols")
		return
	}
	items, err := h.service.GetLivePrices(r.Context(), utils.NormalizeSymbols(symbols))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

// HandlePopular handles GET /api/live-prices/popular
func (h *Handler) HandlePopular(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.PopularStocks(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, items)
}

// HandleHistory handles GET /api/live-prices/{symbol}/history?period=daily|intraday
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetHistory(r.Context(), chi.URLParam(r, "symbol"), r.URL.Query().Get("period"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// HandleIntraday handles GET /api/live-prices/{symbol}/intraday
func (h *Handler) HandleIntraday(w http.ResponseWriter, r *http.Request) {
	history, err := h.service.GetIntraday(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// HandleIndicators handles GET /api/live-prices/{symbol}/indicators
func (h *Handler) HandleIndicators(w http.ResponseWriter, r *http.Request) {
	ind, err := h.service.Indicators(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, ind)
}

// HandleSearch handles GET /api/live-prices/search?q=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, matches)
}

// HandleClearCache handles DELETE /api/live-prices/cache
func (h *Handler) HandleClearCache(w http.ResponseWriter, r *http.Request) {
	h.service.ClearCache()
	utils.WriteJSON(w, http.StatusOK, map[string]string{"message": "Cache cleared successfully"})
}
