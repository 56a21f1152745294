// Package handlers provides HTTP handlers for stocks and their prices.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/modules/stocks"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles stock HTTP requests
type Handler struct {
	service *stocks.Service
	log     zerolog.Logger
}

// NewHandler creates a new stock handler
func NewHandler(service *stocks.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "stocks").Logger(),
	}
}

// HandleList handles GET /stocks
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// HandleGet handles GET /stocks/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	stock, err := h.service.Get(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stock)
}

// HandleCreate handles POST /stocks
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in stocks.StockInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stock, err := h.service.Create(r.Context(), in)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, stock)
}

// HandleUpdate handles PUT /stocks/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	var in stocks.StockInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	stock, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stock)
}

// HandleDelete handles DELETE /stocks/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandlePriceHistory handles GET /stocks/{id}/price-history
func (h *Handler) HandlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	history, err := h.service.PriceHistory(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

type recordPriceRequest struct {
	RecordedAt *time.Time      `json:"recorded_at"`
	Price      decimal.Decimal `json:"price"`
}

// HandleRecordPrice handles POST /stocks/{id}/price-history
func (h *Handler) HandleRecordPrice(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	var req recordPriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	var at time.Time
	if req.RecordedAt != nil {
		at = *req.RecordedAt
	}
	entry, err := h.service.RecordPrice(r.Context(), id, req.Price, at)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, entry)
}

// HandleLivePrice handles GET /stocks/{id}/live-price
func (h *Handler) HandleLivePrice(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	quote, err := h.service.LiveQuote(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// HandleLivePriceBySymbol handles GET /stocks/ticker/{symbol}/live-price
func (h *Handler) HandleLivePriceBySymbol(w http.ResponseWriter, r *http.Request) {
	quote, err := h.service.LiveQuoteBySymbol(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, quote)
}

// HandleProfile handles GET /stocks/ticker/{symbol}/profile
func (h *Handler) HandleProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.service.CompanyProfile(r.Context(), chi.URLParam(r, "symbol"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, profile)
}

// HandleSearch handles GET /stocks/search?q=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, matches)
}
