// Package handlers provides HTTP handlers for order placement and lifecycle.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/orders"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles order HTTP requests
type Handler struct {
	engine *orders.Engine
	log    zerolog.Logger
}

// NewHandler creates a new order handler
func NewHandler(engine *orders.Engine, log zerolog.Logger) *Handler {
	return &Handler{
		engine: engine,
		log:    log.With().Str("handler", "orders").Logger(),
	}
}

// HandlePlace handles POST /orders/place?portfolio_id=&stock_id=
func (h *Handler) HandlePlace(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := utils.IDQuery(r, "portfolio_id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	stockID, err := utils.IDQuery(r, "stock_id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}

	var req orders.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.engine.PlaceOrder(r.Context(), portfolioID, stockID, req)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, order)
}

// HandleHistory handles GET /orders/history?portfolio_id=
func (h *Handler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	portfolioID, err := utils.IDQuery(r, "portfolio_id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	history, err := h.engine.TradingHistory(r.Context(), portfolioID)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, history)
}

// HandleList handles GET /orders
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.engine.ListOrders(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// HandleGetStatus handles GET /orders/{id}/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	order, err := h.engine.GetOrder(r.Context(), id)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}

// HandleUpdateStatus handles PUT /orders/{id}/status?status=N
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	raw := r.URL.Query().Get("status")
	code, err := strconv.Atoi(raw)
	if err != nil {
		utils.WriteServiceError(w, h.log, domain.NewValidationError("status must be an integer status code, got %q", raw))
		return
	}

	order, err := h.engine.UpdateOrderStatus(r.Context(), id, code)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, order)
}
