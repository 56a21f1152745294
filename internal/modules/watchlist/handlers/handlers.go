// Package handlers provides HTTP handlers for the watchlist.
package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/watchlist"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles watchlist HTTP requests
type Handler struct {
	service *watchlist.Service
	checker *watchlist.AlertChecker
	log     zerolog.Logger
}

// NewHandler creates a new watchlist handler
func NewHandler(service *watchlist.Service, checker *watchlist.AlertChecker, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		checker: checker,
		log:     log.With().Str("handler", "watchlist").Logger(),
	}
}

// HandleAddAlert handles POST /api/watchlist?stock_id=&target_price=&direction=
func (h *Handler) HandleAddAlert(w http.ResponseWriter, r *http.Request) {
	stockID, err := utils.IDQuery(r, "stock_id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	raw := r.URL.Query().Get("target_price")
	target, err := decimal.NewFromString(raw)
	if err != nil {
		utils.WriteServiceError(w, h.log, domain.NewValidationError("target_price must be a number, got %q", raw))
		return
	}

	entry, err := h.service.AddAlert(r.Context(), stockID, target, r.URL.Query().Get("direction"))
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, entry)
}

// HandleAddStock handles POST /api/watchlist/stock?stock_id=
func (h *Handler) HandleAddStock(w http.ResponseWriter, r *http.Request) {
	stockID, err := utils.IDQuery(r, "stock_id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	entry, err := h.service.AddStock(r.Context(), stockID)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, entry)
}

// HandleRemove handles DELETE /api/watchlist/{entryID}
func (h *Handler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "entryID")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleList handles GET /api/watchlist and GET /api/watchlist/all
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, entries)
}

// HandleCheck handles POST /api/watchlist/check
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	result, err := h.checker.Check(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}
