// Package handlers provides HTTP handlers for portfolio management and reporting.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles portfolio HTTP requests
type Handler struct {
	service *portfolio.Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service *portfolio.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleList handles GET /portfolios
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /portfolios and POST /portfolios/create
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in portfolio.PortfolioInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.Create(r.Context(), in)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusCreated, p)
}

// HandleSummary handles GET /portfolios/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, summary)
}

// HandleGet handles GET /portfolios/{id}
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id int64) (any, error) {
		return h.service.Get(r.Context(), id)
	})
}

// HandleUpdate handles PUT /portfolios/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	var in portfolio.PortfolioInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := h.service.Update(r.Context(), id, in)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

// HandleDelete handles DELETE /portfolios/{id}
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

// HandleDashboard handles GET /portfolios/{id}/dashboard
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id int64) (any, error) {
		return h.service.Dashboard(r.Context(), id)
	})
}

// HandlePerformance handles GET /portfolios/{id}/performance
func (h *Handler) HandlePerformance(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id int64) (any, error) {
		return h.service.Performance(r.Context(), id)
	})
}

// HandleAllocation handles GET /portfolios/{id}/allocation
func (h *Handler) HandleAllocation(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id int64) (any, error) {
		return h.service.Allocation(r.Context(), id)
	})
}

// HandleHoldings handles GET /portfolios/{id}/holdings
func (h *Handler) HandleHoldings(w http.ResponseWriter, r *http.Request) {
	h.withID(w, r, func(id int64) (any, error) {
		return h.service.Holdings(r.Context(), id)
	})
}

type closeRequest struct {
	Liquidate bool `json:"liquidate"`
}

// HandleClose handles POST /portfolios/{id}/close.
// liquidate comes from ?liquidate= or a {"liquidate": bool} body.
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}

	var req closeRequest
	if raw := r.URL.Query().Get("liquidate"); raw != "" {
		req.Liquidate, err = strconv.ParseBool(raw)
		if err != nil {
			utils.WriteServiceError(w, h.log, domain.NewValidationError("liquidate must be true or false, got %q", raw))
			return
		}
	} else if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		utils.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.service.Close(r.Context(), id, req.Liquidate)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) withID(w http.ResponseWriter, r *http.Request, fn func(id int64) (any, error)) {
	id, err := utils.IDParam(r, "id")
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	result, err := fn(id)
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}
