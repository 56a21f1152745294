// Package handlers provides HTTP handlers for the order simulator.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/simulator"
	"github.com/aristath/stockfolio/internal/utils"
)

// Handler handles simulator HTTP requests
type Handler struct {
	sim *simulator.Simulator
	log zerolog.Logger
}

// NewHandler creates a new simulator handler
func NewHandler(sim *simulator.Simulator, log zerolog.Logger) *Handler {
	return &Handler{
		sim: sim,
		log: log.With().Str("handler", "simulator").Logger(),
	}
}

// HandleStats handles GET /simulator/stats
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.sim.Stats(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, stats)
}

// HandleUpdateSettings handles PUT /simulator/settings?failure_rate=N
func (h *Handler) HandleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("failure_rate")
	rate, err := strconv.Atoi(raw)
	if err != nil {
		utils.WriteServiceError(w, h.log, domain.NewValidationError("failure_rate must be an integer, got %q", raw))
		return
	}
	applied := h.sim.SetFailureRate(rate)
	utils.WriteJSON(w, http.StatusOK, map[string]any{
		"message":      "Simulator settings updated",
		"failure_rate": applied,
	})
}

// HandleRunSend handles POST /simulator/run/send
func (h *Handler) HandleRunSend(w http.ResponseWriter, r *http.Request) {
	result, err := h.sim.SendOrdersToExchange(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}

// HandleRunProcess handles POST /simulator/run/process
func (h *Handler) HandleRunProcess(w http.ResponseWriter, r *http.Request) {
	result, err := h.sim.ProcessExchangeResponses(r.Context())
	if err != nil {
		utils.WriteServiceError(w, h.log, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, result)
}
