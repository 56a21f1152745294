package utils

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// UpstreamError is implemented by market-data client errors so handlers can answer 502
type UpstreamError interface {
	error
	Upstream() string
}

// WriteJSON writes data as a JSON response with the given status
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes {"error": message}
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, map[string]string{"error": message})
}

// WriteServiceError maps a service error to its HTTP status.
// NotFound -> 404, Validation -> 400, upstream market data -> 502, anything else -> 500.
func WriteServiceError(w http.ResponseWriter, log zerolog.Logger, err error) {
	var upstream UpstreamError
	switch {
	case domain.IsNotFound(err):
		WriteError(w, http.StatusNotFound, err.Error())
	case domain.IsValidation(err):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &upstream):
		log.Warn().Err(err).Str("upstream", upstream.Upstream()).Msg("Market data provider failed")
		WriteError(w, http.StatusBadGateway, err.Error())
	default:
		log.Error().Err(err).Msg("Request failed")
		WriteError(w, http.StatusInternalServerError, "internal server error")
	}
}

// IDParam parses a positive integer URL parameter
func IDParam(r *http.Request, name string) (int64, error) {
	return parsePositiveID(chi.URLParam(r, name), name)
}

// IDQuery parses a positive integer query parameter
func IDQuery(r *http.Request, name string) (int64, error) {
	return parsePositiveID(r.URL.Query().Get(name), name)
}

func parsePositiveID(raw, name string) (int64, error) {
	if raw == "" {
		return 0, domain.NewValidationError("%s is required", name)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("%s must be a positive integer, got %q", name, raw)
	}
	return id, nil
}
