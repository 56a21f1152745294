package alphavantage

import (
	"fmt"

	"github.com/aristath/stockfolio/internal/domain"
)

// ErrRateLimitExceeded is returned once the daily budget is spent or Alpha Vantage throttles us
type ErrRateLimitExceeded struct{}

func (ErrRateLimitExceeded) Error() string {
	return "alpha vantage rate limit exceeded, please try again later"
}

// Upstream names the failing provider
func (ErrRateLimitExceeded) Upstream() string { return upstreamName }

// ErrInvalidAPIKey is returned when Alpha Vantage rejects the key
type ErrInvalidAPIKey struct{}

func (ErrInvalidAPIKey) Error() string {
	return "alpha vantage rejected the API key as invalid"
}

// Upstream names the failing provider
func (ErrInvalidAPIKey) Upstream() string { return upstreamName }

// ErrSymbolNotFound is returned when a payload carries no data for a symbol
type ErrSymbolNotFound struct {
	Symbol string
}

func (e ErrSymbolNotFound) Error() string {
	return fmt.Sprintf("no data found for symbol: %s", e.Symbol)
}

// Is lets handlers treat a missing symbol as a not-found lookup
func (e ErrSymbolNotFound) Is(target error) bool {
	return target == domain.ErrNotFound
}

// APIError is any other failure talking to Alpha Vantage
type APIError struct {
	Message string
	Status  int
}

func (e *APIError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("alpha vantage error (status %d): %s", e.Status, e.Message)
	}
	return "alpha vantage error: " + e.Message
}

// Upstream names the failing provider
func (e *APIError) Upstream() string { return upstreamName }
