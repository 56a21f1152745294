package utils

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/domain"
)

type fakeUpstream struct{}

func (fakeUpstream) Error() string    { return "finnhub: 429 Too Many Requests" }
func (fakeUpstream) Upstream() string { return "finnhub" }

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		body   string
	}{
		{"not found", domain.NewNotFoundError("Order", 9), http.StatusNotFound, "Order not found with id: 9"},
		{"validation", fmt.Errorf("wrapped: %w", domain.NewValidationError("bad status")), http.StatusBadRequest, "bad status"},
		{"upstream", fmt.Errorf("quote: %w", fakeUpstream{}), http.StatusBadGateway, "429"},
		{"internal", errors.New("disk I/O error"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			WriteServiceError(rec, zerolog.Nop(), tt.err)
			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestIDParam(t *testing.T) {
	r := chi.NewRouter()
	var got int64
	var gotErr error
	r.Get("/items/{id}", func(w http.ResponseWriter, req *http.Request) {
		got, gotErr = IDParam(req, "id")
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/42", nil))
	require.NoError(t, gotErr)
	assert.Equal(t, int64(42), got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/abc", nil))
	assert.True(t, domain.IsValidation(gotErr))

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/-3", nil))
	assert.True(t, domain.IsValidation(gotErr))
}

func TestIDQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/orders/history?portfolio_id=7", nil)
	id, err := IDQuery(req, "portfolio_id")
	require.NoError(t, err)
	assert.Equal(t, int64(7), id)

	req = httptest.NewRequest(http.MethodGet, "/orders/history", nil)
	_, err = IDQuery(req, "portfolio_id")
	assert.True(t, domain.IsValidation(err))
}
