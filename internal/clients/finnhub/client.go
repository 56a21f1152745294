// Package finnhub provides a client for the Finnhub stock API.
// It serves real-time quotes, company profiles and symbol lookup and
// implements domain.QuoteProvider.
package finnhub

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

const (
	defaultBaseURL = "https://finnhub.io/api/v1"
	upstreamName   = "finnhub"
)

// quoteResponse mirrors /quote
type quoteResponse struct {
	Current       decimal.Decimal `json:"c"`
	Change        decimal.Decimal `json:"d"`
	ChangePercent decimal.Decimal `json:"dp"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	Open          decimal.Decimal `json:"o"`
	PreviousClose decimal.Decimal `json:"pc"`
	Timestamp     int64           `json:"t"`
}

// profileResponse mirrors /stock/profile2
type profileResponse struct {
	Name              string  `json:"name"`
	Ticker            string  `json:"ticker"`
	Exchange          string  `json:"exchange"`
	Industry          string  `json:"finnhubIndustry"`
	Logo              string  `json:"logo"`
	Currency          string  `json:"currency"`
	MarketCap         float64 `json:"marketCapitalization"`
	SharesOutstanding float64 `json:"shareOutstanding"`
}

// searchResponse mirrors /search
type searchResponse struct {
	Result []struct {
		Description   string `json:"description"`
		DisplaySymbol string `json:"displaySymbol"`
		Symbol        string `json:"symbol"`
		Type          string `json:"type"`
	} `json:"result"`
	Count int `json:"count"`
}

// Client is the Finnhub API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger
}

var _ domain.QuoteProvider = (*Client)(nil)

// NewClient creates a new Finnhub client. An empty baseURL selects the public API.
func NewClient(apiKey, baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log.With().Str("client", upstreamName).Logger(),
	}
}

// GetQuote returns the real-time quote for symbol
func (c *Client) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var resp quoteResponse
	if err := c.get(ctx, "/quote", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	// Finnhub answers unknown symbols with an all-zero quote
	if resp.Current.IsZero() && resp.Timestamp == 0 {
		return nil, domain.NewNotFoundError("Quote", symbol)
	}

	ts := time.Now().UTC()
	if resp.Timestamp > 0 {
		ts = time.Unix(resp.Timestamp, 0).UTC()
	}

	return &domain.Quote{
		Timestamp:     ts,
		Symbol:        symbol,
		Price:         resp.Current,
		Change:        resp.Change,
		ChangePercent: resp.ChangePercent,
		High:          resp.High,
		Low:           resp.Low,
		Open:          resp.Open,
		PreviousClose: resp.PreviousClose,
	}, nil
}

// GetCompanyProfile returns descriptive data for symbol
func (c *Client) GetCompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	var resp profileResponse
	if err := c.get(ctx, "/stock/profile2", url.Values{"symbol": {symbol}}, &resp); err != nil {
		return nil, err
	}
	if resp.Ticker == "" && resp.Name == "" {
		return nil, domain.NewNotFoundError("Company profile", symbol)
	}

	return &domain.CompanyProfile{
		Name:              resp.Name,
		Ticker:            resp.Ticker,
		Exchange:          resp.Exchange,
		Industry:          resp.Industry,
		Logo:              resp.Logo,
		Currency:          resp.Currency,
		MarketCap:         resp.MarketCap,
		SharesOutstanding: resp.SharesOutstanding,
	}, nil
}

// SymbolLookup searches symbols and company names matching query
func (c *Client) SymbolLookup(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	var resp searchResponse
	if err := c.get(ctx, "/search", url.Values{"q": {query}}, &resp); err != nil {
		return nil, err
	}

	matches := make([]domain.SymbolMatch, 0, len(resp.Result))
	for _, r := range resp.Result {
		matches = append(matches, domain.SymbolMatch{
			Symbol:      r.Symbol,
			Description: r.Description,
			Type:        r.Type,
		})
	}
	return matches, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Finnhub-Token", c.apiKey)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &UpstreamError{Path: path, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &UpstreamError{Path: path, Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Finnhub request")

	if resp.StatusCode != http.StatusOK {
		return &UpstreamError{Path: path, Status: resp.StatusCode, Message: errorMessage(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &UpstreamError{Path: path, Status: resp.StatusCode, Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return nil
}

// errorMessage extracts Finnhub's {"error": "..."} body when present
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// UpstreamError is a failed Finnhub call
type UpstreamError struct {
	Path    string
	Message string
	Status  int
}

func (e *UpstreamError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("finnhub %s failed (status %d): %s", e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("finnhub %s failed: %s", e.Path, e.Message)
}

// Upstream names the failing provider
func (e *UpstreamError) Upstream() string { return upstreamName }
