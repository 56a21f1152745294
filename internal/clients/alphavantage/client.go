// Package alphavantage provides a client for the Alpha Vantage market data API.
// Alpha Vantage serves daily and intraday bars, global quotes and symbol search.
// The free tier allows a small number of requests per day, so the client keeps
// its own daily budget and refuses requests once it is spent.
package alphavantage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PaesslerAG/jsonpath"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	defaultBaseURL    = "https://www.alphavantage.co/query"
	defaultDailyLimit = 25 // Free tier
	upstreamName      = "alphavantage"
)

// Series keys in Alpha Vantage time series payloads
const (
	seriesDaily    = "Time Series (Daily)"
	seriesIntraday = "Time Series (5min)"
)

// GlobalQuote is the latest quote for a symbol
type GlobalQuote struct {
	Symbol           string          `json:"symbol"`
	LatestTradingDay string          `json:"latest_trading_day"`
	Price            decimal.Decimal `json:"price"`
	Change           decimal.Decimal `json:"change"`
	ChangePercent    decimal.Decimal `json:"change_percent"`
	Open             decimal.Decimal `json:"open"`
	High             decimal.Decimal `json:"high"`
	Low              decimal.Decimal `json:"low"`
	PreviousClose    decimal.Decimal `json:"previous_close"`
	Volume           int64           `json:"volume"`
}

// Bar is one OHLCV data point of a time series
type Bar struct {
	Time   time.Time       `json:"timestamp"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// SymbolMatch is one bestMatches entry of a symbol search
type SymbolMatch struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	Region   string `json:"region"`
	Currency string `json:"currency"`
}

// Client is the Alpha Vantage API client.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	log        zerolog.Logger

	now        func() time.Time
	mu         sync.Mutex
	dailyLimit int
	used       int
	resetAt    time.Time
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another endpoint
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithDailyLimit overrides the daily request budget
func WithDailyLimit(limit int) Option {
	return func(c *Client) {
		if limit > 0 {
			c.dailyLimit = limit
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Alpha Vantage client.
func NewClient(apiKey string, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		baseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		log:        log.With().Str("client", upstreamName).Logger(),
		now:        time.Now,
		dailyLimit: defaultDailyLimit,
		resetAt:    nextMidnightUTC(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetRemainingRequests returns how many requests are left in today's budget
func (c *Client) GetRemainingRequests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	return c.dailyLimit - c.used
}

// ResetDailyCounter restores the full daily budget
func (c *Client) ResetDailyCounter() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.used = 0
	c.resetAt = nextMidnightUTC()
	c.log.Info().Int("limit", c.dailyLimit).Msg("Daily request counter reset")
}

// checkRateLimit consumes one request from the budget
func (c *Client) checkRateLimit() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rolloverLocked()
	if c.used >= c.dailyLimit {
		return ErrRateLimitExceeded{}
	}
	c.used++
	return nil
}

func (c *Client) rolloverLocked() {
	if c.now().UTC().Before(c.resetAt) {
		return
	}
	c.used = 0
	c.resetAt = midnightAfter(c.now())
}

// GlobalQuote fetches the latest quote for symbol
func (c *Client) GlobalQuote(ctx context.Context, symbol string) (*GlobalQuote, error) {
	body, err := c.query(ctx, "GLOBAL_QUOTE", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	quote, err := parseGlobalQuote(body)
	if err != nil {
		return nil, err
	}
	if quote == nil {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}
	return quote, nil
}

// Daily fetches the compact daily series for symbol, newest first
func (c *Client) Daily(ctx context.Context, symbol string) ([]Bar, error) {
	body, err := c.query(ctx, "TIME_SERIES_DAILY", url.Values{"symbol": {symbol}})
	if err != nil {
		return nil, err
	}
	bars, err := parseDailyTimeSeries(body)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}
	return bars, nil
}

// Intraday fetches 5 minute bars for symbol, newest first
func (c *Client) Intraday(ctx context.Context, symbol string) ([]Bar, error) {
	body, err := c.query(ctx, "TIME_SERIES_INTRADAY", url.Values{
		"symbol":   {symbol},
		"interval": {"5min"},
	})
	if err != nil {
		return nil, err
	}
	bars, err := parseIntraday(body)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return nil, ErrSymbolNotFound{Symbol: symbol}
	}
	return bars, nil
}

// Search finds symbols matching keywords
func (c *Client) Search(ctx context.Context, keywords string) ([]SymbolMatch, error) {
	body, err := c.query(ctx, "SYMBOL_SEARCH", url.Values{"keywords": {keywords}})
	if err != nil {
		return nil, err
	}
	return parseSymbolSearch(body)
}

func (c *Client) query(ctx context.Context, function string, params url.Values) ([]byte, error) {
	if err := c.checkRateLimit(); err != nil {
		c.log.Warn().Str("function", function).Msg("Daily request budget exhausted")
		return nil, err
	}

	params.Set("function", function)
	params.Set("apikey", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("failed to read response: %v", err)}
	}

	c.log.Debug().
		Str("function", function).
		Str("symbol", params.Get("symbol")).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("Alpha Vantage request")

	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	if err := c.checkAPIError(body); err != nil {
		return nil, err
	}
	return body, nil
}

// checkAPIError detects the error payloads Alpha Vantage returns with status 200
func (c *Client) checkAPIError(body []byte) error {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return &APIError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}

	if msg, ok := payload["Error Message"].(string); ok {
		if strings.Contains(strings.ToLower(msg), "apikey") {
			return ErrInvalidAPIKey{}
		}
		return &APIError{Message: msg}
	}
	for _, key := range []string{"Note", "Information"} {
		msg, ok := payload[key].(string)
		if !ok {
			continue
		}
		if strings.Contains(msg, "Thank you for using Alpha Vantage") || strings.Contains(strings.ToLower(msg), "rate limit") {
			return ErrRateLimitExceeded{}
		}
		if key == "Note" {
			return &APIError{Message: msg}
		}
	}
	return nil
}

func decode(body []byte) (any, error) {
	var obj any
	if err := json.Unmarshal(body, &obj); err != nil {
		return nil, &APIError{Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	return obj, nil
}

// lookup evaluates a JSONPath and unwraps single-element results
func lookup(path string, obj any) (any, bool) {
	val, err := jsonpath.Get(path, obj)
	if err != nil {
		return nil, false
	}
	if list, ok := val.([]any); ok {
		if len(list) == 0 {
			return nil, false
		}
		val = list[0]
	}
	return val, val != nil
}

func lookupString(path string, obj any) string {
	val, ok := lookup(path, obj)
	if !ok {
		return ""
	}
	s, _ := val.(string)
	return s
}

// parseGlobalQuote returns nil when the payload holds an empty quote
func parseGlobalQuote(body []byte) (*GlobalQuote, error) {
	obj, err := decode(body)
	if err != nil {
		return nil, err
	}
	raw, ok := lookup(`$["Global Quote"]`, obj)
	if !ok {
		return nil, nil
	}
	fields, ok := raw.(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, nil
	}

	field := func(name string) string {
		return lookupString(`$["`+name+`"]`, fields)
	}

	return &GlobalQuote{
		Symbol:           field("01. symbol"),
		Open:             parseDecimal(field("02. open")),
		High:             parseDecimal(field("03. high")),
		Low:              parseDecimal(field("04. low")),
		Price:            parseDecimal(field("05. price")),
		Volume:           parseInt64(field("06. volume")),
		LatestTradingDay: field("07. latest trading day"),
		PreviousClose:    parseDecimal(field("08. previous close")),
		Change:           parseDecimal(field("09. change")),
		ChangePercent:    parseDecimal(field("10. change percent")),
	}, nil
}

func parseDailyTimeSeries(body []byte) ([]Bar, error) {
	return parseTimeSeries(body, seriesDaily)
}

func parseIntraday(body []byte) ([]Bar, error) {
	return parseTimeSeries(body, seriesIntraday)
}

func parseTimeSeries(body []byte, key string) ([]Bar, error) {
	obj, err := decode(body)
	if err != nil {
		return nil, err
	}
	raw, ok := lookup(`$["`+key+`"]`, obj)
	if !ok {
		return nil, nil
	}
	series, ok := raw.(map[string]any)
	if !ok {
		return nil, &APIError{Message: fmt.Sprintf("unexpected %s payload", key)}
	}

	bars := make([]Bar, 0, len(series))
	for stamp, point := range series {
		ts := parseDateTime(stamp)
		if ts.IsZero() {
			continue
		}
		bars = append(bars, Bar{
			Time:   ts,
			Open:   parseDecimal(lookupString(`$["1. open"]`, point)),
			High:   parseDecimal(lookupString(`$["2. high"]`, point)),
			Low:    parseDecimal(lookupString(`$["3. low"]`, point)),
			Close:  parseDecimal(lookupString(`$["4. close"]`, point)),
			Volume: parseInt64(lookupString(`$["5. volume"]`, point)),
		})
	}

	sort.Slice(bars, func(i, j int) bool {
		return bars[i].Time.After(bars[j].Time)
	})
	return bars, nil
}

func parseSymbolSearch(body []byte) ([]SymbolMatch, error) {
	obj, err := decode(body)
	if err != nil {
		return nil, err
	}
	raw, err := jsonpath.Get(`$.bestMatches`, obj)
	if err != nil {
		return []SymbolMatch{}, nil
	}
	list, _ := raw.([]any)

	matches := make([]SymbolMatch, 0, len(list))
	for _, m := range list {
		matches = append(matches, SymbolMatch{
			Symbol:   lookupString(`$["1. symbol"]`, m),
			Name:     lookupString(`$["2. name"]`, m),
			Type:     lookupString(`$["3. type"]`, m),
			Region:   lookupString(`$["4. region"]`, m),
			Currency: lookupString(`$["8. currency"]`, m),
		})
	}
	return matches, nil
}

// parseDecimal treats Alpha Vantage's placeholders as zero and strips percent signs
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSuffix(strings.TrimSpace(s), "%")
	switch s {
	case "", "None", "null", "-":
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func parseInt64(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "None" {
		return 0
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

func parseDateTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// nextMidnightUTC returns the start of the next UTC day
func nextMidnightUTC() time.Time {
	return midnightAfter(time.Now())
}

func midnightAfter(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}
