// Package marketdata serves live prices, price history, search and technical
// indicators from the Alpha Vantage provider behind in-memory TTL caches.
package marketdata

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/cache"
	"github.com/aristath/stockfolio/internal/clients/alphavantage"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/pkg/formulas"
)

// PopularSymbols are the symbols shown on the dashboard ticker
var PopularSymbols = []string{"AAPL", "GOOGL", "MSFT", "AMZN", "TSLA", "META", "NVDA", "NFLX"}

// Indicator windows
const (
	smaPeriod = 20
	emaPeriod = 20
	rsiPeriod = 14
)

// History periods
const (
	PeriodDaily    = "daily"
	PeriodIntraday = "intraday"
)

// Provider is the subset of the Alpha Vantage client the service needs
type Provider interface {
	GlobalQuote(ctx context.Context, symbol string) (*alphavantage.GlobalQuote, error)
	Daily(ctx context.Context, symbol string) ([]alphavantage.Bar, error)
	Intraday(ctx context.Context, symbol string) ([]alphavantage.Bar, error)
	Search(ctx context.Context, keywords string) ([]alphavantage.SymbolMatch, error)
}

// LivePrice is a cached global quote
type LivePrice struct {
	Timestamp        time.Time       `json:"timestamp"`
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

// BatchItem is one result of a batch lookup. A failed symbol carries only Symbol and Error.
type BatchItem struct {
	*LivePrice
	Symbol string `json:"symbol"`
	Error  string `json:"error,omitempty"`
}

// History is a time series for charts, newest first
type History struct {
	LastUpdated time.Time          `json:"last_updated"`
	Symbol      string             `json:"symbol"`
	Period      string             `json:"period"`
	Data        []alphavantage.Bar `json:"data"`
}

// Indicators are technical indicators over the daily closes
type Indicators struct {
	Symbol      string          `json:"symbol"`
	LatestClose decimal.Decimal `json:"latest_close"`
	SMA20       *float64        `json:"sma_20"`
	EMA20       *float64        `json:"ema_20"`
	RSI14       *float64        `json:"rsi_14"`
	DataPoints  int             `json:"data_points"`
}

// Service is the cached market data facade
type Service struct {
	provider Provider
	quotes   *cache.TTLCache[*LivePrice]
	series   *cache.TTLCache[[]alphavantage.Bar]
	searches *cache.TTLCache[[]alphavantage.SymbolMatch]
	now      func() time.Time
	log      zerolog.Logger
}

// NewService creates a market data service whose live quotes live for quoteTTL
func NewService(provider Provider, quoteTTL time.Duration, log zerolog.Logger) *Service {
	if quoteTTL <= 0 {
		quoteTTL = cache.TTLLivePrice
	}
	return &Service{
		provider: provider,
		quotes:   cache.New[*LivePrice](quoteTTL),
		series:   cache.New[[]alphavantage.Bar](cache.TTLDaily),
		searches: cache.New[[]alphavantage.SymbolMatch](cache.TTLSearch),
		now:      time.Now,
		log:      log.With().Str("service", "marketdata").Logger(),
	}
}

// Caches exposes the caches to the cleanup job
func (s *Service) Caches() map[string]cache.Purger {
	return map[string]cache.Purger{
		"live_prices": s.quotes,
		"series":      s.series,
		"search":      s.searches,
	}
}

// ClearCache drops every cached entry
func (s *Service) ClearCache() {
	s.quotes.Clear()
	s.series.Clear()
	s.searches.Clear()
	s.log.Info().Msg("Market data cache cleared")
}

// GetLivePrice returns the latest quote for symbol, served from cache within the TTL
func (s *Service) GetLivePrice(ctx context.Context, symbol string) (*LivePrice, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}

	return s.quotes.GetOrLoad("quote:"+symbol, s.quotes.TTL(), func() (*LivePrice, error) {
		q, err := s.provider.GlobalQuote(ctx, symbol)
		if err != nil {
			return nil, err
		}
		return &LivePrice{
			Timestamp:        s.now().UTC(),
			Symbol:           q.Symbol,
			LatestTradingDay: q.LatestTradingDay,
			Price:            q.Price,
			Change:           q.Change,
			ChangePercent:    q.ChangePercent,
			Open:             q.Open,
			High:             q.High,
			Low:              q.Low,
			PreviousClose:    q.PreviousClose,
			Volume:           q.Volume,
		}, nil
	})
}

// GetLivePrices looks up each symbol in order. A failure is reported in place
// and does not stop the batch.
func (s *Service) GetLivePrices(ctx context.Context, symbols []string) ([]BatchItem, error) {
	if len(symbols) == 0 {
		return nil, domain.NewValidationError("at least one symbol is required")
	}

	items := make([]BatchItem, 0, len(symbols))
	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		price, err := s.GetLivePrice(ctx, symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", symbol).Msg("Live price lookup failed")
			items = append(items, BatchItem{Symbol: symbol, Error: err.Error()})
			continue
		}
		items = append(items, BatchItem{LivePrice: price, Symbol: price.Symbol})
	}
	return items, nil
}

// PopularStocks runs the batch lookup over PopularSymbols
func (s *Service) PopularStocks(ctx context.Context) ([]BatchItem, error) {
	return s.GetLivePrices(ctx, PopularSymbols)
}

// GetHistory returns the series for period (daily when empty)
func (s *Service) GetHistory(ctx context.Context, symbol, period string) (*History, error) {
	switch strings.ToLower(strings.TrimSpace(period)) {
	case "", PeriodDaily:
		return s.history(ctx, symbol, PeriodDaily)
	case PeriodIntraday:
		return s.history(ctx, symbol, PeriodIntraday)
	default:
		return nil, domain.NewValidationError("period must be %q or %q, got %q", PeriodDaily, PeriodIntraday, period)
	}
}

// GetIntraday returns 5 minute bars for symbol
func (s *Service) GetIntraday(ctx context.Context, symbol string) (*History, error) {
	return s.history(ctx, symbol, PeriodIntraday)
}

func (s *Service) history(ctx context.Context, symbol, period string) (*History, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	bars, err := s.bars(ctx, symbol, period)
	if err != nil {
		return nil, err
	}
	return &History{
		LastUpdated: s.now().UTC(),
		Symbol:      symbol,
		Period:      period,
		Data:        bars,
	}, nil
}

func (s *Service) bars(ctx context.Context, symbol, period string) ([]alphavantage.Bar, error) {
	if period == PeriodIntraday {
		return s.series.GetOrLoad(period+":"+symbol, cache.TTLIntraday, func() ([]alphavantage.Bar, error) {
			return s.provider.Intraday(ctx, symbol)
		})
	}
	return s.series.GetOrLoad(period+":"+symbol, cache.TTLDaily, func() ([]alphavantage.Bar, error) {
		return s.provider.Daily(ctx, symbol)
	})
}

// Search finds symbols matching query
func (s *Service) Search(ctx context.Context, query string) ([]alphavantage.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("search query is required")
	}
	return s.searches.GetOrLoad("search:"+strings.ToLower(query), cache.TTLSearch, func() ([]alphavantage.SymbolMatch, error) {
		return s.provider.Search(ctx, query)
	})
}

// Indicators computes SMA, EMA and RSI over the daily closes of symbol
func (s *Service) Indicators(ctx context.Context, symbol string) (*Indicators, error) {
	symbol, err := normalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	bars, err := s.bars(ctx, symbol, PeriodDaily)
	if err != nil {
		return nil, err
	}

	// bars are newest first, the formulas want oldest first
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[len(bars)-1-i] = b.Close.InexactFloat64()
	}

	ind := &Indicators{
		Symbol:     symbol,
		SMA20:      formulas.CalculateSMA(closes, smaPeriod),
		EMA20:      formulas.CalculateEMA(closes, emaPeriod),
		RSI14:      formulas.CalculateRSI(closes, rsiPeriod),
		DataPoints: len(bars),
	}
	if len(bars) > 0 {
		ind.LatestClose = bars[0].Close
	}
	return ind, nil
}

func normalizeSymbol(symbol string) (string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return "", domain.NewValidationError("symbol is required")
	}
	return symbol, nil
}
