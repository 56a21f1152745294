package stocks

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// StockInput is the writable part of a stock
type StockInput struct {
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Sector   string `json:"sector"`
	Market   string `json:"market"`
	Currency string `json:"currency"`
	ISIN     string `json:"isin"`
	CUSIP    string `json:"cusip"`
}

// Service provides stock reference data, price history and live quotes
type Service struct {
	stocks StockRepositoryInterface
	prices *PriceHistoryRepository
	quotes domain.QuoteProvider
	log    zerolog.Logger
}

// NewService creates a new stock service
func NewService(
	stocks StockRepositoryInterface,
	prices *PriceHistoryRepository,
	quotes domain.QuoteProvider,
	log zerolog.Logger,
) *Service {
	return &Service{
		stocks: stocks,
		prices: prices,
		quotes: quotes,
		log:    log.With().Str("service", "stocks").Logger(),
	}
}

// List returns all stocks
func (s *Service) List(ctx context.Context) ([]domain.Stock, error) {
	return s.stocks.List(ctx)
}

// Get returns one stock
func (s *Service) Get(ctx context.Context, id int64) (*domain.Stock, error) {
	return s.stocks.GetByID(ctx, id)
}

// Create validates and stores a new stock
func (s *Service) Create(ctx context.Context, in StockInput) (*domain.Stock, error) {
	stock, err := in.toStock()
	if err != nil {
		return nil, err
	}
	stock.CreatedAt = time.Now().UTC()

	if err := s.stocks.Create(ctx, stock); err != nil {
		return nil, err
	}
	s.log.Info().Int64("stock_id", stock.ID).Str("ticker", stock.Ticker).Msg("Stock created")
	return stock, nil
}

// Update replaces the mutable fields of a stock
func (s *Service) Update(ctx context.Context, id int64, in StockInput) (*domain.Stock, error) {
	existing, err := s.stocks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := in.toStock()
	if err != nil {
		return nil, err
	}
	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt

	if err := s.stocks.Update(ctx, updated); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a stock that no order or holding references
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.stocks.GetByID(ctx, id); err != nil {
		return err
	}

	orders, holdings, err := s.stocks.CountReferences(ctx, id)
	if err != nil {
		return err
	}
	if orders > 0 || holdings > 0 {
		return domain.NewValidationError("cannot delete stock %d: referenced by %d orders and %d holdings", id, orders, holdings)
	}

	if err := s.stocks.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().Int64("stock_id", id).Msg("Stock deleted")
	return nil
}

// PriceHistory returns the stock's recorded prices, newest first
func (s *Service) PriceHistory(ctx context.Context, stockID int64) ([]domain.PriceHistory, error) {
	if _, err := s.stocks.GetByID(ctx, stockID); err != nil {
		return nil, err
	}
	return s.prices.ListByStock(ctx, stockID)
}

// RecordPrice appends a price observation for the stock
func (s *Service) RecordPrice(ctx context.Context, stockID int64, price decimal.Decimal, at time.Time) (*domain.PriceHistory, error) {
	if !price.IsPositive() {
		return nil, domain.NewValidationError("price must be greater than 0")
	}
	if _, err := s.stocks.GetByID(ctx, stockID); err != nil {
		return nil, err
	}
	return s.prices.Record(ctx, stockID, price, at)
}

// LiveQuote fetches a real-time quote for a stored stock
func (s *Service) LiveQuote(ctx context.Context, stockID int64) (*domain.Quote, error) {
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	return s.quotes.GetQuote(ctx, stock.Ticker)
}

// LiveQuoteBySymbol fetches a real-time quote for any ticker
func (s *Service) LiveQuoteBySymbol(ctx context.Context, symbol string) (*domain.Quote, error) {
	symbol, err := normalizeTicker(symbol)
	if err != nil {
		return nil, err
	}
	return s.quotes.GetQuote(ctx, symbol)
}

// CompanyProfile fetches descriptive data for a ticker
func (s *Service) CompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	symbol, err := normalizeTicker(symbol)
	if err != nil {
		return nil, err
	}
	return s.quotes.GetCompanyProfile(ctx, symbol)
}

// Search looks up symbols matching a free-text query
func (s *Service) Search(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.NewValidationError("search query is required")
	}
	return s.quotes.SymbolLookup(ctx, query)
}

func (in StockInput) toStock() (*domain.Stock, error) {
	ticker, err := normalizeTicker(in.Ticker)
	if err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = "USD"
	}
	if len(currency) != 3 {
		return nil, domain.NewValidationError("currency must be a 3-letter code, got %q", in.Currency)
	}

	return &domain.Stock{
		Ticker:   ticker,
		Name:     strings.TrimSpace(in.Name),
		Sector:   strings.TrimSpace(in.Sector),
		Market:   strings.TrimSpace(in.Market),
		Currency: currency,
		ISIN:     strings.ToUpper(strings.TrimSpace(in.ISIN)),
		CUSIP:    strings.ToUpper(strings.TrimSpace(in.CUSIP)),
	}, nil
}

func normalizeTicker(raw string) (string, error) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" {
		return "", domain.NewValidationError("ticker is required")
	}
	if len(ticker) > 16 {
		return "", domain.NewValidationError("ticker %q is too long", ticker)
	}
	return ticker, nil
}
