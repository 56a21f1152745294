package watchlist

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// StockLookup resolves a stock by id
type StockLookup interface {
	GetByID(ctx context.Context, id int64) (*domain.Stock, error)
}

// Service manages watchlist entries
type Service struct {
	repo   RepositoryInterface
	stocks StockLookup
	log    zerolog.Logger
}

// NewService creates a new watchlist service
func NewService(repo RepositoryInterface, stocks StockLookup, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		stocks: stocks,
		log:    log.With().Str("service", "watchlist").Logger(),
	}
}

// AddAlert watches a stock with a target price alert
func (s *Service) AddAlert(ctx context.Context, stockID int64, target decimal.Decimal, direction string) (*domain.WatchlistEntry, error) {
	if !target.IsPositive() {
		return nil, domain.NewValidationError("target price must be greater than 0")
	}
	dir, err := domain.ParseAlertDirection(direction)
	if err != nil {
		return nil, err
	}
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}

	e := &domain.WatchlistEntry{
		StockID:     stock.ID,
		Ticker:      stock.Ticker,
		TargetPrice: decimal.NewNullDecimal(target),
		Direction:   dir,
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}

	s.log.Info().
		Int64("entry_id", e.ID).
		Str("ticker", stock.Ticker).
		Str("target", target.String()).
		Str("direction", string(dir)).
		Msg("Price alert added")
	return e, nil
}

// AddStock watches a stock without an alert
func (s *Service) AddStock(ctx context.Context, stockID int64) (*domain.WatchlistEntry, error) {
	stock, err := s.stocks.GetByID(ctx, stockID)
	if err != nil {
		return nil, err
	}
	e := &domain.WatchlistEntry{StockID: stock.ID, Ticker: stock.Ticker}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info().Int64("entry_id", e.ID).Str("ticker", stock.Ticker).Msg("Stock added to watchlist")
	return e, nil
}

// Remove deletes an entry
func (s *Service) Remove(ctx context.Context, entryID int64) error {
	if err := s.repo.Delete(ctx, entryID); err != nil {
		return err
	}
	s.log.Info().Int64("entry_id", entryID).Msg("Watchlist entry removed")
	return nil
}

// List returns every entry
func (s *Service) List(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return s.repo.List(ctx)
}
