package portfolio

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// HoldingsLedger maps (portfolio, stock) to an owned quantity.
// A stored holding always has a positive quantity.
type HoldingsLedger interface {
	Get(ctx context.Context, portfolioID, stockID int64) (*domain.Holding, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Holding, error)
	Persist(ctx context.Context, h *domain.Holding) error
	CountByPortfolio(ctx context.Context, portfolioID int64) (int, error)
}

// HoldingsRepository handles holding database operations
type HoldingsRepository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ HoldingsLedger = (*HoldingsRepository)(nil)

// NewHoldingsRepository creates a new holdings repository
func NewHoldingsRepository(db database.Querier, log zerolog.Logger) *HoldingsRepository {
	return &HoldingsRepository{
		db:  db,
		log: log.With().Str("repo", "holdings").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *HoldingsRepository) WithTx(tx *sql.Tx) *HoldingsRepository {
	return &HoldingsRepository{db: tx, log: r.log}
}

// Get returns the holding for (portfolio, stock), or nil if none exists
func (r *HoldingsRepository) Get(ctx context.Context, portfolioID, stockID int64) (*domain.Holding, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT h.id, h.portfolio_id, h.stock_id, h.quantity, h.updated_at, s.ticker, s.name
		FROM holdings h JOIN stocks s ON s.id = h.stock_id
		WHERE h.portfolio_id = ? AND h.stock_id = ?`, portfolioID, stockID)
	h, err := scanHolding(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get holding (%d, %d): %w", portfolioID, stockID, err)
	}
	return h, nil
}

// ListByPortfolio returns a portfolio's holdings ordered by ticker
func (r *HoldingsRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Holding, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT h.id, h.portfolio_id, h.stock_id, h.quantity, h.updated_at, s.ticker, s.name
		FROM holdings h JOIN stocks s ON s.id = h.stock_id
		WHERE h.portfolio_id = ?
		ORDER BY s.ticker`, portfolioID)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	holdings := make([]domain.Holding, 0)
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan holding: %w", err)
		}
		holdings = append(holdings, *h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holdings: %w", err)
	}
	return holdings, nil
}

// CountByPortfolio returns the number of holdings a portfolio has
func (r *HoldingsRepository) CountByPortfolio(ctx context.Context, portfolioID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM holdings WHERE portfolio_id = ?`, portfolioID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count holdings: %w", err)
	}
	return n, nil
}

// Persist stores h after a quantity change.
// A positive quantity is upserted; otherwise the row, if any, is deleted.
func (r *HoldingsRepository) Persist(ctx context.Context, h *domain.Holding) error {
	if h.Quantity <= 0 {
		return r.Delete(ctx, h.PortfolioID, h.StockID)
	}
	return r.Upsert(ctx, h)
}

// Upsert inserts or replaces the quantity for (portfolio, stock) and sets h.ID
func (r *HoldingsRepository) Upsert(ctx context.Context, h *domain.Holding) error {
	if h.Quantity <= 0 {
		return fmt.Errorf("holding quantity must be positive, got %d", h.Quantity)
	}
	h.UpdatedAt = time.Now().UTC()

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO holdings (portfolio_id, stock_id, quantity, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (portfolio_id, stock_id) DO UPDATE SET
			quantity = excluded.quantity,
			updated_at = excluded.updated_at
		RETURNING id`,
		h.PortfolioID, h.StockID, h.Quantity, database.ToMillis(h.UpdatedAt),
	).Scan(&h.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert holding (%d, %d): %w", h.PortfolioID, h.StockID, err)
	}

	r.log.Debug().
		Int64("portfolio_id", h.PortfolioID).
		Int64("stock_id", h.StockID).
		Int64("quantity", h.Quantity).
		Msg("Holding saved")
	return nil
}

// Delete removes the holding for (portfolio, stock); a missing row is not an error
func (r *HoldingsRepository) Delete(ctx context.Context, portfolioID, stockID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM holdings WHERE portfolio_id = ? AND stock_id = ?`, portfolioID, stockID)
	if err != nil {
		return fmt.Errorf("failed to delete holding (%d, %d): %w", portfolioID, stockID, err)
	}

	r.log.Debug().Int64("portfolio_id", portfolioID).Int64("stock_id", stockID).Msg("Holding deleted")
	return nil
}

func scanHolding(row rowScanner) (*domain.Holding, error) {
	var h domain.Holding
	var updatedAt int64
	if err := row.Scan(&h.ID, &h.PortfolioID, &h.StockID, &h.Quantity, &updatedAt, &h.Ticker, &h.Name); err != nil {
		return nil, err
	}
	h.UpdatedAt = database.FromMillis(updatedAt)
	return &h, nil
}
