package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// PriceReader is the read side of the price store used for valuation.
// The current price of a stock is its most recently recorded price.
type PriceReader interface {
	LatestPrice(ctx context.Context, stockID int64) (decimal.Decimal, bool, error)
}

// PriceHistoryRepository stores append-only price observations
type PriceHistoryRepository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ PriceReader = (*PriceHistoryRepository)(nil)

// NewPriceHistoryRepository creates a new price history repository
func NewPriceHistoryRepository(db database.Querier, log zerolog.Logger) *PriceHistoryRepository {
	return &PriceHistoryRepository{
		db:  db,
		log: log.With().Str("repo", "price_history").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *PriceHistoryRepository) WithTx(tx *sql.Tx) *PriceHistoryRepository {
	return &PriceHistoryRepository{db: tx, log: r.log}
}

// Record appends a price observation
func (r *PriceHistoryRepository) Record(ctx context.Context, stockID int64, price decimal.Decimal, at time.Time) (*domain.PriceHistory, error) {
	if at.IsZero() {
		at = time.Now().UTC()
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO price_history (stock_id, price, recorded_at) VALUES (?, ?, ?)`,
		stockID, price, database.ToMillis(at),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record price for stock %d: %w", stockID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read price history id: %w", err)
	}
	return &domain.PriceHistory{ID: id, StockID: stockID, Price: price, RecordedAt: database.FromMillis(database.ToMillis(at))}, nil
}

// ListByStock returns a stock's price history, newest first
func (r *PriceHistoryRepository) ListByStock(ctx context.Context, stockID int64) ([]domain.PriceHistory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, stock_id, price, recorded_at FROM price_history
		WHERE stock_id = ?
		ORDER BY recorded_at DESC, id DESC`, stockID)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	history := make([]domain.PriceHistory, 0)
	for rows.Next() {
		var p domain.PriceHistory
		var recordedAt int64
		if err := rows.Scan(&p.ID, &p.StockID, &p.Price, &recordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan price history: %w", err)
		}
		p.RecordedAt = database.FromMillis(recordedAt)
		history = append(history, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price history: %w", err)
	}
	return history, nil
}

// LatestPrice returns the most recently recorded price.
// ok is false when the stock has no price history.
func (r *PriceHistoryRepository) LatestPrice(ctx context.Context, stockID int64) (decimal.Decimal, bool, error) {
	var price decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT price FROM price_history
		WHERE stock_id = ?
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`, stockID).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, fmt.Errorf("failed to get latest price for stock %d: %w", stockID, err)
	}
	return price, true, nil
}
