// Package stocks provides stock reference data and the price store.
package stocks

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// StockRepositoryInterface is the persistence contract for stocks
type StockRepositoryInterface interface {
	Create(ctx context.Context, stock *domain.Stock) error
	GetByID(ctx context.Context, id int64) (*domain.Stock, error)
	GetByTicker(ctx context.Context, ticker string) (*domain.Stock, error)
	List(ctx context.Context) ([]domain.Stock, error)
	Update(ctx context.Context, stock *domain.Stock) error
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (orders int, holdings int, err error)
}

// StockRepository handles stock database operations
type StockRepository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ StockRepositoryInterface = (*StockRepository)(nil)

// NewStockRepository creates a new stock repository
func NewStockRepository(db database.Querier, log zerolog.Logger) *StockRepository {
	return &StockRepository{
		db:  db,
		log: log.With().Str("repo", "stock").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *StockRepository) WithTx(tx *sql.Tx) *StockRepository {
	return &StockRepository{db: tx, log: r.log}
}

const stockColumns = `id, ticker, name, sector, market, currency, isin, cusip, created_at`

// Create inserts a stock and sets its ID and CreatedAt
func (r *StockRepository) Create(ctx context.Context, stock *domain.Stock) error {
	if stock.CreatedAt.IsZero() {
		stock.CreatedAt = time.Now().UTC()
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO stocks (ticker, name, sector, market, currency, isin, cusip, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		stock.Ticker, stock.Name, stock.Sector, stock.Market, stock.Currency,
		stock.ISIN, stock.CUSIP, database.ToMillis(stock.CreatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("stock with ticker %s already exists", stock.Ticker)
		}
		return fmt.Errorf("failed to insert stock: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read stock id: %w", err)
	}
	stock.ID = id

	r.log.Debug().Int64("stock_id", id).Str("ticker", stock.Ticker).Msg("Stock created")
	return nil
}

// GetByID returns the stock or a NotFoundError
func (r *StockRepository) GetByID(ctx context.Context, id int64) (*domain.Stock, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE id = ?`, id)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("Stock", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %d: %w", id, err)
	}
	return stock, nil
}

// GetByTicker returns the stock with the given ticker (case-insensitive)
func (r *StockRepository) GetByTicker(ctx context.Context, ticker string) (*domain.Stock, error) {
	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	row := r.db.QueryRowContext(ctx, `SELECT `+stockColumns+` FROM stocks WHERE ticker = ?`, ticker)
	stock, err := scanStock(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("Stock", ticker)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock %s: %w", ticker, err)
	}
	return stock, nil
}

// List returns all stocks ordered by ticker
func (r *StockRepository) List(ctx context.Context) ([]domain.Stock, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+stockColumns+` FROM stocks ORDER BY ticker`)
	if err != nil {
		return nil, fmt.Errorf("failed to query stocks: %w", err)
	}
	defer rows.Close()

	stocks := make([]domain.Stock, 0)
	for rows.Next() {
		stock, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock: %w", err)
		}
		stocks = append(stocks, *stock)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating stocks: %w", err)
	}
	return stocks, nil
}

// Update replaces all mutable fields
func (r *StockRepository) Update(ctx context.Context, stock *domain.Stock) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE stocks SET ticker = ?, name = ?, sector = ?, market = ?, currency = ?, isin = ?, cusip = ?
		WHERE id = ?`,
		stock.Ticker, stock.Name, stock.Sector, stock.Market, stock.Currency, stock.ISIN, stock.CUSIP, stock.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("stock with ticker %s already exists", stock.Ticker)
		}
		return fmt.Errorf("failed to update stock %d: %w", stock.ID, err)
	}
	return requireAffected(result, "Stock", stock.ID)
}

// Delete removes the stock; price history and watchlist entries cascade
func (r *StockRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM stocks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete stock %d: %w", id, err)
	}
	return requireAffected(result, "Stock", id)
}

// CountReferences counts orders and holdings that point at the stock
func (r *StockRepository) CountReferences(ctx context.Context, id int64) (int, int, error) {
	var orders, holdings int
	err := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM orders WHERE stock_id = ?),
			(SELECT COUNT(*) FROM holdings WHERE stock_id = ?)`,
		id, id,
	).Scan(&orders, &holdings)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count references to stock %d: %w", id, err)
	}
	return orders, holdings, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStock(row rowScanner) (*domain.Stock, error) {
	var s domain.Stock
	var createdAt int64
	if err := row.Scan(&s.ID, &s.Ticker, &s.Name, &s.Sector, &s.Market, &s.Currency, &s.ISIN, &s.CUSIP, &createdAt); err != nil {
		return nil, err
	}
	s.CreatedAt = database.FromMillis(createdAt)
	return &s, nil
}

func requireAffected(result sql.Result, entity string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError(entity, id)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
