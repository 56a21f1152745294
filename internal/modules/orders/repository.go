// Package orders provides the order lifecycle engine and its persistence.
package orders

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

// OrderRepositoryInterface is the persistence contract for orders
type OrderRepositoryInterface interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
	CountByPortfolio(ctx context.Context, portfolioID int64) (int, error)
	CountNonTerminal(ctx context.Context, portfolioID int64) (int, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error
}

// OrderRepository handles order database operations
type OrderRepository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ OrderRepositoryInterface = (*OrderRepository)(nil)

// NewOrderRepository creates a new order repository
func NewOrderRepository(db database.Querier, log zerolog.Logger) *OrderRepository {
	return &OrderRepository{
		db:  db,
		log: log.With().Str("repo", "order").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *OrderRepository) WithTx(tx *sql.Tx) *OrderRepository {
	return &OrderRepository{db: tx, log: r.log}
}

// orderSelect joins the ticker so reads can be displayed without a second lookup
const orderSelect = `
	SELECT o.id, o.portfolio_id, o.stock_id, o.side, o.order_type, o.price, o.volume, o.fees,
		o.status_code, o.created_at, o.updated_at, s.ticker
	FROM orders o JOIN stocks s ON s.id = o.stock_id`

// Create inserts an order and sets its ID and timestamps
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	now := time.Now().UTC()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = now
	}
	o.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO orders (portfolio_id, stock_id, side, order_type, price, volume, fees, status_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.PortfolioID, o.StockID, string(o.Side), string(o.Type), o.Price, o.Volume, o.Fees, int(o.Status),
		database.ToMillis(o.CreatedAt), database.ToMillis(o.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read order id: %w", err)
	}
	o.ID = id

	r.log.Debug().
		Int64("order_id", id).
		Int64("portfolio_id", o.PortfolioID).
		Str("side", string(o.Side)).
		Int64("volume", o.Volume).
		Msg("Order created")
	return nil
}

// GetByID returns the order or a NotFoundError
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	row := r.db.QueryRowContext(ctx, orderSelect+` WHERE o.id = ?`, id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("Order", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get order %d: %w", id, err)
	}
	return o, nil
}

// List returns every order, newest first
func (r *OrderRepository) List(ctx context.Context) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+` ORDER BY o.id DESC`)
}

// ListByPortfolio returns a portfolio's orders, newest first
func (r *OrderRepository) ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+` WHERE o.portfolio_id = ? ORDER BY o.id DESC`, portfolioID)
}

// ListByStatus returns orders in the given status, oldest first
func (r *OrderRepository) ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error) {
	return r.query(ctx, orderSelect+` WHERE o.status_code = ? ORDER BY o.id ASC`, int(status))
}

// CountByStatus returns the number of orders per status code; every code is present
func (r *OrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error) {
	counts := map[domain.OrderStatus]int{
		domain.StatusInitialized: 0,
		domain.StatusProcessing:  0,
		domain.StatusFilled:      0,
		domain.StatusRejected:    0,
	}

	rows, err := r.db.QueryContext(ctx, `SELECT status_code, COUNT(*) FROM orders GROUP BY status_code`)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var code, n int
		if err := rows.Scan(&code, &n); err != nil {
			return nil, fmt.Errorf("failed to scan order count: %w", err)
		}
		counts[domain.OrderStatus(code)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order counts: %w", err)
	}
	return counts, nil
}

// CountByPortfolio returns the number of orders ever placed for a portfolio
func (r *OrderRepository) CountByPortfolio(ctx context.Context, portfolioID int64) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE portfolio_id = ?`, portfolioID).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count orders of portfolio %d: %w", portfolioID, err)
	}
	return n, nil
}

// CountNonTerminal returns the number of a portfolio's Initialized or Processing orders
func (r *OrderRepository) CountNonTerminal(ctx context.Context, portfolioID int64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE portfolio_id = ? AND status_code IN (?, ?)`,
		portfolioID, int(domain.StatusInitialized), int(domain.StatusProcessing),
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count open orders of portfolio %d: %w", portfolioID, err)
	}
	return n, nil
}

// UpdateStatus writes the status code and touches updated_at
func (r *OrderRepository) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET status_code = ?, updated_at = ? WHERE id = ?`,
		int(status), database.ToMillis(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update status of order %d: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("Order", id)
	}
	return nil
}

func (r *OrderRepository) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}
	return orders, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	var side, orderType string
	var status int
	var createdAt, updatedAt int64
	err := row.Scan(&o.ID, &o.PortfolioID, &o.StockID, &side, &orderType, &o.Price, &o.Volume, &o.Fees,
		&status, &createdAt, &updatedAt, &o.Ticker)
	if err != nil {
		return nil, err
	}
	o.Side = domain.OrderSide(side)
	o.Type = domain.OrderType(orderType)
	o.Status = domain.OrderStatus(status)
	o.CreatedAt = database.FromMillis(createdAt)
	o.UpdatedAt = database.FromMillis(updatedAt)
	return &o, nil
}
