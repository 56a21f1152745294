// Package watchlist tracks watched stocks and fires target-price alerts.
package watchlist

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

// RepositoryInterface is the persistence contract for watchlist entries
type RepositoryInterface interface {
	Create(ctx context.Context, e *domain.WatchlistEntry) error
	GetByID(ctx context.Context, id int64) (*domain.WatchlistEntry, error)
	List(ctx context.Context) ([]domain.WatchlistEntry, error)
	ListArmed(ctx context.Context) ([]domain.WatchlistEntry, error)
	MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error
	Rearm(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// Repository handles watchlist database operations
type Repository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ RepositoryInterface = (*Repository)(nil)

// NewRepository creates a new watchlist repository
func NewRepository(db database.Querier, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "watchlist").Logger(),
	}
}

const entrySelect = `
	SELECT w.id, w.stock_id, s.ticker, w.target_price, w.direction, w.notified,
	       w.last_triggered_price, w.last_triggered_at, w.created_at
	FROM watchlist w
	JOIN stocks s ON s.id = w.stock_id`

// Create inserts an entry and sets its ID and CreatedAt
func (r *Repository) Create(ctx context.Context, e *domain.WatchlistEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	var direction sql.NullString
	if e.Direction != "" {
		direction = sql.NullString{String: string(e.Direction), Valid: true}
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO watchlist (stock_id, target_price, direction, notified, created_at)
		VALUES (?, ?, ?, 0, ?)`,
		e.StockID, e.TargetPrice, direction, database.ToMillis(e.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert watchlist entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read watchlist entry id: %w", err)
	}
	e.ID = id
	return nil
}

// GetByID returns the entry or a NotFoundError
func (r *Repository) GetByID(ctx context.Context, id int64) (*domain.WatchlistEntry, error) {
	e, err := scanEntry(r.db.QueryRowContext(ctx, entrySelect+` WHERE w.id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("Watchlist entry", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get watchlist entry %d: %w", id, err)
	}
	return e, nil
}

// List returns every entry ordered by id
func (r *Repository) List(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return r.query(ctx, entrySelect+` ORDER BY w.id`)
}

// ListArmed returns entries with both a target price and a direction
func (r *Repository) ListArmed(ctx context.Context) ([]domain.WatchlistEntry, error) {
	return r.query(ctx, entrySelect+`
		WHERE w.target_price IS NOT NULL AND w.direction IS NOT NULL
		ORDER BY w.id`)
}

// MarkTriggered records an alert firing
func (r *Repository) MarkTriggered(ctx context.Context, id int64, price decimal.Decimal, at time.Time) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE watchlist
		SET notified = 1, last_triggered_price = ?, last_triggered_at = ?
		WHERE id = ?`,
		price, database.ToMillis(at), id,
	)
	if err != nil {
		return fmt.Errorf("failed to mark watchlist entry %d triggered: %w", id, err)
	}
	return requireAffected(result, id)
}

// Rearm clears the notified flag so the next crossing alerts again.
// The last trigger is kept for reference.
func (r *Repository) Rearm(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE watchlist SET notified = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to rearm watchlist entry %d: %w", id, err)
	}
	return requireAffected(result, id)
}

// Delete removes an entry
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM watchlist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete watchlist entry %d: %w", id, err)
	}
	return requireAffected(result, id)
}

func (r *Repository) query(ctx context.Context, query string, args ...any) ([]domain.WatchlistEntry, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	entries := make([]domain.WatchlistEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating watchlist: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (*domain.WatchlistEntry, error) {
	var e domain.WatchlistEntry
	var direction sql.NullString
	var triggeredAt sql.NullInt64
	var createdAt int64
	err := row.Scan(&e.ID, &e.StockID, &e.Ticker, &e.TargetPrice, &direction, &e.Notified,
		&e.LastTriggeredPrice, &triggeredAt, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Direction = domain.AlertDirection(direction.String)
	e.LastTriggeredAt = database.FromNullMillis(triggeredAt)
	e.CreatedAt = database.FromMillis(createdAt)
	return &e, nil
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return domain.NewNotFoundError("Watchlist entry", id)
	}
	return nil
}
