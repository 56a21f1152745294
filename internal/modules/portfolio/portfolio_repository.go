package portfolio

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

// PortfolioRepositoryInterface is the persistence contract for portfolios
type PortfolioRepositoryInterface interface {
	Create(ctx context.Context, p *domain.Portfolio) error
	GetByID(ctx context.Context, id int64) (*domain.Portfolio, error)
	List(ctx context.Context) ([]domain.Portfolio, error)
	Update(ctx context.Context, p *domain.Portfolio) error
	UpdateCapital(ctx context.Context, id int64, capital decimal.Decimal) error
	UpdateStatus(ctx context.Context, id int64, status domain.PortfolioStatus) error
	Delete(ctx context.Context, id int64) error
}

// PortfolioRepository handles portfolio database operations
type PortfolioRepository struct {
	db  database.Querier
	log zerolog.Logger
}

var _ PortfolioRepositoryInterface = (*PortfolioRepository)(nil)

// NewPortfolioRepository creates a new portfolio repository
func NewPortfolioRepository(db database.Querier, log zerolog.Logger) *PortfolioRepository {
	return &PortfolioRepository{
		db:  db,
		log: log.With().Str("repo", "portfolio").Logger(),
	}
}

// WithTx returns a copy of the repository bound to tx
func (r *PortfolioRepository) WithTx(tx *sql.Tx) *PortfolioRepository {
	return &PortfolioRepository{db: tx, log: r.log}
}

const portfolioColumns = `id, name, description, capital, status, created_at`

// Create inserts a portfolio and sets its ID
func (r *PortfolioRepository) Create(ctx context.Context, p *domain.Portfolio) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	if p.Status == "" {
		p.Status = domain.PortfolioActive
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO portfolios (name, description, capital, status, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		p.Name, p.Description, p.Capital, string(p.Status), database.ToMillis(p.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert portfolio: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read portfolio id: %w", err)
	}
	p.ID = id
	return nil
}

// GetByID returns the portfolio or a NotFoundError
func (r *PortfolioRepository) GetByID(ctx context.Context, id int64) (*domain.Portfolio, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios WHERE id = ?`, id)
	p, err := scanPortfolio(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewNotFoundError("Portfolio", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio %d: %w", id, err)
	}
	return p, nil
}

// List returns all portfolios ordered by id
func (r *PortfolioRepository) List(ctx context.Context) ([]domain.Portfolio, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+portfolioColumns+` FROM portfolios ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query portfolios: %w", err)
	}
	defer rows.Close()

	portfolios := make([]domain.Portfolio, 0)
	for rows.Next() {
		p, err := scanPortfolio(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan portfolio: %w", err)
		}
		portfolios = append(portfolios, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating portfolios: %w", err)
	}
	return portfolios, nil
}

// Update writes name, description and capital
func (r *PortfolioRepository) Update(ctx context.Context, p *domain.Portfolio) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE portfolios SET name = ?, description = ?, capital = ? WHERE id = ?`,
		p.Name, p.Description, p.Capital, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update portfolio %d: %w", p.ID, err)
	}
	return requireAffected(result, "Portfolio", p.ID)
}

// UpdateCapital overwrites the cash balance
func (r *PortfolioRepository) UpdateCapital(ctx context.Context, id int64, capital decimal.Decimal) error {
	result, err := r.db.ExecContext(ctx, `UPDATE portfolios SET capital = ? WHERE id = ?`, capital, id)
	if err != nil {
		return fmt.Errorf("failed to update capital of portfolio %d: %w", id, err)
	}
	return requireAffected(result, "Portfolio", id)
}

// UpdateStatus sets the lifecycle status
func (r *PortfolioRepository) UpdateStatus(ctx context.Context, id int64, status domain.PortfolioStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE portfolios SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update status of portfolio %d: %w", id, err)
	}
	return requireAffected(result, "Portfolio", id)
}

// Delete removes the portfolio; its holdings cascade
func (r *PortfolioRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete portfolio %d: %w", id, err)
	}
	return requireAffected(result, "Portfolio", id)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPortfolio(row rowScanner) (*domain.Portfolio, error) {
	var p domain.Portfolio
	var status string
	var createdAt int64
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Capital, &status, &createdAt); err != nil {
		return nil, err
	}
	p.Status = domain.PortfolioStatus(status)
	p.CreatedAt = database.FromMillis(createdAt)
	return &p, nil
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
