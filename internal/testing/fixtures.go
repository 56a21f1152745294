package testing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
)

// Fixtures insert rows with plain SQL so that any package's tests can seed
// data without importing the repositories under test.

// SeedStock inserts a USD stock with the given ticker
func SeedStock(t *testing.T, db *database.DB, ticker, name string) *domain.Stock {
	t.Helper()

	now := time.Now().UTC()
	result, err := db.Conn().Exec(
		`INSERT INTO stocks (ticker, name, sector, market, currency, created_at) VALUES (?, ?, 'Technology', 'NASDAQ', 'USD', ?)`,
		ticker, name, database.ToMillis(now),
	)
	if err != nil {
		t.Fatalf("Failed to seed stock %s: %v", ticker, err)
	}
	id, _ := result.LastInsertId()
	return &domain.Stock{
		ID:        id,
		Ticker:    ticker,
		Name:      name,
		Sector:    "Technology",
		Market:    "NASDAQ",
		Currency:  "USD",
		CreatedAt: database.FromMillis(database.ToMillis(now)),
	}
}

// SeedPortfolio inserts an ACTIVE portfolio holding capital in cash
func SeedPortfolio(t *testing.T, db *database.DB, name string, capital string) *domain.Portfolio {
	t.Helper()

	amount := decimal.RequireFromString(capital)
	now := time.Now().UTC()
	result, err := db.Conn().Exec(
		`INSERT INTO portfolios (name, description, capital, status, created_at) VALUES (?, ?, ?, 'ACTIVE', ?)`,
		name, "Seeded test portfolio", amount, database.ToMillis(now),
	)
	if err != nil {
		t.Fatalf("Failed to seed portfolio %s: %v", name, err)
	}
	id, _ := result.LastInsertId()
	return &domain.Portfolio{
		ID:          id,
		Name:        name,
		Description: "Seeded test portfolio",
		Capital:     amount,
		Status:      domain.PortfolioActive,
		CreatedAt:   database.FromMillis(database.ToMillis(now)),
	}
}

// SeedPrice appends a price observation
func SeedPrice(t *testing.T, db *database.DB, stockID int64, price string, at time.Time) {
	t.Helper()

	_, err := db.Conn().Exec(
		`INSERT INTO price_history (stock_id, price, recorded_at) VALUES (?, ?, ?)`,
		stockID, decimal.RequireFromString(price), database.ToMillis(at),
	)
	if err != nil {
		t.Fatalf("Failed to seed price for stock %d: %v", stockID, err)
	}
}

// SeedHolding inserts a holding directly, bypassing settlement
func SeedHolding(t *testing.T, db *database.DB, portfolioID, stockID, quantity int64) {
	t.Helper()

	_, err := db.Conn().Exec(
		`INSERT INTO holdings (portfolio_id, stock_id, quantity, updated_at) VALUES (?, ?, ?, ?)`,
		portfolioID, stockID, quantity, database.ToMillis(time.Now()),
	)
	if err != nil {
		t.Fatalf("Failed to seed holding: %v", err)
	}
}

// SeedOrder inserts an order row directly, bypassing placement and settlement
func SeedOrder(t *testing.T, db *database.DB, o domain.Order) int64 {
	t.Helper()

	if o.Type == "" {
		o.Type = domain.OrderTypeMarket
	}
	now := database.ToMillis(time.Now())
	result, err := db.Conn().Exec(`
		INSERT INTO orders (portfolio_id, stock_id, side, order_type, price, volume, fees, status_code, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		o.PortfolioID, o.StockID, o.Side, o.Type, o.Price, o.Volume, o.Fees, int(o.Status), now, now,
	)
	if err != nil {
		t.Fatalf("Failed to seed order: %v", err)
	}
	id, _ := result.LastInsertId()
	return id
}

// Capital reads a portfolio's stored cash balance
func Capital(t *testing.T, db *database.DB, portfolioID int64) decimal.Decimal {
	t.Helper()

	var capital decimal.Decimal
	if err := db.Conn().QueryRow(`SELECT capital FROM portfolios WHERE id = ?`, portfolioID).Scan(&capital); err != nil {
		t.Fatalf("Failed to read capital of portfolio %d: %v", portfolioID, err)
	}
	return capital
}

// HoldingQuantity reads a stored holding's quantity; ok is false when no row exists
func HoldingQuantity(t *testing.T, db *database.DB, portfolioID, stockID int64) (int64, bool) {
	t.Helper()

	var qty int64
	err := db.Conn().QueryRow(
		`SELECT quantity FROM holdings WHERE portfolio_id = ? AND stock_id = ?`, portfolioID, stockID,
	).Scan(&qty)
	if err != nil {
		return 0, false
	}
	return qty, true
}
