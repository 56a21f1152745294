package stocks

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/domain"
	testingpkg "github.com/aristath/stockfolio/internal/testing"
)

func TestStockRepository_CRUD(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	stock := &domain.Stock{Ticker: "AAPL", Name: "Apple Inc.", Currency: "USD"}
	require.NoError(t, repo.Create(ctx, stock))
	assert.NotZero(t, stock.ID)
	assert.False(t, stock.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple Inc.", got.Name)

	byTicker, err := repo.GetByTicker(ctx, " aapl ")
	require.NoError(t, err)
	assert.Equal(t, stock.ID, byTicker.ID)

	got.Name = "Apple"
	require.NoError(t, repo.Update(ctx, got))
	got, err = repo.GetByID(ctx, stock.ID)
	require.NoError(t, err)
	assert.Equal(t, "Apple", got.Name)

	require.NoError(t, repo.Delete(ctx, stock.ID))
	_, err = repo.GetByID(ctx, stock.ID)
	assert.True(t, domain.IsNotFound(err))
}

func TestStockRepository_DuplicateTicker(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, &domain.Stock{Ticker: "MSFT"}))
	err := repo.Create(ctx, &domain.Stock{Ticker: "MSFT"})
	assert.True(t, domain.IsValidation(err))
}

func TestStockRepository_MissingRows(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 42)
	assert.EqualError(t, err, "Stock not found with id: 42")
	assert.True(t, domain.IsNotFound(repo.Update(ctx, &domain.Stock{ID: 42, Ticker: "X"})))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, 42)))
}

func TestStockRepository_CountReferences(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	stock := testingpkg.SeedStock(t, db, "NVDA", "NVIDIA")
	p := testingpkg.SeedPortfolio(t, db, "Growth", "1000")

	testingpkg.SeedHolding(t, db, p.ID, stock.ID, 3)
	testingpkg.SeedOrder(t, db, domain.Order{
		PortfolioID: p.ID, StockID: stock.ID, Side: domain.SideBuy,
		Price: decimal.NewFromInt(10), Volume: 3, Status: domain.StatusFilled,
	})

	orders, holdings, err := repo.CountReferences(context.Background(), stock.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, orders)
	assert.Equal(t, 1, holdings)
}

func TestPriceHistoryRepository_LatestPrice(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewPriceHistoryRepository(db.Conn(), zerolog.Nop())
	stock := testingpkg.SeedStock(t, db, "AAPL", "Apple")
	ctx := context.Background()

	_, ok, err := repo.LatestPrice(ctx, stock.ID)
	require.NoError(t, err)
	assert.False(t, ok, "no history means no price")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	testingpkg.SeedPrice(t, db, stock.ID, "150.25", base.Add(2*time.Hour))
	testingpkg.SeedPrice(t, db, stock.ID, "149.00", base)
	testingpkg.SeedPrice(t, db, stock.ID, "151.10", base.Add(time.Hour))

	price, ok, err := repo.LatestPrice(ctx, stock.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, decimal.RequireFromString("150.25").Equal(price), "latest by timestamp, not insertion order")

	history, err := repo.ListByStock(ctx, stock.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.True(t, history[0].RecordedAt.After(history[1].RecordedAt))
	assert.True(t, history[1].RecordedAt.After(history[2].RecordedAt))
}

func TestPriceHistoryRepository_SameTimestampUsesLatestInsert(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewPriceHistoryRepository(db.Conn(), zerolog.Nop())
	stock := testingpkg.SeedStock(t, db, "AAPL", "Apple")
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.Record(context.Background(), stock.ID, decimal.NewFromInt(10), at)
	require.NoError(t, err)
	_, err = repo.Record(context.Background(), stock.ID, decimal.NewFromInt(11), at)
	require.NoError(t, err)

	price, ok, err := repo.LatestPrice(context.Background(), stock.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, decimal.NewFromInt(11).Equal(price))
}

func TestStockRepository_DeleteCascadesPriceHistory(t *testing.T) {
	db := testingpkg.NewLedgerDB(t)
	repo := NewStockRepository(db.Conn(), zerolog.Nop())
	stock := testingpkg.SeedStock(t, db, "TSLA", "Tesla")
	testingpkg.SeedPrice(t, db, stock.ID, "200", time.Now())

	require.NoError(t, repo.Delete(context.Background(), stock.ID))

	var count int
	require.NoError(t, db.Conn().QueryRow("SELECT COUNT(*) FROM price_history").Scan(&count))
	assert.Zero(t, count)
}
