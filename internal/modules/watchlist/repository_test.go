package watchlist

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/domain"

	_ "github.com/mattn/go-sqlite3"
)

func setupWatchlistTestDB(t *testing.T) *sql.DB {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1) // every :memory: connection is its own database
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
		CREATE TABLE stocks (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker TEXT NOT NULL UNIQUE
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`
		CREATE TABLE watchlist (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			stock_id INTEGER NOT NULL,
			target_price TEXT,
			direction TEXT,
			notified INTEGER NOT NULL DEFAULT 0,
			last_triggered_price TEXT,
			last_triggered_at INTEGER,
			created_at INTEGER NOT NULL
		)
	`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO stocks (ticker) VALUES ('AAPL'), ('MSFT')`)
	require.NoError(t, err)
	return db
}

func TestRepository_CreateAndList(t *testing.T) {
	repo := NewRepository(setupWatchlistTestDB(t), zerolog.Nop())
	ctx := context.Background()

	alert := &domain.WatchlistEntry{
		StockID:     1,
		TargetPrice: decimal.NewNullDecimal(decimal.RequireFromString("187.25")),
		Direction:   domain.AlertAbove,
	}
	require.NoError(t, repo.Create(ctx, alert))
	require.NoError(t, repo.Create(ctx, &domain.WatchlistEntry{StockID: 2}))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "AAPL", all[0].Ticker)
	assert.Equal(t, "187.25", all[0].TargetPrice.Decimal.String())
	assert.Equal(t, domain.AlertAbove, all[0].Direction)
	assert.False(t, all[0].Notified)
	assert.Nil(t, all[0].LastTriggeredAt)
	assert.False(t, all[1].TargetPrice.Valid)
	assert.Empty(t, all[1].Direction)

	armed, err := repo.ListArmed(ctx)
	require.NoError(t, err)
	require.Len(t, armed, 1)
	assert.Equal(t, alert.ID, armed[0].ID)
}

func TestRepository_TriggerAndRearm(t *testing.T) {
	repo := NewRepository(setupWatchlistTestDB(t), zerolog.Nop())
	ctx := context.Background()
	e := &domain.WatchlistEntry{
		StockID:     1,
		TargetPrice: decimal.NewNullDecimal(decimal.NewFromInt(50)),
		Direction:   domain.AlertBelow,
	}
	require.NoError(t, repo.Create(ctx, e))

	at := time.Date(2026, 3, 2, 14, 30, 0, 0, time.UTC)
	require.NoError(t, repo.MarkTriggered(ctx, e.ID, decimal.RequireFromString("49.5"), at))

	got, err := repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.True(t, got.Notified)
	assert.Equal(t, "49.5", got.LastTriggeredPrice.Decimal.String())
	require.NotNil(t, got.LastTriggeredAt)
	assert.True(t, at.Equal(*got.LastTriggeredAt))

	require.NoError(t, repo.Rearm(ctx, e.ID))
	got, err = repo.GetByID(ctx, e.ID)
	require.NoError(t, err)
	assert.False(t, got.Notified)
	assert.True(t, got.LastTriggeredPrice.Valid, "last trigger is kept")
}

func TestRepository_MissingEntry(t *testing.T) {
	repo := NewRepository(setupWatchlistTestDB(t), zerolog.Nop())
	ctx := context.Background()

	_, err := repo.GetByID(ctx, 42)
	assert.True(t, domain.IsNotFound(err))
	assert.True(t, domain.IsNotFound(repo.Delete(ctx, 42)))
	assert.True(t, domain.IsNotFound(repo.Rearm(ctx, 42)))
	assert.True(t, domain.IsNotFound(repo.MarkTriggered(ctx, 42, decimal.NewFromInt(1), time.Now())))
}
