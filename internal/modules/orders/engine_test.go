package orders

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/stocks"
	testingpkg "github.com/aristath/stockfolio/internal/testing"
)

type engineFixture struct {
	engine   *Engine
	db       *database.DB
	notifier *testingpkg.RecordingNotifier
	bus      *events.Bus
}

func newEngineFixture(t *testing.T) *engineFixture {
	t.Helper()
	db := testingpkg.NewLedgerDB(t)
	log := zerolog.Nop()
	notifier := &testingpkg.RecordingNotifier{}
	bus := events.NewBus(log)

	engine := NewEngine(
		db.Conn(),
		NewOrderRepository(db.Conn(), log),
		portfolio.NewPortfolioRepository(db.Conn(), log),
		portfolio.NewHoldingsRepository(db.Conn(), log),
		stocks.NewStockRepository(db.Conn(), log),
		stocks.NewPriceHistoryRepository(db.Conn(), log),
		notifier,
		bus,
		log,
	)
	return &engineFixture{engine: engine, db: db, notifier: notifier, bus: bus}
}

func buy(price string, volume int64, fees string) OrderRequest {
	return OrderRequest{Side: "BUY", Price: decimal.RequireFromString(price), Volume: volume, Fees: decimal.RequireFromString(fees)}
}

func sell(price string, volume int64, fees string) OrderRequest {
	return OrderRequest{Side: "SELL", Price: decimal.RequireFromString(price), Volume: volume, Fees: decimal.RequireFromString(fees)}
}

func TestPlaceOrder_PersistsInitialized(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("50", 10, "5"))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, o.Status)
	assert.Equal(t, domain.OrderTypeMarket, o.Type)
	assert.Equal(t, "AAPL", o.Ticker)
	assert.False(t, o.CreatedAt.IsZero())

	assert.Equal(t, "1000", testingpkg.Capital(t, f.db, p.ID).String(), "placement does not move capital")
	_, held := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.False(t, held)
	assert.Equal(t, []string{"placed"}, f.notifier.Kinds())
}

func TestPlaceOrder_NotFound(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	_, err := f.engine.PlaceOrder(ctx, 999, s.ID, buy("1", 1, "0"))
	assert.True(t, domain.IsNotFound(err))

	_, err = f.engine.PlaceOrder(ctx, p.ID, 999, buy("1", 1, "0"))
	assert.True(t, domain.IsNotFound(err))
	assert.Empty(t, f.notifier.Calls())
}

func TestPlaceOrder_Validation(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")

	tests := []struct {
		name string
		req  OrderRequest
	}{
		{"bad side", OrderRequest{Side: "HOLD", Price: decimal.NewFromInt(1), Volume: 1}},
		{"bad type", OrderRequest{Side: "BUY", Type: "ICEBERG", Price: decimal.NewFromInt(1), Volume: 1}},
		{"zero volume", OrderRequest{Side: "BUY", Price: decimal.NewFromInt(1)}},
		{"zero price", OrderRequest{Side: "BUY", Volume: 1}},
		{"negative fees", OrderRequest{Side: "BUY", Price: decimal.NewFromInt(1), Volume: 1, Fees: decimal.NewFromInt(-1)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.engine.PlaceOrder(context.Background(), p.ID, s.ID, tt.req)
			assert.True(t, domain.IsValidation(err), "got %v", err)
		})
	}
}

func TestPlaceOrder_SellChecksHoldingsAtPlacement(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	_, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("10", 1, "0"))
	require.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "not owned")

	testingpkg.SeedHolding(t, f.db, p.ID, s.ID, 5)
	_, err = f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("10", 6, "0"))
	require.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "Insufficient shares")

	history, err := f.engine.TradingHistory(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "rejected sells are never persisted")

	_, err = f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("10", 5, "0"))
	assert.NoError(t, err)
}

func TestPlaceOrder_ClosedPortfolio(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	_, err := f.engine.ClosePortfolio(context.Background(), p.ID, false)
	require.NoError(t, err)

	_, err = f.engine.PlaceOrder(context.Background(), p.ID, s.ID, buy("1", 1, "0"))
	assert.True(t, domain.IsValidation(err))
}

func TestBuyThenSellScenario(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000.0")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	b, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("50", 10, "5"))
	require.NoError(t, err)
	filled, err := f.engine.UpdateOrderStatus(ctx, b.ID, int(domain.StatusFilled))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFilled, filled.Status)

	assert.True(t, decimal.NewFromInt(495).Equal(testingpkg.Capital(t, f.db, p.ID)))
	qty, held := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	require.True(t, held)
	assert.Equal(t, int64(10), qty)

	sl, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("60", 10, "5"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, sl.ID, int(domain.StatusFilled))
	require.NoError(t, err)

	assert.True(t, decimal.NewFromInt(1090).Equal(testingpkg.Capital(t, f.db, p.ID)))
	_, held = testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.False(t, held, "holding reaching zero is deleted")

	assert.Equal(t, []string{"placed", "filled", "placed", "filled"}, f.notifier.Kinds())
}

func TestUpdateOrderStatus_InvalidCode(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()
	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("50", 10, "5"))
	require.NoError(t, err)

	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, 7)
	assert.True(t, domain.IsValidation(err))

	got, err := f.engine.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, got.Status)
	assert.Equal(t, "1000", testingpkg.Capital(t, f.db, p.ID).String())

	_, err = f.engine.UpdateOrderStatus(ctx, 999, int(domain.StatusFilled))
	assert.True(t, domain.IsNotFound(err))
}

func TestFilledToFilledIsNoOp(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("50", 10, "5"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)

	assert.Equal(t, "495", testingpkg.Capital(t, f.db, p.ID).String())
	qty, _ := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.Equal(t, int64(10), qty)
}

func TestReversalRestoresPreFillState(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("50", 10, "5"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)

	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusRejected))
	require.NoError(t, err)
	assert.Equal(t, "1000", testingpkg.Capital(t, f.db, p.ID).String())
	_, held := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.False(t, held)

	calls := f.notifier.Calls()
	last := calls[len(calls)-1]
	assert.Equal(t, "rejected", last.Kind)
	assert.Equal(t, ReasonReversedAfterFill, last.Reason)

	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)
	assert.Equal(t, "495", testingpkg.Capital(t, f.db, p.ID).String())
	qty, _ := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.Equal(t, int64(10), qty)
}

func TestReversingSellRestoresHolding(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	testingpkg.SeedHolding(t, f.db, p.ID, s.ID, 4)
	ctx := context.Background()

	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("25", 4, "1"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)
	assert.Equal(t, "1099", testingpkg.Capital(t, f.db, p.ID).String())
	_, held := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.False(t, held)

	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusProcessing))
	require.NoError(t, err)
	assert.Equal(t, "1000", testingpkg.Capital(t, f.db, p.ID).String())
	qty, held := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	require.True(t, held)
	assert.Equal(t, int64(4), qty)
}

func TestFillTimeShareRecheck(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	testingpkg.SeedHolding(t, f.db, p.ID, s.ID, 5)
	ctx := context.Background()

	first, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("10", 5, "0"))
	require.NoError(t, err)
	second, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, sell("10", 5, "0"))
	require.NoError(t, err)

	_, err = f.engine.UpdateOrderStatus(ctx, first.ID, int(domain.StatusFilled))
	require.NoError(t, err)

	_, err = f.engine.UpdateOrderStatus(ctx, second.ID, int(domain.StatusFilled))
	require.True(t, domain.IsValidation(err))

	got, err := f.engine.GetOrder(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInitialized, got.Status, "failed fill leaves the order untouched")
	assert.Equal(t, "1050", testingpkg.Capital(t, f.db, p.ID).String())
}

func TestRejectionReasons(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	fresh, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("1", 1, "0"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, fresh.ID, int(domain.StatusRejected))
	require.NoError(t, err)

	processing, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("1", 1, "0"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, processing.ID, int(domain.StatusProcessing))
	require.NoError(t, err)
	_, err = f.engine.RejectOrder(ctx, processing.ID, "Market closed")
	require.NoError(t, err)

	var reasons []string
	for _, c := range f.notifier.Calls() {
		if c.Kind == "rejected" {
			reasons = append(reasons, c.Reason)
		}
	}
	assert.Equal(t, []string{ReasonBeforeProcessing, "Market closed"}, reasons)
}

func TestStatusChangePublishesEvent(t *testing.T) {
	f := newEngineFixture(t)
	ch, unsubscribe := f.bus.Subscribe(8)
	defer unsubscribe()

	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	o, err := f.engine.PlaceOrder(context.Background(), p.ID, s.ID, buy("10", 1, "0"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(context.Background(), o.ID, int(domain.StatusFilled))
	require.NoError(t, err)

	select {
	case ev := <-ch:
		assert.Equal(t, events.OrderStatusChanged, ev.Type)
		data := ev.Data.(*events.OrderStatusChangedData)
		assert.Equal(t, "applied", data.Settled)
		assert.Equal(t, 2, data.NewStatus)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}
}

func TestConcurrentFillsDoNotLoseCapital(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "100000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	const n = 20
	ids := make([]int64, n)
	for i := range ids {
		o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("10", 1, "1"))
		require.NoError(t, err)
		ids[i] = o.ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for _, id := range ids {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, err := f.engine.UpdateOrderStatus(ctx, id, int(domain.StatusFilled)); err != nil {
				errs <- err
			}
		}(id)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("fill failed: %v", err)
	}

	assert.Equal(t, "99780", testingpkg.Capital(t, f.db, p.ID).String())
	qty, _ := testingpkg.HoldingQuantity(t, f.db, p.ID, s.ID)
	assert.Equal(t, int64(n), qty)
}

func TestConcurrentFillsAcrossPortfolios(t *testing.T) {
	f := newEngineFixture(t)
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	const portfolios, perPortfolio = 8, 10
	ids := make(map[int64][]int64, portfolios)
	for i := 0; i < portfolios; i++ {
		p := testingpkg.SeedPortfolio(t, f.db, fmt.Sprintf("Book %d", i), "1000")
		for j := 0; j < perPortfolio; j++ {
			o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("10", 1, "1"))
			require.NoError(t, err)
			ids[p.ID] = append(ids[p.ID], o.ID)
		}
	}

	var wg sync.WaitGroup
	errs := make(chan error, portfolios*perPortfolio)
	for _, orderIDs := range ids {
		wg.Add(1)
		go func(orderIDs []int64) {
			defer wg.Done()
			for _, id := range orderIDs {
				if _, err := f.engine.UpdateOrderStatus(ctx, id, int(domain.StatusFilled)); err != nil {
					errs <- err
				}
			}
		}(orderIDs)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("fill failed: %v", err)
	}

	for portfolioID := range ids {
		assert.Equal(t, "890", testingpkg.Capital(t, f.db, portfolioID).String())
		qty, _ := testingpkg.HoldingQuantity(t, f.db, portfolioID, s.ID)
		assert.Equal(t, int64(perPortfolio), qty)
	}
}

func TestUpdateOrderStatus_ClosedPortfolioIsFrozen(t *testing.T) {
	f := newEngineFixture(t)
	p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
	s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
	ctx := context.Background()

	o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("10", 2, "1"))
	require.NoError(t, err)
	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled))
	require.NoError(t, err)
	_, err = f.engine.ClosePortfolio(ctx, p.ID, true)
	require.NoError(t, err)
	capital := testingpkg.Capital(t, f.db, p.ID).String()

	_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusRejected))
	require.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "is closed")

	got, err := f.engine.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFilled, got.Status)
	assert.Equal(t, capital, testingpkg.Capital(t, f.db, p.ID).String(), "capital untouched")
}

func TestClosePortfolio(t *testing.T) {
	ctx := context.Background()

	t.Run("holdings without liquidation", func(t *testing.T) {
		f := newEngineFixture(t)
		p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
		s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
		testingpkg.SeedHolding(t, f.db, p.ID, s.ID, 3)

		_, err := f.engine.ClosePortfolio(ctx, p.ID, false)
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "Liquidation is required")
	})

	t.Run("open orders block", func(t *testing.T) {
		f := newEngineFixture(t)
		p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
		s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
		_, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("1", 1, "0"))
		require.NoError(t, err)

		_, err = f.engine.ClosePortfolio(ctx, p.ID, true)
		require.True(t, domain.IsValidation(err))
		assert.Contains(t, err.Error(), "still processing")
	})

	t.Run("rejected orders do not block", func(t *testing.T) {
		f := newEngineFixture(t)
		p := testingpkg.SeedPortfolio(t, f.db, "Core", "1000")
		s := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
		o, err := f.engine.PlaceOrder(ctx, p.ID, s.ID, buy("1", 1, "0"))
		require.NoError(t, err)
		_, err = f.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusRejected))
		require.NoError(t, err)

		closed, err := f.engine.ClosePortfolio(ctx, p.ID, false)
		require.NoError(t, err)
		assert.Equal(t, domain.PortfolioClosed, closed.Status)

		_, err = f.engine.ClosePortfolio(ctx, p.ID, false)
		assert.True(t, domain.IsValidation(err), "closing twice is refused")
	})

	t.Run("liquidation credits proceeds", func(t *testing.T) {
		f := newEngineFixture(t)
		p := testingpkg.SeedPortfolio(t, f.db, "Core", "100")
		priced := testingpkg.SeedStock(t, f.db, "AAPL", "Apple")
		unpriced := testingpkg.SeedStock(t, f.db, "XYZ", "Unpriced")
		testingpkg.SeedHolding(t, f.db, p.ID, priced.ID, 3)
		testingpkg.SeedHolding(t, f.db, p.ID, unpriced.ID, 2)
		testingpkg.SeedPrice(t, f.db, priced.ID, "40", time.Now().Add(-time.Hour))
		testingpkg.SeedPrice(t, f.db, priced.ID, "42.5", time.Now())

		closed, err := f.engine.ClosePortfolio(ctx, p.ID, true)
		require.NoError(t, err)
		assert.Equal(t, domain.PortfolioClosed, closed.Status)
		assert.Equal(t, "227.5", testingpkg.Capital(t, f.db, p.ID).String())

		_, held := testingpkg.HoldingQuantity(t, f.db, p.ID, priced.ID)
		assert.False(t, held)
		_, held = testingpkg.HoldingQuantity(t, f.db, p.ID, unpriced.ID)
		assert.False(t, held)

		history, err := f.engine.TradingHistory(ctx, p.ID)
		require.NoError(t, err)
		require.Len(t, history, 2)
		for _, o := range history {
			assert.Equal(t, domain.SideSell, o.Side)
			assert.Equal(t, domain.StatusFilled, o.Status)
			assert.True(t, o.Fees.IsZero())
		}
		assert.Equal(t, []string{"filled", "filled"}, f.notifier.Kinds())

		_, err = f.engine.UpdateOrderStatus(ctx, history[0].ID, int(domain.StatusRejected))
		assert.True(t, domain.IsValidation(err), "orders of a closed portfolio are frozen")
	})
}
