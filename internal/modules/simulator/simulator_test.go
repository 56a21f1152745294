package simulator

import (
	"context"
	"math/rand"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/orders"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/stocks"
	testingpkg "github.com/aristath/stockfolio/internal/testing"
)

// scriptedSource makes rand.Intn(n) return the scripted values in order (mod n)
type scriptedSource struct {
	values []int64
	next   int
}

func (s *scriptedSource) Int63() int64 {
	v := s.values[s.next%len(s.values)]
	s.next++
	return v << 32
}

func (s *scriptedSource) Seed(int64) {}

func scripted(values ...int64) *rand.Rand {
	return rand.New(&scriptedSource{values: values})
}

type fixture struct {
	sim      *Simulator
	engine   *orders.Engine
	repo     *orders.OrderRepository
	db       *database.DB
	notifier *testingpkg.RecordingNotifier
	p        *domain.Portfolio
	s        *domain.Stock
}

func newFixture(t *testing.T, failureRate int) *fixture {
	t.Helper()
	db := testingpkg.NewLedgerDB(t)
	log := zerolog.Nop()
	notifier := &testingpkg.RecordingNotifier{}
	repo := orders.NewOrderRepository(db.Conn(), log)
	engine := orders.NewEngine(
		db.Conn(), repo,
		portfolio.NewPortfolioRepository(db.Conn(), log),
		portfolio.NewHoldingsRepository(db.Conn(), log),
		stocks.NewStockRepository(db.Conn(), log),
		stocks.NewPriceHistoryRepository(db.Conn(), log),
		notifier, nil, log,
	)
	return &fixture{
		sim:      New(repo, engine, notifier, failureRate, log),
		engine:   engine,
		repo:     repo,
		db:       db,
		notifier: notifier,
		p:        testingpkg.SeedPortfolio(t, db, "Core", "1000"),
		s:        testingpkg.SeedStock(t, db, "AAPL", "Apple"),
	}
}

func (f *fixture) seed(t *testing.T, side domain.OrderSide, status domain.OrderStatus) int64 {
	return testingpkg.SeedOrder(t, f.db, domain.Order{
		PortfolioID: f.p.ID,
		StockID:     f.s.ID,
		Side:        side,
		Price:       decimal.NewFromInt(10),
		Volume:      2,
		Status:      status,
	})
}

func (f *fixture) status(t *testing.T, id int64) domain.OrderStatus {
	o, err := f.repo.GetByID(context.Background(), id)
	require.NoError(t, err)
	return o.Status
}

func TestSendOrdersToExchange(t *testing.T) {
	f := newFixture(t, 10)
	first := f.seed(t, domain.SideBuy, domain.StatusInitialized)
	second := f.seed(t, domain.SideBuy, domain.StatusInitialized)
	filled := f.seed(t, domain.SideBuy, domain.StatusFilled)
	f.sim.WithRand(scripted(10, 90))

	result, err := f.sim.SendOrdersToExchange(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CycleResult{Sent: 1}, result)

	assert.Equal(t, domain.StatusProcessing, f.status(t, first))
	assert.Equal(t, domain.StatusInitialized, f.status(t, second), "skipped this cycle")
	assert.Equal(t, domain.StatusFilled, f.status(t, filled))
	assert.Equal(t, "1000", testingpkg.Capital(t, f.db, f.p.ID).String(), "sending settles nothing")

	calls := f.notifier.Calls()
	require.Len(t, calls, 1)
	assert.Equal(t, "system", calls[0].Kind)
	assert.Equal(t, "Order Processing", calls[0].Title)
	assert.Equal(t, "Order #1 for AAPL is being processed by exchange", calls[0].Message)
}

func TestSendOrdersToExchange_NothingPending(t *testing.T) {
	f := newFixture(t, 10)
	result, err := f.sim.SendOrdersToExchange(context.Background())
	require.NoError(t, err)
	assert.Zero(t, *result)
	assert.Empty(t, f.notifier.Calls())
}

func TestProcessExchangeResponses(t *testing.T) {
	f := newFixture(t, 10)
	rejected := f.seed(t, domain.SideBuy, domain.StatusProcessing)
	filled := f.seed(t, domain.SideBuy, domain.StatusProcessing)
	skipped := f.seed(t, domain.SideBuy, domain.StatusProcessing)

	// order 1: process, reject (5 < 10), reason index 1
	// order 2: process, fill (50 >= 10)
	// order 3: not this cycle
	f.sim.WithRand(scripted(0, 5, 1, 0, 50, 80))

	result, err := f.sim.ProcessExchangeResponses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CycleResult{Filled: 1, Rejected: 1}, result)

	assert.Equal(t, domain.StatusRejected, f.status(t, rejected))
	assert.Equal(t, domain.StatusFilled, f.status(t, filled))
	assert.Equal(t, domain.StatusProcessing, f.status(t, skipped))

	assert.Equal(t, "980", testingpkg.Capital(t, f.db, f.p.ID).String())
	qty, held := testingpkg.HoldingQuantity(t, f.db, f.p.ID, f.s.ID)
	assert.True(t, held)
	assert.Equal(t, int64(2), qty)

	calls := f.notifier.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "rejected", calls[0].Kind)
	assert.Equal(t, "Market closed", calls[0].Reason)
	assert.Equal(t, "filled", calls[1].Kind)
}

func TestProcessExchangeResponses_RejectsUnfillableSell(t *testing.T) {
	f := newFixture(t, 0)
	doomed := f.seed(t, domain.SideSell, domain.StatusProcessing) // nothing held
	ok := f.seed(t, domain.SideBuy, domain.StatusProcessing)
	f.sim.WithRand(scripted(0, 99))

	result, err := f.sim.ProcessExchangeResponses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CycleResult{Filled: 1, Rejected: 1}, result)

	assert.Equal(t, domain.StatusRejected, f.status(t, doomed))
	assert.Equal(t, domain.StatusFilled, f.status(t, ok))
	assert.Equal(t, "980", testingpkg.Capital(t, f.db, f.p.ID).String(), "rejection moves no capital")

	calls := f.notifier.Calls()
	require.NotEmpty(t, calls)
	assert.Equal(t, "rejected", calls[0].Kind)
	assert.Contains(t, calls[0].Reason, "Stock not owned")
}

func TestProcessExchangeResponses_DoubleSellDoesNotBlockClose(t *testing.T) {
	f := newFixture(t, 0)
	testingpkg.SeedHolding(t, f.db, f.p.ID, f.s.ID, 2)
	first := f.seed(t, domain.SideSell, domain.StatusProcessing)
	second := f.seed(t, domain.SideSell, domain.StatusProcessing)
	f.sim.WithRand(scripted(0, 99))

	result, err := f.sim.ProcessExchangeResponses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &CycleResult{Filled: 1, Rejected: 1}, result)
	assert.Equal(t, domain.StatusFilled, f.status(t, first))
	assert.Equal(t, domain.StatusRejected, f.status(t, second))

	closed, err := f.engine.ClosePortfolio(context.Background(), f.p.ID, false)
	require.NoError(t, err)
	assert.Equal(t, domain.PortfolioClosed, closed.Status)
}

func TestProcessExchangeResponses_FailureRateBounds(t *testing.T) {
	tests := []struct {
		rate   int
		status domain.OrderStatus
	}{
		{0, domain.StatusFilled},
		{100, domain.StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.status.String(), func(t *testing.T) {
			f := newFixture(t, tt.rate)
			ids := make([]int64, 5)
			for i := range ids {
				ids[i] = f.seed(t, domain.SideBuy, domain.StatusProcessing)
			}
			f.sim.WithRand(scripted(0, 42, 3))

			_, err := f.sim.ProcessExchangeResponses(context.Background())
			require.NoError(t, err)
			for _, id := range ids {
				assert.Equal(t, tt.status, f.status(t, id))
			}
		})
	}
}

func TestStatsAndFailureRate(t *testing.T) {
	f := newFixture(t, 250)
	assert.Equal(t, 100, f.sim.FailureRate(), "clamped at construction")

	assert.Equal(t, 0, f.sim.SetFailureRate(-5))
	assert.Equal(t, 100, f.sim.SetFailureRate(150))
	assert.Equal(t, 35, f.sim.SetFailureRate(35))

	f.seed(t, domain.SideBuy, domain.StatusInitialized)
	f.seed(t, domain.SideBuy, domain.StatusInitialized)
	f.seed(t, domain.SideBuy, domain.StatusProcessing)
	f.seed(t, domain.SideBuy, domain.StatusRejected)

	stats, err := f.sim.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &Stats{Initialized: 2, Processing: 1, Filled: 0, Rejected: 1, FailureRate: 35}, stats)
}

func TestJobs(t *testing.T) {
	f := newFixture(t, 0)
	id := f.seed(t, domain.SideBuy, domain.StatusInitialized)
	f.sim.WithRand(scripted(0))

	send := NewSendJob(f.sim)
	process := NewProcessJob(f.sim)
	assert.Equal(t, "simulator_send", send.Name())
	assert.Equal(t, "simulator_process", process.Name())

	require.NoError(t, send.Run())
	assert.Equal(t, domain.StatusProcessing, f.status(t, id))
	require.NoError(t, process.Run())
	assert.Equal(t, domain.StatusFilled, f.status(t, id))
}
