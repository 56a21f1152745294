package di

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/stockfolio/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataDir: t.TempDir(),
		Port:    8080,
		AlphaVantage: config.AlphaVantageConfig{
			APIKey:     "demo",
			DailyLimit: 25,
		},
		MarketData: config.MarketDataConfig{CacheTTL: time.Minute},
		Simulator: config.SimulatorConfig{
			Enabled:      true,
			SendSchedule: "@every 10s",
			FillSchedule: "@every 15s",
			FailureRate:  10,
		},
		Watchlist:           config.WatchlistConfig{Schedule: "@every 60s"},
		Backup:              config.BackupConfig{Schedule: "0 0 3 * * *", RetentionDays: 30},
		MaintenanceSchedule: "0 0 2 * * *",
	}
}

func TestWire(t *testing.T) {
	cfg := testConfig(t)

	container, jobs, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	assert.NotNil(t, container.DB)
	assert.NotNil(t, container.OrderEngine)
	assert.NotNil(t, container.PortfolioService)
	assert.NotNil(t, container.MarketDataService)
	assert.NotNil(t, container.AlertChecker)
	assert.Nil(t, container.BackupService, "no bucket configured")

	assert.NotNil(t, jobs.SimulatorSend)
	assert.NotNil(t, jobs.SimulatorProcess)
	assert.NotNil(t, jobs.WatchlistAlerts)
	assert.NotNil(t, jobs.CacheCleanup)
	assert.NotNil(t, jobs.Maintenance)
	assert.Nil(t, jobs.Backup)

	require.NoError(t, container.DB.HealthCheck(context.Background()))
}

func TestWire_BadSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Watchlist.Schedule = "not a schedule"

	_, _, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "watchlist")
}

func TestContainerRoutes(t *testing.T) {
	cfg := testConfig(t)
	container, _, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { container.Close() })

	router := chi.NewRouter()
	for _, r := range container.Routes(zerolog.Nop()) {
		r.RegisterRoutes(router)
	}
	for _, r := range container.Streams(zerolog.Nop()) {
		r.RegisterRoutes(router)
	}

	var routes []string
	require.NoError(t, chi.Walk(router, func(method, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, method+" "+route)
		return nil
	}))

	for _, want := range []string{
		"GET /stocks/",
		"GET /portfolios/",
		"POST /orders/place",
		"GET /simulator/stats",
		"GET /api/watchlist/",
		"GET /api/live-prices/popular",
		"GET /api/notifications/ws",
	} {
		assert.Contains(t, routes, want)
	}
}
