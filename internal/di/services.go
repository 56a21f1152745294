package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/clients/alphavantage"
	"github.com/aristath/stockfolio/internal/clients/finnhub"
	"github.com/aristath/stockfolio/internal/config"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/modules/marketdata"
	marketdatahandlers "github.com/aristath/stockfolio/internal/modules/marketdata/handlers"
	"github.com/aristath/stockfolio/internal/modules/orders"
	orderhandlers "github.com/aristath/stockfolio/internal/modules/orders/handlers"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	portfoliohandlers "github.com/aristath/stockfolio/internal/modules/portfolio/handlers"
	"github.com/aristath/stockfolio/internal/modules/simulator"
	simulatorhandlers "github.com/aristath/stockfolio/internal/modules/simulator/handlers"
	"github.com/aristath/stockfolio/internal/modules/stocks"
	stockhandlers "github.com/aristath/stockfolio/internal/modules/stocks/handlers"
	"github.com/aristath/stockfolio/internal/modules/watchlist"
	watchlisthandlers "github.com/aristath/stockfolio/internal/modules/watchlist/handlers"
	"github.com/aristath/stockfolio/internal/notifications"
	"github.com/aristath/stockfolio/internal/reliability"
	"github.com/aristath/stockfolio/internal/server"
)

// InitializeServices creates clients and services. Repositories must exist.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container == nil || container.OrderRepo == nil {
		return fmt.Errorf("repositories must be initialized before services")
	}

	// Events and notifications
	container.EventBus = events.NewBus(log)
	container.Notifications = notifications.NewService(container.EventBus, log)

	// Market data providers
	if cfg.Finnhub.APIKey == "" {
		log.Warn().Msg("FINNHUB_API_KEY not set - live quotes and watchlist alerts will fail")
	}
	container.FinnhubClient = finnhub.NewClient(cfg.Finnhub.APIKey, cfg.Finnhub.BaseURL, log)

	container.AlphaVantageClient = alphavantage.NewClient(cfg.AlphaVantage.APIKey, log,
		alphavantage.WithBaseURL(cfg.AlphaVantage.BaseURL),
		alphavantage.WithDailyLimit(cfg.AlphaVantage.DailyLimit),
	)
	container.MarketDataService = marketdata.NewService(container.AlphaVantageClient, cfg.MarketData.CacheTTL, log)

	// Stocks
	container.StockService = stocks.NewService(container.StockRepo, container.PriceHistoryRepo, container.FinnhubClient, log)

	// Orders and portfolios
	container.OrderEngine = orders.NewEngine(
		container.DB.Conn(),
		container.OrderRepo,
		container.PortfolioRepo,
		container.HoldingsRepo,
		container.StockRepo,
		container.PriceHistoryRepo,
		container.Notifications,
		container.EventBus,
		log,
	)
	container.Valuator = portfolio.NewValuator(container.PriceHistoryRepo, container.OrderRepo, log)
	container.PortfolioService = portfolio.NewService(
		container.PortfolioRepo,
		container.HoldingsRepo,
		container.OrderRepo,
		container.Valuator,
		container.OrderEngine,
		container.Notifications,
		log,
	)
	container.Simulator = simulator.New(container.OrderRepo, container.OrderEngine, container.Notifications, cfg.Simulator.FailureRate, log)

	// Watchlist
	container.WatchlistService = watchlist.NewService(container.WatchlistRepo, container.StockRepo, log)
	container.AlertChecker = watchlist.NewAlertChecker(container.WatchlistRepo, container.FinnhubClient, container.Notifications, container.EventBus, log)

	// Backups
	if cfg.Backup.Enabled() {
		store, err := reliability.NewS3Store(context.Background(), cfg.Backup, log)
		if err != nil {
			return fmt.Errorf("failed to create backup store: %w", err)
		}
		container.BackupService = reliability.NewBackupService(container.DB, store, cfg.DataDir, log)
	} else {
		log.Info().Msg("BACKUP_BUCKET not set - backups disabled")
	}

	log.Debug().Msg("Services initialized")
	return nil
}

// Routes returns the module handlers served behind the request timeout
func (c *Container) Routes(log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		stockhandlers.NewHandler(c.StockService, log),
		portfoliohandlers.NewHandler(c.PortfolioService, log),
		orderhandlers.NewHandler(c.OrderEngine, log),
		simulatorhandlers.NewHandler(c.Simulator, log),
		watchlisthandlers.NewHandler(c.WatchlistService, c.AlertChecker, log),
		marketdatahandlers.NewHandler(c.MarketDataService, log),
	}
}

// Streams returns the handlers holding long-lived connections
func (c *Container) Streams(log zerolog.Logger) []server.RouteRegistrar {
	return []server.RouteRegistrar{
		notifications.NewHandler(c.Notifications, c.EventBus, log),
	}
}
