// Package di provides dependency injection type definitions.
//
// Container holds every application dependency. It is the single source of
// truth for service instances and is handed to the server for route mounting.
package di

import (
	"github.com/aristath/stockfolio/internal/clients/alphavantage"
	"github.com/aristath/stockfolio/internal/clients/finnhub"
	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/modules/marketdata"
	"github.com/aristath/stockfolio/internal/modules/orders"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/simulator"
	"github.com/aristath/stockfolio/internal/modules/stocks"
	"github.com/aristath/stockfolio/internal/modules/watchlist"
	"github.com/aristath/stockfolio/internal/notifications"
	"github.com/aristath/stockfolio/internal/reliability"
	"github.com/aristath/stockfolio/internal/scheduler"
)

// Container holds all dependencies for the application
type Container struct {
	// Database
	DB *database.DB

	// Repositories
	StockRepo        *stocks.StockRepository
	PriceHistoryRepo *stocks.PriceHistoryRepository
	PortfolioRepo    *portfolio.PortfolioRepository
	HoldingsRepo     *portfolio.HoldingsRepository
	OrderRepo        *orders.OrderRepository
	WatchlistRepo    *watchlist.Repository

	// Clients
	FinnhubClient      *finnhub.Client
	AlphaVantageClient *alphavantage.Client

	// Services
	EventBus          *events.Bus
	Notifications     *notifications.Service
	StockService      *stocks.Service
	Valuator          *portfolio.Valuator
	PortfolioService  *portfolio.Service
	OrderEngine       *orders.Engine
	Simulator         *simulator.Simulator
	WatchlistService  *watchlist.Service
	AlertChecker      *watchlist.AlertChecker
	MarketDataService *marketdata.Service

	// Reliability, nil when backups are not configured
	BackupService *reliability.BackupService

	Scheduler *scheduler.Scheduler
}

// JobInstances holds references to registered jobs for manual triggering
type JobInstances struct {
	SimulatorSend    scheduler.Job // nil when the simulator is disabled
	SimulatorProcess scheduler.Job
	WatchlistAlerts  scheduler.Job
	CacheCleanup     scheduler.Job
	Backup           scheduler.Job // nil when backups are disabled
	Maintenance      scheduler.Job
}
