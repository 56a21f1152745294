package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/modules/orders"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/stocks"
	"github.com/aristath/stockfolio/internal/modules/watchlist"
)

// InitializeRepositories creates all repositories on the container database
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil || container.DB == nil {
		return fmt.Errorf("container database cannot be nil")
	}
	conn := container.DB.Conn()

	container.StockRepo = stocks.NewStockRepository(conn, log)
	container.PriceHistoryRepo = stocks.NewPriceHistoryRepository(conn, log)
	container.PortfolioRepo = portfolio.NewPortfolioRepository(conn, log)
	container.HoldingsRepo = portfolio.NewHoldingsRepository(conn, log)
	container.OrderRepo = orders.NewOrderRepository(conn, log)
	container.WatchlistRepo = watchlist.NewRepository(conn, log)

	log.Debug().Msg("Repositories initialized")
	return nil
}
