package orders

import (
	"context"
	"database/sql"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/database"
	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/modules/portfolio"
	"github.com/aristath/stockfolio/internal/modules/stocks"
)

// Rejection reasons used when the caller supplies none
const (
	ReasonReversedAfterFill = "Order reversed after fill"
	ReasonBeforeProcessing  = "Rejected before processing"
	ReasonByExchange        = "Rejected by exchange"
)

// OrderRequest is the client-supplied part of a new order
type OrderRequest struct {
	Price  decimal.Decimal `json:"price"`
	Fees   decimal.Decimal `json:"fees"`
	Side   string          `json:"side"`
	Type   string          `json:"order_type"`
	Volume int64           `json:"volume"`
}

// Engine places orders and moves them through their status lifecycle,
// settling capital and holdings atomically on every fill and reversal.
type Engine struct {
	db         *sql.DB
	orders     *OrderRepository
	portfolios *portfolio.PortfolioRepository
	holdings   *portfolio.HoldingsRepository
	stocks     *stocks.StockRepository
	prices     *stocks.PriceHistoryRepository
	notifier   domain.Notifier
	bus        *events.Bus
	locks      portfolioLocks
	log        zerolog.Logger
}

var _ portfolio.Settler = (*Engine)(nil)

// NewEngine creates a new order engine. bus may be nil.
func NewEngine(
	db *sql.DB,
	orders *OrderRepository,
	portfolios *portfolio.PortfolioRepository,
	holdings *portfolio.HoldingsRepository,
	stockRepo *stocks.StockRepository,
	prices *stocks.PriceHistoryRepository,
	notifier domain.Notifier,
	bus *events.Bus,
	log zerolog.Logger,
) *Engine {
	return &Engine{
		db:         db,
		orders:     orders,
		portfolios: portfolios,
		holdings:   holdings,
		stocks:     stockRepo,
		prices:     prices,
		notifier:   notifier,
		bus:        bus,
		log:        log.With().Str("service", "orders").Logger(),
	}
}

// txRepos are the repositories bound to one settlement transaction
type txRepos struct {
	orders     *OrderRepository
	portfolios *portfolio.PortfolioRepository
	holdings   *portfolio.HoldingsRepository
	stocks     *stocks.StockRepository
	prices     *stocks.PriceHistoryRepository
}

func (e *Engine) bind(tx *sql.Tx) txRepos {
	return txRepos{
		orders:     e.orders.WithTx(tx),
		portfolios: e.portfolios.WithTx(tx),
		holdings:   e.holdings.WithTx(tx),
		stocks:     e.stocks.WithTx(tx),
		prices:     e.prices.WithTx(tx),
	}
}

// WithPortfolioLock runs fn holding the portfolio's write lock
func (e *Engine) WithPortfolioLock(portfolioID int64, fn func() error) error {
	return e.locks.with(portfolioID, fn)
}

// PlaceOrder validates and persists a new Initialized order.
// A sell must be covered by the portfolio's current holding.
func (e *Engine) PlaceOrder(ctx context.Context, portfolioID, stockID int64, req OrderRequest) (*domain.Order, error) {
	order, err := req.toOrder(portfolioID, stockID)
	if err != nil {
		return nil, err
	}

	err = e.locks.with(portfolioID, func() error {
		return database.WithTransactionContext(ctx, e.db, func(tx *sql.Tx) error {
			repos := e.bind(tx)

			p, err := repos.portfolios.GetByID(ctx, portfolioID)
			if err != nil {
				return err
			}
			stock, err := repos.stocks.GetByID(ctx, stockID)
			if err != nil {
				return err
			}
			if p.Status != domain.PortfolioActive {
				return domain.NewValidationError("Portfolio %d is closed and cannot place orders", portfolioID)
			}
			order.Ticker = stock.Ticker

			if order.Side == domain.SideSell {
				holding, err := repos.holdings.Get(ctx, portfolioID, stockID)
				if err != nil {
					return err
				}
				if holding == nil {
					return domain.NewValidationError("Stock not owned: portfolio %d holds no %s", portfolioID, stock.Ticker)
				}
				if holding.Quantity < order.Volume {
					return domain.NewValidationError("Insufficient shares: requested %d, available %d", order.Volume, holding.Quantity)
				}
			}

			return repos.orders.Create(ctx, order)
		})
	})
	if err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("order_id", order.ID).
		Int64("portfolio_id", portfolioID).
		Str("side", string(order.Side)).
		Str("ticker", order.Ticker).
		Int64("volume", order.Volume).
		Msg("Order placed")
	e.notifier.OrderPlaced(order, order.Ticker)
	return order, nil
}

// GetOrder returns one order
func (e *Engine) GetOrder(ctx context.Context, id int64) (*domain.Order, error) {
	return e.orders.GetByID(ctx, id)
}

// ListOrders returns every order, newest first
func (e *Engine) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return e.orders.List(ctx)
}

// TradingHistory returns a portfolio's orders, newest first
func (e *Engine) TradingHistory(ctx context.Context, portfolioID int64) ([]domain.Order, error) {
	if _, err := e.portfolios.GetByID(ctx, portfolioID); err != nil {
		return nil, err
	}
	return e.orders.ListByPortfolio(ctx, portfolioID)
}

// UpdateOrderStatus moves an order to the status with the given code.
// Entering Filled applies the order's effect; leaving Filled reverses it.
func (e *Engine) UpdateOrderStatus(ctx context.Context, orderID int64, code int) (*domain.Order, error) {
	status, err := domain.ParseOrderStatus(code)
	if err != nil {
		return nil, err
	}
	return e.transition(ctx, orderID, status, "")
}

// RejectOrder moves an order to Rejected with an explicit reason
func (e *Engine) RejectOrder(ctx context.Context, orderID int64, reason string) (*domain.Order, error) {
	return e.transition(ctx, orderID, domain.StatusRejected, reason)
}

func (e *Engine) transition(ctx context.Context, orderID int64, next domain.OrderStatus, reason string) (*domain.Order, error) {
	// The portfolio id never changes, so it is safe to read before locking.
	current, err := e.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	var order *domain.Order
	var old domain.OrderStatus
	var effect Settlement

	err = e.locks.with(current.PortfolioID, func() error {
		return database.WithTransactionContext(ctx, e.db, func(tx *sql.Tx) error {
			repos := e.bind(tx)

			o, err := repos.orders.GetByID(ctx, orderID)
			if err != nil {
				return err
			}
			p, err := repos.portfolios.GetByID(ctx, o.PortfolioID)
			if err != nil {
				return err
			}
			if p.Status == domain.PortfolioClosed {
				return domain.NewValidationError("Portfolio %d is closed; order %d can no longer change status", p.ID, o.ID)
			}

			old = o.Status
			effect, err = e.settle(ctx, repos, p, o, old, next)
			if err != nil {
				return err
			}
			order = o
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	e.afterTransition(order, old, effect, reason)
	return order, nil
}

// settle writes the capital, holdings and status changes of one transition.
// It must run inside a transaction with the portfolio lock held.
func (e *Engine) settle(ctx context.Context, repos txRepos, p *domain.Portfolio, o *domain.Order, old, next domain.OrderStatus) (Settlement, error) {
	effect := SettlementFor(old, next)

	if effect != SettleNone {
		holding, err := repos.holdings.Get(ctx, o.PortfolioID, o.StockID)
		if err != nil {
			return SettleNone, err
		}
		pos := Position{Capital: p.Capital}
		if holding != nil {
			pos.Quantity = holding.Quantity
			pos.Held = true
		}

		var after Position
		if effect == SettleApply {
			after, err = ApplyFill(pos, o)
			if err != nil {
				return SettleNone, err
			}
		} else {
			after = ReverseFill(pos, o)
		}

		if err := repos.portfolios.UpdateCapital(ctx, p.ID, after.Capital); err != nil {
			return SettleNone, err
		}
		if holding != nil || after.Quantity > 0 {
			h := &domain.Holding{PortfolioID: o.PortfolioID, StockID: o.StockID, Quantity: after.Quantity}
			if err := repos.holdings.Persist(ctx, h); err != nil {
				return SettleNone, err
			}
		}
		p.Capital = after.Capital
	}

	if err := repos.orders.UpdateStatus(ctx, o.ID, next); err != nil {
		return SettleNone, err
	}
	o.Status = next
	o.UpdatedAt = time.Now().UTC()
	return effect, nil
}

// afterTransition logs, notifies and publishes once the transaction committed
func (e *Engine) afterTransition(o *domain.Order, old domain.OrderStatus, effect Settlement, reason string) {
	e.log.Info().
		Int64("order_id", o.ID).
		Int64("portfolio_id", o.PortfolioID).
		Stringer("from", old).
		Stringer("to", o.Status).
		Str("settlement", effect.String()).
		Msg("Order status updated")

	if effect == SettleApply {
		e.notifier.OrderFilled(o, o.Ticker)
	}
	if o.Status == domain.StatusRejected {
		if reason == "" {
			reason = defaultRejectReason(old)
		}
		e.notifier.OrderRejected(o, o.Ticker, reason)
	}

	if e.bus != nil {
		e.bus.Publish("orders", &events.OrderStatusChangedData{
			OrderID:     o.ID,
			PortfolioID: o.PortfolioID,
			OldStatus:   int(old),
			NewStatus:   int(o.Status),
			Settled:     effect.String(),
		})
	}
}

func defaultRejectReason(old domain.OrderStatus) string {
	switch old {
	case domain.StatusFilled:
		return ReasonReversedAfterFill
	case domain.StatusInitialized:
		return ReasonBeforeProcessing
	default:
		return ReasonByExchange
	}
}

// ClosePortfolio marks a portfolio CLOSED.
// Open orders block the close. Holdings block it unless liquidate is set,
// in which case each holding is sold at its latest price (0 if none) with
// no fees, settled through the same path as any other fill.
func (e *Engine) ClosePortfolio(ctx context.Context, portfolioID int64, liquidate bool) (*domain.Portfolio, error) {
	var closed *domain.Portfolio
	var sells []*domain.Order

	err := e.locks.with(portfolioID, func() error {
		return database.WithTransactionContext(ctx, e.db, func(tx *sql.Tx) error {
			repos := e.bind(tx)
			sells = nil

			p, err := repos.portfolios.GetByID(ctx, portfolioID)
			if err != nil {
				return err
			}
			if p.Status == domain.PortfolioClosed {
				return domain.NewValidationError("Portfolio %d is already closed", portfolioID)
			}

			open, err := repos.orders.CountNonTerminal(ctx, portfolioID)
			if err != nil {
				return err
			}
			if open > 0 {
				return domain.NewValidationError("Cannot close portfolio. Some orders are still processing.")
			}

			holdings, err := repos.holdings.ListByPortfolio(ctx, portfolioID)
			if err != nil {
				return err
			}
			if len(holdings) > 0 && !liquidate {
				return domain.NewValidationError("Portfolio has active holdings. Liquidation is required to close.")
			}

			for _, h := range holdings {
				sell, err := e.liquidate(ctx, repos, p, h)
				if err != nil {
					return err
				}
				sells = append(sells, sell)
			}

			if err := repos.portfolios.UpdateStatus(ctx, portfolioID, domain.PortfolioClosed); err != nil {
				return err
			}
			p.Status = domain.PortfolioClosed
			closed = p
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	for _, sell := range sells {
		e.afterTransition(sell, domain.StatusInitialized, SettleApply, "")
	}
	if e.bus != nil {
		e.bus.Publish("orders", &events.PortfolioClosedData{PortfolioID: portfolioID, Liquidated: len(sells)})
	}
	return closed, nil
}

// liquidate records a market sell of the whole holding and fills it
func (e *Engine) liquidate(ctx context.Context, repos txRepos, p *domain.Portfolio, h domain.Holding) (*domain.Order, error) {
	price, _, err := repos.prices.LatestPrice(ctx, h.StockID)
	if err != nil {
		return nil, err
	}

	sell := &domain.Order{
		PortfolioID: p.ID,
		StockID:     h.StockID,
		Side:        domain.SideSell,
		Type:        domain.OrderTypeMarket,
		Price:       price,
		Volume:      h.Quantity,
		Fees:        decimal.Zero,
		Status:      domain.StatusInitialized,
		Ticker:      h.Ticker,
	}
	if err := repos.orders.Create(ctx, sell); err != nil {
		return nil, err
	}
	if _, err := e.settle(ctx, repos, p, sell, domain.StatusInitialized, domain.StatusFilled); err != nil {
		return nil, err
	}

	e.log.Info().
		Int64("portfolio_id", p.ID).
		Str("ticker", h.Ticker).
		Int64("quantity", h.Quantity).
		Str("price", price.String()).
		Msg("Holding liquidated")
	return sell, nil
}

func (req OrderRequest) toOrder(portfolioID, stockID int64) (*domain.Order, error) {
	side, err := domain.ParseOrderSide(req.Side)
	if err != nil {
		return nil, err
	}
	orderType, err := domain.ParseOrderType(req.Type)
	if err != nil {
		return nil, err
	}
	if req.Volume <= 0 {
		return nil, domain.NewValidationError("volume must be a positive number of shares, got %d", req.Volume)
	}
	if !req.Price.IsPositive() {
		return nil, domain.NewValidationError("price must be greater than 0")
	}
	if req.Fees.IsNegative() {
		return nil, domain.NewValidationError("fees cannot be negative")
	}

	return &domain.Order{
		PortfolioID: portfolioID,
		StockID:     stockID,
		Side:        side,
		Type:        orderType,
		Price:       req.Price,
		Volume:      req.Volume,
		Fees:        req.Fees,
		Status:      domain.StatusInitialized,
	}, nil
}
