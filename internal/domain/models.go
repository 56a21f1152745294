// Package domain provides core domain models and types.
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioStatus is the lifecycle state of a portfolio
type PortfolioStatus string

const (
	PortfolioActive PortfolioStatus = "ACTIVE"
	PortfolioClosed PortfolioStatus = "CLOSED"
)

// OrderSide is BUY or SELL
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// ParseOrderSide normalizes and validates a side string
func ParseOrderSide(s string) (OrderSide, error) {
	switch side := OrderSide(strings.ToUpper(strings.TrimSpace(s))); side {
	case SideBuy, SideSell:
		return side, nil
	default:
		return "", NewValidationError("order side must be BUY or SELL, got %q", s)
	}
}

// OrderType is the execution style requested by the client
type OrderType string

const (
	OrderTypeMarket OrderType = "MARKET"
	OrderTypeLimit  OrderType = "LIMIT"
	OrderTypeStop   OrderType = "STOP"
)

// ParseOrderType normalizes and validates an order type; empty means MARKET
func ParseOrderType(s string) (OrderType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return OrderTypeMarket, nil
	}
	switch t := OrderType(s); t {
	case OrderTypeMarket, OrderTypeLimit, OrderTypeStop:
		return t, nil
	default:
		return "", NewValidationError("order type must be MARKET, LIMIT or STOP, got %q", s)
	}
}

// OrderStatus is the numeric lifecycle code of an order
type OrderStatus int

const (
	StatusInitialized OrderStatus = 0
	StatusProcessing  OrderStatus = 1
	StatusFilled      OrderStatus = 2
	StatusRejected    OrderStatus = 3
)

// ParseOrderStatus validates a raw status code
func ParseOrderStatus(code int) (OrderStatus, error) {
	status := OrderStatus(code)
	if !status.Valid() {
		return 0, NewValidationError("invalid status code %d: must be one of 0 (Initialized), 1 (Processing), 2 (Filled), 3 (Rejected)", code)
	}
	return status, nil
}

// Valid reports whether the code is a known status
func (s OrderStatus) Valid() bool {
	return s >= StatusInitialized && s <= StatusRejected
}

// Terminal reports whether no further automatic transition is expected
func (s OrderStatus) Terminal() bool {
	return s == StatusFilled || s == StatusRejected
}

func (s OrderStatus) String() string {
	switch s {
	case StatusInitialized:
		return "Initialized"
	case StatusProcessing:
		return "Processing"
	case StatusFilled:
		return "Filled"
	case StatusRejected:
		return "Rejected"
	default:
		return fmt.Sprintf("Unknown(%d)", int(s))
	}
}

// AlertDirection is the side of the target a watchlist alert fires on
type AlertDirection string

const (
	AlertAbove AlertDirection = "ABOVE"
	AlertBelow AlertDirection = "BELOW"
)

// ParseAlertDirection normalizes and validates a direction string
func ParseAlertDirection(s string) (AlertDirection, error) {
	switch d := AlertDirection(strings.ToUpper(strings.TrimSpace(s))); d {
	case AlertAbove, AlertBelow:
		return d, nil
	default:
		return "", NewValidationError("alert direction must be ABOVE or BELOW, got %q", s)
	}
}

// Stock is immutable reference data for orders, holdings and prices
type Stock struct {
	CreatedAt time.Time `json:"created_at"`
	Ticker    string    `json:"ticker"`
	Name      string    `json:"name"`
	Sector    string    `json:"sector"`
	Market    string    `json:"market"`
	Currency  string    `json:"currency"`
	ISIN      string    `json:"isin"`
	CUSIP     string    `json:"cusip"`
	ID        int64     `json:"id"`
}

// Portfolio owns a cash balance and a set of holdings
type Portfolio struct {
	CreatedAt   time.Time       `json:"created_at"`
	Capital     decimal.Decimal `json:"capital"` // available cash, mutated by fills
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Status      PortfolioStatus `json:"status"`
	ID          int64           `json:"id"`
}

// Order is a request to buy or sell a stock for a portfolio
type Order struct {
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	Price       decimal.Decimal `json:"price"`
	Fees        decimal.Decimal `json:"fees"`
	Side        OrderSide       `json:"side"`
	Type        OrderType       `json:"order_type"`
	Ticker      string          `json:"ticker,omitempty"` // populated on reads for display
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	StockID     int64           `json:"stock_id"`
	Volume      int64           `json:"volume"`
	Status      OrderStatus     `json:"status_code"`
}

// Amount is price × volume
func (o *Order) Amount() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromInt(o.Volume))
}

// Holding is the quantity of one stock owned by one portfolio.
// A stored holding always has Quantity > 0.
type Holding struct {
	UpdatedAt   time.Time `json:"updated_at"`
	Ticker      string    `json:"ticker,omitempty"`
	Name        string    `json:"name,omitempty"`
	ID          int64     `json:"id"`
	PortfolioID int64     `json:"portfolio_id"`
	StockID     int64     `json:"stock_id"`
	Quantity    int64     `json:"quantity"`
}

// PriceHistory is one recorded price observation
type PriceHistory struct {
	RecordedAt time.Time       `json:"recorded_at"`
	Price      decimal.Decimal `json:"price"`
	ID         int64           `json:"id"`
	StockID    int64           `json:"stock_id"`
}

// WatchlistEntry tracks a stock, optionally with a target price alert
type WatchlistEntry struct {
	CreatedAt          time.Time           `json:"created_at"`
	LastTriggeredAt    *time.Time          `json:"last_triggered_at,omitempty"`
	TargetPrice        decimal.NullDecimal `json:"target_price"`
	LastTriggeredPrice decimal.NullDecimal `json:"last_triggered_price"`
	Direction          AlertDirection      `json:"direction,omitempty"`
	Ticker             string              `json:"ticker,omitempty"`
	ID                 int64               `json:"id"`
	StockID            int64               `json:"stock_id"`
	Notified           bool                `json:"notified"`
}

// Armed reports whether the entry carries both a target and a direction
func (e *WatchlistEntry) Armed() bool {
	return e.TargetPrice.Valid && e.Direction != ""
}
