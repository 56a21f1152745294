// Package portfolio provides portfolios, the holdings ledger and valuation.
package portfolio

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// Capital bounds for creating or re-funding a portfolio
var (
	MaxCapital = decimal.NewFromInt(1_000_000)
	hundred    = decimal.NewFromInt(100)
)

// PortfolioInput is the writable part of a portfolio
type PortfolioInput struct {
	Capital     decimal.Decimal `json:"capital"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
}

// Performance is the realized plus unrealized result of a portfolio's filled orders
type Performance struct {
	TotalInvested   decimal.Decimal `json:"total_invested"`
	TotalSold       decimal.Decimal `json:"total_sold"`
	CurrentValue    decimal.Decimal `json:"current_value"`
	TotalGainLoss   decimal.Decimal `json:"total_gain_loss"`
	GainLossPercent decimal.Decimal `json:"gain_loss_percent"`
}

// AllocationItem is one holding's share of portfolio value
type AllocationItem struct {
	Symbol       string          `json:"symbol"`
	Name         string          `json:"name"`
	Value        decimal.Decimal `json:"value"`
	Percentage   decimal.Decimal `json:"percentage"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	StockID      int64           `json:"stock_id"`
	Quantity     int64           `json:"quantity"`
}

// Concentration summarizes how evenly value is spread across holdings
type Concentration struct {
	HHI       float64 `json:"hhi"`        // Herfindahl index of value weights, 0..1
	TopWeight float64 `json:"top_weight"` // largest single weight, 0..1
}

// Summary is one row of the all-portfolios overview
type Summary struct {
	TotalValue       decimal.Decimal        `json:"total_value"`
	AvailableCapital decimal.Decimal        `json:"available_capital"`
	TotalCapital     decimal.Decimal        `json:"total_capital"`
	Name             string                 `json:"name"`
	Status           domain.PortfolioStatus `json:"status"`
	ID               int64                  `json:"id"`
	HoldingsCount    int                    `json:"holdings_count"`
}

// Dashboard is the full reporting view of one portfolio
type Dashboard struct {
	Portfolio        *domain.Portfolio `json:"portfolio"`
	Performance      *Performance      `json:"performance"`
	Holdings         []domain.Holding  `json:"holdings"`
	RecentOrders     []domain.Order    `json:"recent_orders"`
	Allocation       []AllocationItem  `json:"allocation"`
	TotalValue       decimal.Decimal   `json:"total_value"`
	AvailableCapital decimal.Decimal   `json:"available_capital"`
	TotalCapital     decimal.Decimal   `json:"total_capital"`
	Concentration    Concentration     `json:"concentration"`
	TotalHoldings    int               `json:"total_holdings"`
}
