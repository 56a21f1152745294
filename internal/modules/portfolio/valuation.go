package portfolio

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/modules/stocks"
)

// OrderReader is the order history needed for performance and reporting
type OrderReader interface {
	ListByPortfolio(ctx context.Context, portfolioID int64) ([]domain.Order, error)
	CountByPortfolio(ctx context.Context, portfolioID int64) (int, error)
}

// Valuator derives value, performance and allocation from holdings,
// the latest recorded prices and order history.
type Valuator struct {
	prices stocks.PriceReader
	orders OrderReader
	log    zerolog.Logger
}

// NewValuator creates a new valuator
func NewValuator(prices stocks.PriceReader, orders OrderReader, log zerolog.Logger) *Valuator {
	return &Valuator{
		prices: prices,
		orders: orders,
		log:    log.With().Str("component", "valuator").Logger(),
	}
}

// currentPrice returns the latest recorded price, or zero when there is none.
// A failed lookup is logged and valued at zero.
func (v *Valuator) currentPrice(ctx context.Context, stockID int64) decimal.Decimal {
	price, ok, err := v.prices.LatestPrice(ctx, stockID)
	if err != nil {
		v.log.Warn().Err(err).Int64("stock_id", stockID).Msg("Failed to read latest price, valuing at zero")
		return decimal.Zero
	}
	if !ok {
		return decimal.Zero
	}
	return price
}

// CalculatePortfolioValue sums quantity × latest price over holdings.
// Stocks without price history contribute zero.
func (v *Valuator) CalculatePortfolioValue(ctx context.Context, holdings []domain.Holding) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		total = total.Add(v.currentPrice(ctx, h.StockID).Mul(decimal.NewFromInt(h.Quantity)))
	}
	return total
}

// CalculatePerformance compares filled order cash flows with current value
func (v *Valuator) CalculatePerformance(ctx context.Context, portfolioID int64, holdings []domain.Holding) (*Performance, error) {
	orders, err := v.orders.ListByPortfolio(ctx, portfolioID)
	if err != nil {
		return nil, err
	}

	invested, sold := decimal.Zero, decimal.Zero
	for i := range orders {
		o := &orders[i]
		if o.Status != domain.StatusFilled {
			continue
		}
		switch o.Side {
		case domain.SideBuy:
			invested = invested.Add(o.Amount().Add(o.Fees))
		case domain.SideSell:
			sold = sold.Add(o.Amount().Sub(o.Fees))
		}
	}

	current := v.CalculatePortfolioValue(ctx, holdings)
	gainLoss := current.Add(sold).Sub(invested)

	percent := decimal.Zero
	if invested.IsPositive() {
		percent = gainLoss.Div(invested).Mul(hundred).Round(4)
	}

	return &Performance{
		TotalInvested:   invested,
		TotalSold:       sold,
		CurrentValue:    current,
		TotalGainLoss:   gainLoss,
		GainLossPercent: percent,
	}, nil
}

// CalculateAllocation returns each holding's value and share of the total.
// Missing prices yield zero value, price and percentage for that holding.
func (v *Valuator) CalculateAllocation(ctx context.Context, holdings []domain.Holding) []AllocationItem {
	items := make([]AllocationItem, 0, len(holdings))
	total := decimal.Zero
	for _, h := range holdings {
		price := v.currentPrice(ctx, h.StockID)
		value := price.Mul(decimal.NewFromInt(h.Quantity))
		total = total.Add(value)
		items = append(items, AllocationItem{
			StockID:      h.StockID,
			Symbol:       h.Ticker,
			Name:         h.Name,
			Quantity:     h.Quantity,
			Value:        value,
			CurrentPrice: price,
		})
	}

	for i := range items {
		if total.IsPositive() {
			items[i].Percentage = items[i].Value.Div(total).Mul(hundred).Round(4)
		} else {
			items[i].Percentage = decimal.Zero
		}
	}
	return items
}

// MeasureConcentration computes the Herfindahl index and the largest weight of an allocation
func MeasureConcentration(items []AllocationItem) Concentration {
	if len(items) == 0 {
		return Concentration{}
	}

	weights := make([]float64, len(items))
	for i, item := range items {
		weights[i] = item.Value.InexactFloat64()
	}
	total := floats.Sum(weights)
	if total <= 0 {
		return Concentration{}
	}
	floats.Scale(1/total, weights)

	return Concentration{
		HHI:       floats.Dot(weights, weights),
		TopWeight: floats.Max(weights),
	}
}
