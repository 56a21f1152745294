package orders

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// Position is the cash and share state a single settlement touches:
// the portfolio's capital and its holding of the order's stock.
type Position struct {
	Capital  decimal.Decimal
	Quantity int64
	Held     bool // a holding row exists
}

// Settlement names the economic effect of a status transition
type Settlement int

const (
	SettleNone Settlement = iota
	SettleApply
	SettleReverse
)

func (s Settlement) String() string {
	switch s {
	case SettleApply:
		return "applied"
	case SettleReverse:
		return "reversed"
	default:
		return ""
	}
}

// SettlementFor decides the effect of moving an order from old to next.
// Only transitions into or out of Filled move capital and holdings.
func SettlementFor(old, next domain.OrderStatus) Settlement {
	switch {
	case old != domain.StatusFilled && next == domain.StatusFilled:
		return SettleApply
	case old == domain.StatusFilled && next != domain.StatusFilled:
		return SettleReverse
	default:
		return SettleNone
	}
}

// CapitalDelta is the signed cash change of filling o.
// Fees always cost the trader: a buy pays amount+fees, a sell receives amount-fees.
func CapitalDelta(o *domain.Order) decimal.Decimal {
	if o.Side == domain.SideBuy {
		return o.Amount().Add(o.Fees).Neg()
	}
	return o.Amount().Sub(o.Fees)
}

// QuantityDelta is the signed share change of filling o
func QuantityDelta(o *domain.Order) int64 {
	if o.Side == domain.SideBuy {
		return o.Volume
	}
	return -o.Volume
}

// ApplyFill returns pos after o's fill.
// A sell needs an existing holding of at least o.Volume shares.
func ApplyFill(pos Position, o *domain.Order) (Position, error) {
	if o.Side == domain.SideSell {
		if !pos.Held {
			return pos, domain.NewValidationError("Stock not owned: portfolio %d holds no %s", o.PortfolioID, tickerOf(o))
		}
		if pos.Quantity < o.Volume {
			return pos, domain.NewValidationError("Insufficient shares to sell: have %d, need %d", pos.Quantity, o.Volume)
		}
	}

	return Position{
		Capital:  pos.Capital.Add(CapitalDelta(o)),
		Quantity: pos.Quantity + QuantityDelta(o),
		Held:     true,
	}, nil
}

// ReverseFill returns pos with o's fill undone, using the order's own
// side, price, volume and fees. A missing holding is treated as quantity 0.
func ReverseFill(pos Position, o *domain.Order) Position {
	return Position{
		Capital:  pos.Capital.Sub(CapitalDelta(o)),
		Quantity: pos.Quantity - QuantityDelta(o),
		Held:     true,
	}
}

func tickerOf(o *domain.Order) string {
	if o.Ticker != "" {
		return o.Ticker
	}
	return "stock"
}
