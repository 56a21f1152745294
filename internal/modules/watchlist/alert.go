package watchlist

import (
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// rearmBand is how far from the target, as a fraction of it, a price must
// move before a notified alert can fire again.
var rearmBand = decimal.RequireFromString("0.05")

// conditionMet reports whether price is on the triggering side of the target
func conditionMet(e *domain.WatchlistEntry, price decimal.Decimal) bool {
	target := e.TargetPrice.Decimal
	switch e.Direction {
	case domain.AlertAbove:
		return price.GreaterThanOrEqual(target)
	case domain.AlertBelow:
		return price.LessThanOrEqual(target)
	default:
		return false
	}
}

// ShouldAlert decides whether an armed entry fires at price.
// An entry fires the first time its condition holds. Once notified, it fires
// again only if the last trigger sat at least 5% from the target and price
// has crossed back through the band on the other side.
func ShouldAlert(e *domain.WatchlistEntry, price decimal.Decimal) bool {
	if !e.Armed() || !conditionMet(e, price) {
		return false
	}
	if !e.Notified || !e.LastTriggeredPrice.Valid {
		return true
	}

	target := e.TargetPrice.Decimal
	band := target.Mul(rearmBand)
	if e.LastTriggeredPrice.Decimal.Sub(target).Abs().LessThan(band) {
		return false
	}
	switch e.Direction {
	case domain.AlertAbove:
		return price.LessThanOrEqual(target.Sub(band))
	case domain.AlertBelow:
		return price.GreaterThanOrEqual(target.Add(band))
	}
	return false
}

// ShouldRearm reports whether a notified entry has moved at least 5% away
// from its target on the non-triggering side, so the next crossing alerts.
func ShouldRearm(e *domain.WatchlistEntry, price decimal.Decimal) bool {
	if !e.Armed() || !e.Notified {
		return false
	}
	target := e.TargetPrice.Decimal
	band := target.Mul(rearmBand)
	switch e.Direction {
	case domain.AlertAbove:
		return price.LessThanOrEqual(target.Sub(band))
	case domain.AlertBelow:
		return price.GreaterThanOrEqual(target.Add(band))
	}
	return false
}
