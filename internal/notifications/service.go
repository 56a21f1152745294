// Package notifications formats user-facing notifications, keeps a bounded
// feed of recent ones and fans them out on the event bus.
package notifications

import (
	"fmt"
	"sync"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/events"
)

// FeedCapacity is how many notifications the feed retains
const FeedCapacity = 100

// Notification kinds
const (
	KindOrderPlaced     = "order_placed"
	KindOrderFilled     = "order_filled"
	KindOrderRejected   = "order_rejected"
	KindPriceAlert      = "price_alert"
	KindPortfolioUpdate = "portfolio_update"
	KindSystem          = "system"
)

// Service implements domain.Notifier
type Service struct {
	bus  *events.Bus
	now  func() time.Time
	log  zerolog.Logger
	mu   sync.RWMutex
	feed []events.NotificationData // oldest first
}

var _ domain.Notifier = (*Service)(nil)

// NewService creates a notification service. bus may be nil.
func NewService(bus *events.Bus, log zerolog.Logger) *Service {
	return &Service{
		bus:  bus,
		now:  time.Now,
		log:  log.With().Str("service", "notifications").Logger(),
		feed: make([]events.NotificationData, 0, FeedCapacity),
	}
}

// OrderPlaced announces a new order
func (s *Service) OrderPlaced(order *domain.Order, ticker string) {
	s.emit(KindOrderPlaced, "Order Placed", fmt.Sprintf("Order placed: %s %d shares of %s at %s",
		order.Side, order.Volume, ticker, usd(order.Price)))
}

// OrderFilled announces a settled order
func (s *Service) OrderFilled(order *domain.Order, ticker string) {
	s.emit(KindOrderFilled, "Order Filled", fmt.Sprintf("Order filled: %s %d shares of %s at %s (Total: %s)",
		order.Side, order.Volume, ticker, usd(order.Price), usd(order.Amount())))
}

// OrderRejected announces a rejected order
func (s *Service) OrderRejected(order *domain.Order, ticker string, reason string) {
	if reason == "" {
		reason = "Unknown"
	}
	s.emit(KindOrderRejected, "Order Rejected", fmt.Sprintf("Order rejected: %s %d shares of %s at %s. Reason: %s",
		order.Side, order.Volume, ticker, usd(order.Price), reason))
}

// PriceAlert announces a watchlist target crossing
func (s *Service) PriceAlert(entry *domain.WatchlistEntry, ticker string, price decimal.Decimal) {
	verb := "reached"
	if entry.Direction == domain.AlertBelow {
		verb = "dropped below"
	}
	s.emit(KindPriceAlert, "Price Alert", fmt.Sprintf("Price alert: %s %s your target price of %s (Current: %s)",
		ticker, verb, usd(entry.TargetPrice.Decimal), usd(price)))
}

// PortfolioUpdate announces a portfolio's change in value
func (s *Service) PortfolioUpdate(portfolioName string, changePercent decimal.Decimal) {
	verb := "gained"
	if changePercent.IsNegative() {
		verb = "lost"
	}
	s.emit(KindPortfolioUpdate, "Portfolio Update", fmt.Sprintf("Portfolio update: %s %s %s%% today",
		portfolioName, verb, changePercent.Abs().StringFixed(2)))
}

// System announces anything else
func (s *Service) System(title, message string) {
	s.emit(KindSystem, title, fmt.Sprintf("System notification: %s - %s", title, message))
}

// Recent returns up to limit notifications, newest first
func (s *Service) Recent(limit int) []events.NotificationData {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.feed) {
		limit = len(s.feed)
	}
	out := make([]events.NotificationData, 0, limit)
	for i := len(s.feed) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.feed[i])
	}
	return out
}

// emit must never panic or block the caller
func (s *Service) emit(kind, title, message string) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("notification_type", kind).Msg("Notification sink failed")
		}
	}()

	n := events.NotificationData{
		CreatedAt: s.now().UTC(),
		ID:        uuid.NewString(),
		Kind:      kind,
		Title:     title,
		Message:   message,
	}

	s.log.Info().Str("notification_type", kind).Str("id", n.ID).Msg(message)

	s.mu.Lock()
	if len(s.feed) == FeedCapacity {
		copy(s.feed, s.feed[1:])
		s.feed = s.feed[:FeedCapacity-1]
	}
	s.feed = append(s.feed, n)
	s.mu.Unlock()

	if s.bus != nil {
		s.bus.Publish("notifications", &n)
	}
}

// usd formats an amount as US dollars, rounded to cents
func usd(amount decimal.Decimal) string {
	cents := amount.Shift(2).Round(0).IntPart()
	return money.New(cents, money.USD).Display()
}
