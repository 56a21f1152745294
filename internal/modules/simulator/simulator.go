// Package simulator advances orders through their lifecycle the way an exchange would,
// with random delays and a configurable rejection rate.
package simulator

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/stockfolio/internal/domain"
)

// processChance is the percent chance an order is handled in a given cycle
const processChance = 70

// RejectionReasons are the exchange responses a simulated rejection picks from
var RejectionReasons = []string{
	"Insufficient funds",
	"Market closed",
	"Price out of range",
	"Stock suspended",
	"Risk limits exceeded",
	"Invalid order size",
	"System timeout",
}

// OrderSource lists and counts orders by status
type OrderSource interface {
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

// Transitioner moves an order to a new status, settling it when needed
type Transitioner interface {
	UpdateOrderStatus(ctx context.Context, orderID int64, code int) (*domain.Order, error)
	RejectOrder(ctx context.Context, orderID int64, reason string) (*domain.Order, error)
}

// Stats is the simulator's view of the order book
type Stats struct {
	Initialized int `json:"initialized_orders"`
	Processing  int `json:"processing_orders"`
	Filled      int `json:"filled_orders"`
	Rejected    int `json:"rejected_orders"`
	FailureRate int `json:"failure_rate"`
}

// CycleResult summarizes one simulator cycle
type CycleResult struct {
	Sent     int `json:"sent"`
	Filled   int `json:"filled"`
	Rejected int `json:"rejected"`
	Failed   int `json:"failed"`
}

// Simulator drives Initialized -> Processing -> Filled/Rejected
type Simulator struct {
	orders   OrderSource
	engine   Transitioner
	notifier domain.Notifier

	mu          sync.Mutex // guards rng and failureRate
	rng         *rand.Rand
	failureRate int

	log zerolog.Logger
}

// New creates a simulator rejecting failureRate percent of resolved orders
func New(orders OrderSource, engine Transitioner, notifier domain.Notifier, failureRate int, log zerolog.Logger) *Simulator {
	return &Simulator{
		orders:      orders,
		engine:      engine,
		notifier:    notifier,
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		failureRate: clampRate(failureRate),
		log:         log.With().Str("service", "simulator").Logger(),
	}
}

// WithRand replaces the randomness source
func (s *Simulator) WithRand(rng *rand.Rand) *Simulator {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rng = rng
	return s
}

// FailureRate returns the configured rejection percentage
func (s *Simulator) FailureRate() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failureRate
}

// SetFailureRate changes the rejection percentage, clamped to [0,100]
func (s *Simulator) SetFailureRate(rate int) int {
	s.mu.Lock()
	s.failureRate = clampRate(rate)
	rate = s.failureRate
	s.mu.Unlock()

	s.log.Info().Int("failure_rate", rate).Msg("Updated simulator failure rate")
	return rate
}

// Stats counts orders per status
func (s *Simulator) Stats(ctx context.Context) (*Stats, error) {
	counts, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Initialized: counts[domain.StatusInitialized],
		Processing:  counts[domain.StatusProcessing],
		Filled:      counts[domain.StatusFilled],
		Rejected:    counts[domain.StatusRejected],
		FailureRate: s.FailureRate(),
	}, nil
}

// SendOrdersToExchange moves a random share of Initialized orders to Processing.
// A failure on one order is logged and the cycle continues.
func (s *Simulator) SendOrdersToExchange(ctx context.Context) (*CycleResult, error) {
	pending, err := s.orders.ListByStatus(ctx, domain.StatusInitialized)
	if err != nil {
		return nil, err
	}
	result := &CycleResult{}
	if len(pending) == 0 {
		s.log.Debug().Msg("No initialized orders to send")
		return result, nil
	}

	for i := range pending {
		o := &pending[i]
		if !s.shouldProcessNow() {
			continue
		}
		if _, err := s.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusProcessing)); err != nil {
			s.log.Error().Err(err).Int64("order_id", o.ID).Msg("Failed to send order to exchange")
			result.Failed++
			continue
		}
		result.Sent++
		s.log.Info().Int64("order_id", o.ID).Msg("Order sent to exchange")
		s.notifier.System("Order Processing",
			fmt.Sprintf("Order #%d for %s is being processed by exchange", o.ID, o.Ticker))
	}

	if result.Sent > 0 {
		s.log.Info().Int("sent", result.Sent).Msg("Sent orders to exchange")
	}
	return result, nil
}

// ProcessExchangeResponses resolves a random share of Processing orders,
// rejecting failureRate percent of them and filling the rest.
// An order whose fill is refused by validation is rejected with that reason.
func (s *Simulator) ProcessExchangeResponses(ctx context.Context) (*CycleResult, error) {
	processing, err := s.orders.ListByStatus(ctx, domain.StatusProcessing)
	if err != nil {
		return nil, err
	}
	result := &CycleResult{}
	if len(processing) == 0 {
		s.log.Debug().Msg("No processing orders to resolve")
		return result, nil
	}

	for i := range processing {
		o := &processing[i]
		if !s.shouldProcessNow() {
			continue
		}

		if reject, reason := s.decideRejection(); reject {
			if _, err := s.engine.RejectOrder(ctx, o.ID, reason); err != nil {
				s.log.Error().Err(err).Int64("order_id", o.ID).Msg("Failed to reject order")
				result.Failed++
				continue
			}
			result.Rejected++
			s.log.Info().Int64("order_id", o.ID).Str("reason", reason).Msg("Order rejected")
			continue
		}

		if _, err := s.engine.UpdateOrderStatus(ctx, o.ID, int(domain.StatusFilled)); err != nil {
			if domain.IsValidation(err) {
				// The holding no longer covers the order; it will never fill
				s.rejectUnfillable(ctx, o, err, result)
				continue
			}
			s.log.Error().Err(err).Int64("order_id", o.ID).Msg("Failed to fill order")
			result.Failed++
			continue
		}
		result.Filled++
		s.log.Info().Int64("order_id", o.ID).Msg("Order filled")
	}

	if result.Filled > 0 || result.Rejected > 0 {
		s.log.Info().
			Int("filled", result.Filled).
			Int("rejected", result.Rejected).
			Msg("Processed exchange responses")
	}
	return result, nil
}

func (s *Simulator) rejectUnfillable(ctx context.Context, o *domain.Order, cause error, result *CycleResult) {
	if _, err := s.engine.RejectOrder(ctx, o.ID, cause.Error()); err != nil {
		s.log.Error().Err(err).Int64("order_id", o.ID).Msg("Failed to reject unfillable order")
		result.Failed++
		return
	}
	result.Rejected++
	s.log.Warn().Int64("order_id", o.ID).Str("reason", cause.Error()).Msg("Order rejected at fill")
}

func (s *Simulator) shouldProcessNow() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Intn(100) < processChance
}

func (s *Simulator) decideRejection() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rng.Intn(100) >= s.failureRate {
		return false, ""
	}
	return true, RejectionReasons[s.rng.Intn(len(RejectionReasons))]
}

func clampRate(rate int) int {
	return max(0, min(100, rate))
}
