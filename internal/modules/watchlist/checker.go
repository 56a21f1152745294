package watchlist

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
	"github.com/aristath/stockfolio/internal/events"
	"github.com/aristath/stockfolio/internal/utils"
)

// CheckResult summarizes one checker cycle
type CheckResult struct {
	Checked   int `json:"checked"`
	Triggered int `json:"triggered"`
	Rearmed   int `json:"rearmed"`
	Failed    int `json:"failed"`
}

// AlertChecker polls live prices for armed entries and fires alerts
type AlertChecker struct {
	repo     RepositoryInterface
	quotes   domain.QuoteProvider
	notifier domain.Notifier
	bus      *events.Bus
	now      func() time.Time
	log      zerolog.Logger
}

// NewAlertChecker creates a new alert checker. bus may be nil.
func NewAlertChecker(repo RepositoryInterface, quotes domain.QuoteProvider, notifier domain.Notifier, bus *events.Bus, log zerolog.Logger) *AlertChecker {
	return &AlertChecker{
		repo:     repo,
		quotes:   quotes,
		notifier: notifier,
		bus:      bus,
		now:      func() time.Time { return time.Now().UTC() },
		log:      log.With().Str("job", "watchlist_alerts").Logger(),
	}
}

// Name returns the job name for scheduling and logging.
func (c *AlertChecker) Name() string {
	return "watchlist_alerts"
}

// Run executes one check cycle
func (c *AlertChecker) Run() error {
	_, err := c.Check(context.Background())
	return err
}

// Check evaluates every armed entry against its current price.
// A failure on one entry is logged and the cycle continues.
func (c *AlertChecker) Check(ctx context.Context) (*CheckResult, error) {
	defer utils.OperationTimer("watchlist_check", c.log)()

	entries, err := c.repo.ListArmed(ctx)
	if err != nil {
		return nil, err
	}

	result := &CheckResult{}
	for i := range entries {
		e := &entries[i]
		result.Checked++

		quote, err := c.quotes.GetQuote(ctx, e.Ticker)
		if err != nil {
			c.log.Warn().Err(err).Int64("entry_id", e.ID).Str("ticker", e.Ticker).Msg("Failed to fetch price for alert")
			result.Failed++
			continue
		}
		price := quote.Price

		switch {
		case ShouldRearm(e, price):
			if err := c.repo.Rearm(ctx, e.ID); err != nil {
				c.log.Error().Err(err).Int64("entry_id", e.ID).Msg("Failed to rearm alert")
				result.Failed++
				continue
			}
			result.Rearmed++
			c.log.Debug().Int64("entry_id", e.ID).Str("price", price.String()).Msg("Alert rearmed")

		case ShouldAlert(e, price):
			at := c.now()
			if err := c.repo.MarkTriggered(ctx, e.ID, price, at); err != nil {
				c.log.Error().Err(err).Int64("entry_id", e.ID).Msg("Failed to record alert")
				result.Failed++
				continue
			}
			e.Notified = true
			e.LastTriggeredPrice = decimal.NewNullDecimal(price)
			e.LastTriggeredAt = &at
			result.Triggered++

			c.log.Info().
				Int64("entry_id", e.ID).
				Str("ticker", e.Ticker).
				Str("target", e.TargetPrice.Decimal.String()).
				Str("price", price.String()).
				Msg("Price alert triggered")
			c.notifier.PriceAlert(e, e.Ticker, price)
			if c.bus != nil {
				c.bus.Publish("watchlist", &events.PriceAlertData{
					EntryID:   e.ID,
					Symbol:    e.Ticker,
					Direction: string(e.Direction),
					Target:    e.TargetPrice.Decimal.String(),
					Price:     price.String(),
				})
			}
		}
	}

	if result.Triggered > 0 || result.Failed > 0 {
		c.log.Info().
			Int("checked", result.Checked).
			Int("triggered", result.Triggered).
			Int("failed", result.Failed).
			Msg("Watchlist check completed")
	}
	return result, nil
}
