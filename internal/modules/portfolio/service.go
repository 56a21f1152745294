package portfolio

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/aristath/stockfolio/internal/domain"
)

// recentOrdersLimit is how many orders the dashboard shows
const recentOrdersLimit = 10

// Settler is the order engine's portfolio-level entry point.
// Close and capital edits go through it so they serialize with fills.
type Settler interface {
	ClosePortfolio(ctx context.Context, portfolioID int64, liquidate bool) (*domain.Portfolio, error)
	WithPortfolioLock(portfolioID int64, fn func() error) error
}

// Service provides portfolio CRUD and reporting
type Service struct {
	portfolios PortfolioRepositoryInterface
	holdings   HoldingsLedger
	orders     OrderReader
	valuator   *Valuator
	settler    Settler
	notifier   domain.Notifier
	log        zerolog.Logger
}

// NewService creates a new portfolio service
func NewService(
	portfolios PortfolioRepositoryInterface,
	holdings HoldingsLedger,
	orders OrderReader,
	valuator *Valuator,
	settler Settler,
	notifier domain.Notifier,
	log zerolog.Logger,
) *Service {
	return &Service{
		portfolios: portfolios,
		holdings:   holdings,
		orders:     orders,
		valuator:   valuator,
		settler:    settler,
		notifier:   notifier,
		log:        log.With().Str("service", "portfolio").Logger(),
	}
}

// List returns all portfolios
func (s *Service) List(ctx context.Context) ([]domain.Portfolio, error) {
	return s.portfolios.List(ctx)
}

// Get returns one portfolio
func (s *Service) Get(ctx context.Context, id int64) (*domain.Portfolio, error) {
	return s.portfolios.GetByID(ctx, id)
}

// Create validates and stores a new ACTIVE portfolio
func (s *Service) Create(ctx context.Context, in PortfolioInput) (*domain.Portfolio, error) {
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	description := strings.TrimSpace(in.Description)
	if len(description) > 500 {
		return nil, domain.NewValidationError("Portfolio description cannot exceed 500 characters")
	}
	if err := validateCapital(in.Capital); err != nil {
		return nil, err
	}

	p := &domain.Portfolio{
		Name:        name,
		Description: description,
		Capital:     in.Capital,
		Status:      domain.PortfolioActive,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.portfolios.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().Int64("portfolio_id", p.ID).Str("capital", p.Capital.String()).Msg("Portfolio created")
	return p, nil
}

// Update changes name, description and, while the portfolio has no
// orders or holdings, its capital.
func (s *Service) Update(ctx context.Context, id int64, in PortfolioInput) (*domain.Portfolio, error) {
	var updated *domain.Portfolio
	err := s.settler.WithPortfolioLock(id, func() error {
		p, err := s.portfolios.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if p.Status == domain.PortfolioClosed {
			return domain.NewValidationError("Portfolio %d is closed and cannot be modified", id)
		}

		name, err := validateName(in.Name)
		if err != nil {
			return err
		}
		description, err := validateDescription(in.Description)
		if err != nil {
			return err
		}

		active, err := s.hasActivity(ctx, id)
		if err != nil {
			return err
		}
		if active && !in.Capital.Equal(p.Capital) {
			return domain.NewValidationError(
				"Cannot modify capital for portfolios with existing orders or holdings. Current available capital: $%s",
				p.Capital.StringFixed(2),
			)
		}
		if !active {
			if err := validateCapital(in.Capital); err != nil {
				return err
			}
			p.Capital = in.Capital
		}

		p.Name = name
		p.Description = description
		if err := s.portfolios.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a portfolio that has no order history
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.settler.WithPortfolioLock(id, func() error {
		if _, err := s.portfolios.GetByID(ctx, id); err != nil {
			return err
		}
		n, err := s.orders.CountByPortfolio(ctx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return domain.NewValidationError("Cannot delete portfolio %d: it has %d orders in its history", id, n)
		}
		if err := s.portfolios.Delete(ctx, id); err != nil {
			return err
		}
		s.log.Info().Int64("portfolio_id", id).Msg("Portfolio deleted")
		return nil
	})
}

// Holdings returns a portfolio's holdings
func (s *Service) Holdings(ctx context.Context, id int64) ([]domain.Holding, error) {
	if _, err := s.portfolios.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.holdings.ListByPortfolio(ctx, id)
}

// Performance returns the gain/loss view of a portfolio
func (s *Service) Performance(ctx context.Context, id int64) (*Performance, error) {
	holdings, err := s.Holdings(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.valuator.CalculatePerformance(ctx, id, holdings)
}

// Allocation returns the per-holding value breakdown of a portfolio
func (s *Service) Allocation(ctx context.Context, id int64) ([]AllocationItem, error) {
	holdings, err := s.Holdings(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.valuator.CalculateAllocation(ctx, holdings), nil
}

// Dashboard assembles the full reporting view of a portfolio
func (s *Service) Dashboard(ctx context.Context, id int64) (*Dashboard, error) {
	p, err := s.portfolios.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	holdings, err := s.holdings.ListByPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	orders, err := s.orders.ListByPortfolio(ctx, id)
	if err != nil {
		return nil, err
	}
	if len(orders) > recentOrdersLimit {
		orders = orders[:recentOrdersLimit]
	}
	performance, err := s.valuator.CalculatePerformance(ctx, id, holdings)
	if err != nil {
		return nil, err
	}
	allocation := s.valuator.CalculateAllocation(ctx, holdings)

	value := performance.CurrentValue
	return &Dashboard{
		Portfolio:        p,
		Holdings:         holdings,
		TotalHoldings:    len(holdings),
		TotalValue:       value,
		AvailableCapital: p.Capital,
		TotalCapital:     value.Add(p.Capital),
		RecentOrders:     orders,
		Performance:      performance,
		Allocation:       allocation,
		Concentration:    MeasureConcentration(allocation),
	}, nil
}

// Summary returns the overview row of every portfolio
func (s *Service) Summary(ctx context.Context) ([]Summary, error) {
	portfolios, err := s.portfolios.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(portfolios))
	for _, p := range portfolios {
		holdings, err := s.holdings.ListByPortfolio(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		value := s.valuator.CalculatePortfolioValue(ctx, holdings)
		summaries = append(summaries, Summary{
			ID:               p.ID,
			Name:             p.Name,
			TotalValue:       value,
			AvailableCapital: p.Capital,
			TotalCapital:     value.Add(p.Capital),
			HoldingsCount:    len(holdings),
			Status:           p.Status,
		})
	}
	return summaries, nil
}

// Close marks a portfolio CLOSED, optionally liquidating its holdings first
func (s *Service) Close(ctx context.Context, id int64, liquidate bool) (*domain.Portfolio, error) {
	p, err := s.settler.ClosePortfolio(ctx, id, liquidate)
	if err != nil {
		return nil, err
	}

	if perf, err := s.Performance(ctx, id); err != nil {
		s.log.Warn().Err(err).Int64("portfolio_id", id).Msg("Failed to compute closing performance")
	} else {
		s.notifier.PortfolioUpdate(p.Name, perf.GainLossPercent)
	}

	s.log.Info().Int64("portfolio_id", id).Bool("liquidate", liquidate).Msg("Portfolio closed")
	return p, nil
}

func (s *Service) hasActivity(ctx context.Context, id int64) (bool, error) {
	orders, err := s.orders.CountByPortfolio(ctx, id)
	if err != nil {
		return false, err
	}
	if orders > 0 {
		return true, nil
	}
	holdings, err := s.holdings.CountByPortfolio(ctx, id)
	if err != nil {
		return false, err
	}
	return holdings > 0, nil
}

func validateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	switch {
	case name == "":
		return "", domain.NewValidationError("Portfolio name cannot be null or empty")
	case len(name) < 2:
		return "", domain.NewValidationError("Portfolio name must be at least 2 characters long")
	case len(name) > 100:
		return "", domain.NewValidationError("Portfolio name cannot exceed 100 characters")
	}
	return name, nil
}

func validateDescription(raw string) (string, error) {
	description := strings.TrimSpace(raw)
	switch {
	case description == "":
		return "", domain.NewValidationError("Portfolio description cannot be null or empty")
	case len(description) < 10:
		return "", domain.NewValidationError("Portfolio description must be at least 10 characters long")
	case len(description) > 500:
		return "", domain.NewValidationError("Portfolio description cannot exceed 500 characters")
	}
	return description, nil
}

func validateCapital(capital decimal.Decimal) error {
	if !capital.IsPositive() {
		return domain.NewValidationError("Initial capital must be greater than 0")
	}
	if capital.GreaterThan(MaxCapital) {
		return domain.NewValidationError("Initial capital cannot exceed $1,000,000")
	}
	return nil
}
