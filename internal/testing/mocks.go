package testing

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"

	"github.com/aristath/stockfolio/internal/domain"
)

// MockQuoteProvider is a testify mock of domain.QuoteProvider
type MockQuoteProvider struct {
	mock.Mock
}

var _ domain.QuoteProvider = (*MockQuoteProvider)(nil)

func (m *MockQuoteProvider) GetQuote(ctx context.Context, symbol string) (*domain.Quote, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockQuoteProvider) GetCompanyProfile(ctx context.Context, symbol string) (*domain.CompanyProfile, error) {
	args := m.Called(ctx, symbol)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CompanyProfile), args.Error(1)
}

func (m *MockQuoteProvider) SymbolLookup(ctx context.Context, query string) ([]domain.SymbolMatch, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SymbolMatch), args.Error(1)
}

// Notification is one call captured by RecordingNotifier
type Notification struct {
	Kind    string
	OrderID int64
	Ticker  string
	Reason  string
	Price   decimal.Decimal
	Title   string
	Message string
}

// RecordingNotifier captures notifier calls for assertions
type RecordingNotifier struct {
	mu    sync.Mutex
	calls []Notification
}

var _ domain.Notifier = (*RecordingNotifier)(nil)

func (n *RecordingNotifier) record(c Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
}

func (n *RecordingNotifier) OrderPlaced(order *domain.Order, ticker string) {
	n.record(Notification{Kind: "placed", OrderID: order.ID, Ticker: ticker})
}

func (n *RecordingNotifier) OrderFilled(order *domain.Order, ticker string) {
	n.record(Notification{Kind: "filled", OrderID: order.ID, Ticker: ticker})
}

func (n *RecordingNotifier) OrderRejected(order *domain.Order, ticker string, reason string) {
	n.record(Notification{Kind: "rejected", OrderID: order.ID, Ticker: ticker, Reason: reason})
}

func (n *RecordingNotifier) PriceAlert(entry *domain.WatchlistEntry, ticker string, price decimal.Decimal) {
	n.record(Notification{Kind: "price_alert", Ticker: ticker, Price: price})
}

func (n *RecordingNotifier) PortfolioUpdate(portfolioName string, changePercent decimal.Decimal) {
	n.record(Notification{Kind: "portfolio_update", Title: portfolioName, Price: changePercent})
}

func (n *RecordingNotifier) System(title, message string) {
	n.record(Notification{Kind: "system", Title: title, Message: message})
}

// Calls returns a copy of the captured calls
func (n *RecordingNotifier) Calls() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Notification, len(n.calls))
	copy(out, n.calls)
	return out
}

// Kinds returns the captured call kinds in order
func (n *RecordingNotifier) Kinds() []string {
	calls := n.Calls()
	kinds := make([]string, len(calls))
	for i, c := range calls {
		kinds[i] = c.Kind
	}
	return kinds
}
