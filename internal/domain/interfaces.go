package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Notifier is the fire-and-forget notification sink.
// Implementations must not block for long and must never return errors to callers.
type Notifier interface {
	OrderPlaced(order *Order, ticker string)
	OrderFilled(order *Order, ticker string)
	OrderRejected(order *Order, ticker string, reason string)
	PriceAlert(entry *WatchlistEntry, ticker string, price decimal.Decimal)
	PortfolioUpdate(portfolioName string, changePercent decimal.Decimal)
	System(title, message string)
}

// Quote is a real-time quote from the primary market-data provider
type Quote struct {
	Timestamp     time.Time       `json:"timestamp"`
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"price"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	High          decimal.Decimal `json:"high"`
	Low           decimal.Decimal `json:"low"`
	Open          decimal.Decimal `json:"open"`
	PreviousClose decimal.Decimal `json:"previous_close"`
}

// CompanyProfile is descriptive data about a listed company
type CompanyProfile struct {
	Name              string  `json:"name"`
	Ticker            string  `json:"ticker"`
	Exchange          string  `json:"exchange"`
	Industry          string  `json:"industry"`
	Logo              string  `json:"logo"`
	Currency          string  `json:"currency"`
	MarketCap         float64 `json:"market_capitalization"`
	SharesOutstanding float64 `json:"share_outstanding"`
}

// SymbolMatch is one result of a free-text symbol search
type SymbolMatch struct {
	Symbol      string `json:"symbol"`
	Description string `json:"description"`
	Type        string `json:"type"`
	Region      string `json:"region,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// QuoteProvider is the quote/profile/search market-data port
type QuoteProvider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetCompanyProfile(ctx context.Context, symbol string) (*CompanyProfile, error)
	SymbolLookup(ctx context.Context, query string) ([]SymbolMatch, error)
}
