package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a point-in-time REST quote for a single symbol.
// A newer fetch supersedes it; it is never mutated after creation.
type Quote struct {
	Symbol        string          `json:"symbol"`
	Price         decimal.Decimal `json:"c"`  // Current price
	Change        decimal.Decimal `json:"d"`  // Absolute change vs previous close
	ChangePct     decimal.Decimal `json:"dp"` // Percent change vs previous close
	Open          decimal.Decimal `json:"o"`
	High          decimal.Decimal `json:"h"`
	Low           decimal.Decimal `json:"l"`
	PreviousClose decimal.Decimal `json:"pc"`
	FetchedAt     time.Time       `json:"fetched_at"`
}

// HasPrice reports whether the quote carries a non-zero current price.
// Unknown tickers come back from the API as an all-zero quote.
func (q *Quote) HasPrice() bool {
	return q != nil && !q.Price.IsZero()
}

// DayChange returns price - previous close.
func (q *Quote) DayChange() decimal.Decimal {
	return q.Price.Sub(q.PreviousClose)
}

// DayChangePct returns 100 * (price - previous close) / previous close.
// Returns nil when previous close is zero.
func (q *Quote) DayChangePct() *decimal.Decimal {
	if q.PreviousClose.IsZero() {
		return nil
	}
	pct := q.DayChange().Div(q.PreviousClose).Mul(decimal.NewFromInt(100))
	return &pct
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (q *Quote) ChangeDirection() string {
	if q == nil {
		return "neutral"
	}
	change := q.DayChange()
	if change.IsPositive() {
		return "positive"
	}
	if change.IsNegative() {
		return "negative"
	}
	return "neutral"
}

// Profile is company metadata. It changes slowly and is cached longer than quotes.
type Profile struct {
	Symbol    string    `json:"ticker"`
	Name      string    `json:"name"`
	Exchange  string    `json:"exchange"`
	Industry  string    `json:"finnhubIndustry"`
	Country   string    `json:"country"`
	Currency  string    `json:"currency"`
	Logo      string    `json:"logo"`
	WebURL    string    `json:"weburl"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SearchResult is one symbol-lookup match.
type SearchResult struct {
	Symbol        string `json:"symbol"`
	Description   string `json:"description"`
	DisplaySymbol string `json:"displaySymbol"`
	Type          string `json:"type"`
}

// PriceUpdateEvent is a live price pushed by the streaming feed. It is only
// dispatched, never stored.
type PriceUpdateEvent struct {
	Symbol    string
	Price     decimal.Decimal
	Timestamp time.Time
}

// NormalizeSymbol trims and uppercases a ticker symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
