package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AppConfig represents a persisted key-value pair
type AppConfig struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WatchlistKey is the key under which the serialized watchlist is stored.
const WatchlistKey = "equidify_watchlist"

// WatchlistItem is one watched symbol as persisted.
type WatchlistItem struct {
	Symbol  string `json:"symbol"`
	Name    string `json:"name"`
	AddedAt int64  `json:"addedAt"` // Unix milliseconds
}

// WatchlistRow is a watchlist item joined with its latest quote.
// Quote is nil when the price is unknown.
type WatchlistRow struct {
	Item      WatchlistItem
	Quote     *Quote
	Change    *decimal.Decimal
	ChangePct *decimal.Decimal
}

// NewWatchlistRow builds a row, deriving change figures when the quote is known.
func NewWatchlistRow(item WatchlistItem, quote *Quote) WatchlistRow {
	row := WatchlistRow{Item: item, Quote: quote}
	if quote == nil {
		return row
	}
	change := quote.DayChange()
	row.Change = &change
	row.ChangePct = quote.DayChangePct()
	return row
}

// IndexCard is the rendered state of one market index tile.
type IndexCard struct {
	Symbol string
	Quote  *Quote
}
