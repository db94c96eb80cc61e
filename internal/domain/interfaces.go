package domain

import (
	"context"
)

// StreamState is the lifecycle of the push-feed connection.
type StreamState int32

const (
	StreamDisconnected StreamState = iota
	StreamConnecting
	StreamOpen
)

func (s StreamState) String() string {
	switch s {
	case StreamConnecting:
		return "connecting"
	case StreamOpen:
		return "open"
	default:
		return "disconnected"
	}
}

// PriceStream defines the live price transport
type PriceStream interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// PriceUpdateHandler receives live price events
type PriceUpdateHandler func(PriceUpdateEvent)

// NoticeLevel is the severity of a transient user notice
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notifier surfaces short-lived messages to the user (toasts)
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// Renderer is the presentation boundary. Implementations draw whatever the
// core hands them; the core never depends on a UI toolkit.
type Renderer interface {
	RenderIndices(cards []IndexCard)
	RenderWatchlist(rows []WatchlistRow)
	RenderMarketStatus(status MarketStatus)
	RenderPrice(ev PriceUpdateEvent)
}

// WatchlistRepository persists the watchlist
type WatchlistRepository interface {
	LoadWatchlist() ([]WatchlistItem, error)
	SaveWatchlist(items []WatchlistItem) error
}
