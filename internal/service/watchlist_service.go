package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"equidify/internal/domain"
)

// QuoteSource returns a quote or nil when unknown
type QuoteSource interface {
	GetQuote(ctx context.Context, symbol string) *domain.Quote
}

// Subscriber is the part of the stream the watchlist drives
type Subscriber interface {
	Subscribe(symbol string)
	Unsubscribe(symbol string)
}

// WatchlistService owns the user's watchlist: it persists every change and
// keeps the stream subscribed to every watched symbol.
type WatchlistService struct {
	mu     sync.RWMutex
	items  []domain.WatchlistItem
	loaded bool

	repo     domain.WatchlistRepository
	quotes   QuoteSource
	stream   Subscriber
	notifier domain.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// NewWatchlistService creates a WatchlistService. Call Load before use.
func NewWatchlistService(repo domain.WatchlistRepository, quotes QuoteSource, stream Subscriber, notifier domain.Notifier) *WatchlistService {
	return &WatchlistService{
		repo:     repo,
		quotes:   quotes,
		stream:   stream,
		notifier: notifier,
		now:      time.Now,
		logger:   slog.Default().With("module", "watchlist"),
	}
}

// Load reads the persisted watchlist once. Later calls are no-ops.
func (s *WatchlistService) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.loaded {
		return nil
	}
	items, err := s.repo.LoadWatchlist()
	if err != nil {
		return fmt.Errorf("load watchlist: %w", err)
	}

	// Normalize and drop duplicates left by older versions
	seen := make(map[string]bool, len(items))
	s.items = make([]domain.WatchlistItem, 0, len(items))
	for _, it := range items {
		it.Symbol = domain.NormalizeSymbol(it.Symbol)
		if it.Symbol == "" || seen[it.Symbol] {
			continue
		}
		seen[it.Symbol] = true
		s.items = append(s.items, it)
	}
	s.loaded = true

	s.logger.Info("Watchlist loaded", slog.Int("items", len(s.items)))
	return nil
}

// Items returns a copy of the watchlist in insertion order
func (s *WatchlistService) Items() []domain.WatchlistItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.WatchlistItem, len(s.items))
	copy(out, s.items)
	return out
}

// Has reports whether symbol is watched
func (s *WatchlistService) Has(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.indexOf(domain.NormalizeSymbol(symbol)) >= 0
}

// Add appends symbol, persists the list and subscribes the stream.
func (s *WatchlistService) Add(symbol, name string) error {
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.ErrInvalidSymbol
	}
	if name == "" {
		name = symbol
	}

	s.mu.Lock()
	if s.indexOf(symbol) >= 0 {
		s.mu.Unlock()
		s.notify(domain.NoticeWarning, "Stock already in watchlist")
		return domain.ErrAlreadyInWatchlist
	}
	next := append(append([]domain.WatchlistItem(nil), s.items...), domain.WatchlistItem{
		Symbol:  symbol,
		Name:    name,
		AddedAt: s.now().UnixMilli(),
	})
	if err := s.repo.SaveWatchlist(next); err != nil {
		s.mu.Unlock()
		s.notify(domain.NoticeError, "Failed to save watchlist")
		return fmt.Errorf("save watchlist: %w", err)
	}
	s.items = next
	// Registry changes stay under mu so they are ordered like the saved list
	s.stream.Subscribe(symbol)
	s.mu.Unlock()

	s.notify(domain.NoticeSuccess, "Added to watchlist")
	return nil
}

// Remove drops symbol, persists the list and unsubscribes the stream.
func (s *WatchlistService) Remove(symbol string) error {
	symbol = domain.NormalizeSymbol(symbol)

	s.mu.Lock()
	idx := s.indexOf(symbol)
	if idx < 0 {
		s.mu.Unlock()
		return domain.ErrNotInWatchlist
	}
	next := make([]domain.WatchlistItem, 0, len(s.items)-1)
	next = append(next, s.items[:idx]...)
	next = append(next, s.items[idx+1:]...)
	if err := s.repo.SaveWatchlist(next); err != nil {
		s.mu.Unlock()
		s.notify(domain.NoticeError, "Failed to save watchlist")
		return fmt.Errorf("save watchlist: %w", err)
	}
	s.items = next
	s.stream.Unsubscribe(symbol)
	s.mu.Unlock()

	s.notify(domain.NoticeSuccess, "Removed from watchlist")
	return nil
}

// Refresh fetches a quote for every item concurrently and re-subscribes
// every symbol. Rows keep watchlist order; unknown quotes leave the row's
// price fields nil.
func (s *WatchlistService) Refresh(ctx context.Context) []domain.WatchlistRow {
	items := s.Items()
	rows := make([]domain.WatchlistRow, len(items))

	var g errgroup.Group
	for i, item := range items {
		g.Go(func() error {
			rows[i] = domain.NewWatchlistRow(item, s.quotes.GetQuote(ctx, item.Symbol))
			return nil
		})
	}
	g.Wait()

	// Re-subscribe what is watched now, not the snapshot taken above
	s.mu.RLock()
	for _, item := range s.items {
		s.stream.Subscribe(item.Symbol)
	}
	s.mu.RUnlock()
	return rows
}

// indexOf must be called with mu held
func (s *WatchlistService) indexOf(symbol string) int {
	for i, it := range s.items {
		if it.Symbol == symbol {
			return i
		}
	}
	return -1
}

func (s *WatchlistService) notify(level domain.NoticeLevel, msg string) {
	if s.notifier != nil {
		s.notifier.Notify(level, msg)
	}
}
