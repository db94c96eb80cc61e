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

// DashboardConfig holds the polling schedule
type DashboardConfig struct {
	Indices        []string
	UpdateInterval time.Duration
	StatusInterval time.Duration
}

// Dashboard drives the periodic refresh of index cards, the watchlist and
// the market status, and handles one-off user actions.
type Dashboard struct {
	cfg       DashboardConfig
	quotes    *QuoteService
	watchlist *WatchlistService
	stream    Subscriber
	renderer  domain.Renderer
	notifier  domain.Notifier
	now       func() time.Time
	logger    *slog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewDashboard creates a Dashboard
func NewDashboard(cfg DashboardConfig, quotes *QuoteService, watchlist *WatchlistService, stream Subscriber, renderer domain.Renderer, notifier domain.Notifier) *Dashboard {
	return &Dashboard{
		cfg:       cfg,
		quotes:    quotes,
		watchlist: watchlist,
		stream:    stream,
		renderer:  renderer,
		notifier:  notifier,
		now:       time.Now,
		logger:    slog.Default().With("module", "dashboard"),
	}
}

// Start renders everything once, then starts the polling loops.
// Calling Start on a running dashboard is a no-op.
func (d *Dashboard) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		return
	}
	ctx, d.cancel = context.WithCancel(ctx)

	d.safely("initial", func() {
		d.RefreshIndices(ctx)
		d.RefreshWatchlist(ctx)
		d.RefreshStatus()
	})

	d.poll(ctx, "indices", d.cfg.UpdateInterval, func() { d.RefreshIndices(ctx) })
	d.poll(ctx, "watchlist", d.cfg.UpdateInterval, func() { d.RefreshWatchlist(ctx) })
	d.poll(ctx, "status", d.cfg.StatusInterval, func() { d.RefreshStatus() })

	d.logger.Info("Dashboard polling started",
		slog.Duration("update_interval", d.cfg.UpdateInterval),
		slog.Duration("status_interval", d.cfg.StatusInterval),
	)
}

// Stop cancels the polling loops and waits for them
func (d *Dashboard) Stop() {
	d.mu.Lock()
	cancel := d.cancel
	d.cancel = nil
	d.mu.Unlock()

	if cancel != nil {
		cancel()
		d.wg.Wait()
		d.logger.Info("Dashboard polling stopped")
	}
}

// poll runs fn every interval until ctx is done. A panic in fn is logged,
// noticed and the loop keeps going.
func (d *Dashboard) poll(ctx context.Context, name string, interval time.Duration, fn func()) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				d.safely(name, fn)
			}
		}
	}()
}

func (d *Dashboard) safely(name string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("Polling panic recovered", slog.String("loop", name), slog.Any("panic", r))
			if d.notifier != nil {
				d.notifier.Notify(domain.NoticeError, GenericErrorNotice)
			}
		}
	}()
	fn()
}

// RefreshIndices fetches every index quote concurrently, subscribes the ones
// that resolved and renders the cards.
func (d *Dashboard) RefreshIndices(ctx context.Context) []domain.IndexCard {
	cards := make([]domain.IndexCard, len(d.cfg.Indices))

	var g errgroup.Group
	for i, symbol := range d.cfg.Indices {
		g.Go(func() error {
			cards[i] = domain.IndexCard{Symbol: symbol, Quote: d.quotes.GetQuote(ctx, symbol)}
			return nil
		})
	}
	g.Wait()

	for _, card := range cards {
		if card.Quote != nil {
			d.stream.Subscribe(card.Symbol)
		}
	}

	d.renderer.RenderIndices(cards)
	return cards
}

// RefreshWatchlist refreshes and renders the watchlist
func (d *Dashboard) RefreshWatchlist(ctx context.Context) []domain.WatchlistRow {
	rows := d.watchlist.Refresh(ctx)
	d.renderer.RenderWatchlist(rows)
	return rows
}

// RefreshStatus computes and renders the market status
func (d *Dashboard) RefreshStatus() domain.MarketStatus {
	status := domain.MarketStatusAt(d.now())
	d.renderer.RenderMarketStatus(status)
	return status
}

// SelectStock loads quote and profile for symbol and subscribes it when the
// quote resolved. The quote is nil when the symbol is unknown.
func (d *Dashboard) SelectStock(ctx context.Context, symbol string) (*domain.Quote, *domain.Profile) {
	symbol = domain.NormalizeSymbol(symbol)
	quote, profile := d.quotes.GetQuoteAndProfile(ctx, symbol)
	if quote != nil {
		d.stream.Subscribe(symbol)
	}
	return quote, profile
}

// StartTrade is a placeholder for order entry; it only raises a notice.
func (d *Dashboard) StartTrade(symbol, side string) error {
	s, err := domain.ParseSide(side)
	if err != nil {
		return err
	}
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return domain.ErrInvalidSymbol
	}
	if d.notifier != nil {
		d.notifier.Notify(domain.NoticeInfo, fmt.Sprintf("%s order for %s - Feature coming soon!", s, symbol))
	}
	return nil
}
