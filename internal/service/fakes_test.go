package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"equidify/internal/domain"
)

// fakeClient is an in-memory MarketDataClient that counts calls
type fakeClient struct {
	mu       sync.Mutex
	quotes   map[string]*domain.Quote
	profiles map[string]*domain.Profile
	results  []domain.SearchResult
	err      error
	calls    map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		quotes:   make(map[string]*domain.Quote),
		profiles: make(map[string]*domain.Profile),
		calls:    make(map[string]int),
	}
}

func (f *fakeClient) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeClient) setErr(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

func (f *fakeClient) Quote(ctx context.Context, symbol string) (*domain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["quote"]++
	if f.err != nil {
		return nil, f.err
	}
	if q, ok := f.quotes[symbol]; ok {
		return q, nil
	}
	// Unknown tickers come back as an all-zero quote
	return &domain.Quote{Symbol: symbol}, nil
}

func (f *fakeClient) Profile(ctx context.Context, symbol string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["profile"]++
	if f.err != nil {
		return nil, f.err
	}
	if p, ok := f.profiles[symbol]; ok {
		return p, nil
	}
	return &domain.Profile{Symbol: symbol}, nil
}

func (f *fakeClient) Search(ctx context.Context, query string) ([]domain.SearchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["search"]++
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func quote(symbol, price, prevClose string) *domain.Quote {
	return &domain.Quote{
		Symbol:        symbol,
		Price:         decimal.RequireFromString(price),
		PreviousClose: decimal.RequireFromString(prevClose),
	}
}

type notice struct {
	Level   domain.NoticeLevel
	Message string
}

type fakeNotifier struct {
	mu      sync.Mutex
	notices []notice
}

func (n *fakeNotifier) Notify(level domain.NoticeLevel, message string) {
	n.mu.Lock()
	n.notices = append(n.notices, notice{level, message})
	n.mu.Unlock()
}

func (n *fakeNotifier) all() []notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notice(nil), n.notices...)
}

func (n *fakeNotifier) last() notice {
	all := n.all()
	if len(all) == 0 {
		return notice{}
	}
	return all[len(all)-1]
}

type fakeSubscriber struct {
	mu           sync.Mutex
	subscribed   []string
	unsubscribed []string
}

func (s *fakeSubscriber) Subscribe(symbol string) {
	s.mu.Lock()
	s.subscribed = append(s.subscribed, symbol)
	s.mu.Unlock()
}

func (s *fakeSubscriber) Unsubscribe(symbol string) {
	s.mu.Lock()
	s.unsubscribed = append(s.unsubscribed, symbol)
	s.mu.Unlock()
}

func (s *fakeSubscriber) subs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed...)
}

func (s *fakeSubscriber) unsubs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.unsubscribed...)
}

type fakeRepo struct {
	mu      sync.Mutex
	items   []domain.WatchlistItem
	saves   int
	saveErr error
	loadErr error
}

func (r *fakeRepo) LoadWatchlist() ([]domain.WatchlistItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loadErr != nil {
		return nil, r.loadErr
	}
	return append([]domain.WatchlistItem(nil), r.items...), nil
}

func (r *fakeRepo) SaveWatchlist(items []domain.WatchlistItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saves++
	r.items = append([]domain.WatchlistItem(nil), items...)
	return nil
}

type fakeRenderer struct {
	mu        sync.Mutex
	indices   [][]domain.IndexCard
	watchlist [][]domain.WatchlistRow
	statuses  []domain.MarketStatus
	prices    []domain.PriceUpdateEvent
	panicOn   string
}

func (r *fakeRenderer) RenderIndices(cards []domain.IndexCard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.panicOn == "indices" {
		panic("render failed")
	}
	r.indices = append(r.indices, cards)
}

func (r *fakeRenderer) RenderWatchlist(rows []domain.WatchlistRow) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watchlist = append(r.watchlist, rows)
}

func (r *fakeRenderer) RenderMarketStatus(status domain.MarketStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses = append(r.statuses, status)
}

func (r *fakeRenderer) RenderPrice(ev domain.PriceUpdateEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices = append(r.prices, ev)
}

func (r *fakeRenderer) counts() (indices, watchlist, statuses int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indices), len(r.watchlist), len(r.statuses)
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

var errBoom = errors.New("boom")
