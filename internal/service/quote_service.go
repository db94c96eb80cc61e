package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"equidify/internal/domain"
)

// MarketDataClient is the REST surface QuoteService reads through
type MarketDataClient interface {
	Quote(ctx context.Context, symbol string) (*domain.Quote, error)
	Profile(ctx context.Context, symbol string) (*domain.Profile, error)
	Search(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// QuoteService answers quote and profile lookups from the cache, falling
// back to one REST request on a miss. Failures surface as nil plus an
// error notice; they are never cached.
type QuoteService struct {
	client   MarketDataClient
	cache    *QuoteCache
	notifier domain.Notifier
	logger   *slog.Logger
}

// NewQuoteService creates a QuoteService
func NewQuoteService(client MarketDataClient, cache *QuoteCache, notifier domain.Notifier) *QuoteService {
	return &QuoteService{
		client:   client,
		cache:    cache,
		notifier: notifier,
		logger:   slog.Default().With("module", "quotes"),
	}
}

// GetQuote returns the quote for symbol, or nil when it is unknown.
func (s *QuoteService) GetQuote(ctx context.Context, symbol string) *domain.Quote {
	symbol = domain.NormalizeSymbol(symbol)
	if q, ok := s.cache.Quote(symbol); ok {
		return q
	}

	q, err := s.client.Quote(ctx, symbol)
	if err != nil {
		s.fail("quote", symbol, err)
		return nil
	}
	s.cache.Put(KindQuote, symbol, q)
	return q
}

// GetProfile returns the profile for symbol, or nil when it is unknown.
func (s *QuoteService) GetProfile(ctx context.Context, symbol string) *domain.Profile {
	symbol = domain.NormalizeSymbol(symbol)
	if p, ok := s.cache.Profile(symbol); ok {
		return p
	}

	p, err := s.client.Profile(ctx, symbol)
	if err != nil {
		s.fail("profile", symbol, err)
		return nil
	}
	s.cache.Put(KindProfile, symbol, p)
	return p
}

// GetQuoteAndProfile fetches both concurrently.
func (s *QuoteService) GetQuoteAndProfile(ctx context.Context, symbol string) (*domain.Quote, *domain.Profile) {
	var (
		quote   *domain.Quote
		profile *domain.Profile
	)
	var g errgroup.Group
	g.Go(func() error {
		quote = s.GetQuote(ctx, symbol)
		return nil
	})
	g.Go(func() error {
		profile = s.GetProfile(ctx, symbol)
		return nil
	})
	g.Wait()
	return quote, profile
}

// Search returns up to five matches for query. Results are not cached.
func (s *QuoteService) Search(ctx context.Context, query string) []domain.SearchResult {
	results, err := s.client.Search(ctx, query)
	if err != nil {
		s.fail("search", query, err)
		return nil
	}
	return results
}

// LookupResult is the outcome of a free-text lookup. Either Results holds
// search matches, or Quote/Profile hold a direct hit on the query as a symbol.
type LookupResult struct {
	Query   string
	Results []domain.SearchResult
	Quote   *domain.Quote
	Profile *domain.Profile
}

// Found reports whether the lookup produced anything to show
func (r LookupResult) Found() bool {
	return len(r.Results) > 0 || r.Quote.HasPrice()
}

// Lookup searches for query. When the search is empty it tries query as a
// ticker directly; that hit counts only if the quote has a price.
func (s *QuoteService) Lookup(ctx context.Context, query string) LookupResult {
	query = domain.NormalizeSymbol(query)
	res := LookupResult{Query: query}
	if query == "" {
		return res
	}

	if results := s.Search(ctx, query); len(results) > 0 {
		res.Results = results
		return res
	}

	quote, profile := s.GetQuoteAndProfile(ctx, query)
	if quote.HasPrice() {
		res.Quote = quote
		res.Profile = profile
	}
	return res
}

func (s *QuoteService) fail(op, symbol string, err error) {
	s.logger.Error("API request failed",
		slog.String("op", op),
		slog.String("symbol", symbol),
		slog.Any("error", err),
		slog.Bool("retriable", domain.IsRetriable(err)),
	)
	if s.notifier == nil {
		return
	}

	msg := "API Error: " + err.Error()
	var apiErr *domain.APIError
	if errors.As(err, &apiErr) {
		msg = apiErr.Error()
	}
	s.notifier.Notify(domain.NoticeError, msg)
}
