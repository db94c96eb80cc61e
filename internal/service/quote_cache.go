package service

import (
	"sync"
	"time"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

// CacheKind selects the TTL applied to a record
type CacheKind string

const (
	KindQuote   CacheKind = "quote"
	KindProfile CacheKind = "profile"
)

// CacheRecord is one cached REST payload
type CacheRecord struct {
	Key       string
	Kind      CacheKind
	Payload   any
	Timestamp time.Time
}

// QuoteCache is a read-through cache for REST lookups. Records expire
// lazily on read; nothing is evicted in the background.
type QuoteCache struct {
	mu      sync.RWMutex
	records map[string]CacheRecord
	ttl     map[CacheKind]time.Duration
	now     func() time.Time
	metrics *infra.Metrics
}

// CacheOption configures a QuoteCache
type CacheOption func(*QuoteCache)

// WithClock replaces time.Now (tests)
func WithClock(now func() time.Time) CacheOption {
	return func(c *QuoteCache) {
		c.now = now
	}
}

// WithCacheMetrics records hits and misses in m
func WithCacheMetrics(m *infra.Metrics) CacheOption {
	return func(c *QuoteCache) {
		c.metrics = m
	}
}

// NewQuoteCache creates a cache with the given per-kind lifetimes
func NewQuoteCache(quoteTTL, profileTTL time.Duration, opts ...CacheOption) *QuoteCache {
	c := &QuoteCache{
		records: make(map[string]CacheRecord),
		ttl: map[CacheKind]time.Duration{
			KindQuote:   quoteTTL,
			KindProfile: profileTTL,
		},
		now:     time.Now,
		metrics: infra.NewMetrics(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func cacheKey(kind CacheKind, symbol string) string {
	return string(kind) + "_" + symbol
}

// Get returns the payload if a record exists and is younger than its kind's TTL
func (c *QuoteCache) Get(kind CacheKind, symbol string) (any, bool) {
	c.mu.RLock()
	rec, ok := c.records[cacheKey(kind, symbol)]
	c.mu.RUnlock()

	if !ok || !c.IsValid(rec, c.ttl[kind]) {
		c.metrics.RecordCacheMiss()
		return nil, false
	}
	c.metrics.RecordCacheHit()
	return rec.Payload, true
}

// Put stores payload, replacing any previous record for the key
func (c *QuoteCache) Put(kind CacheKind, symbol string, payload any) {
	key := cacheKey(kind, symbol)
	c.mu.Lock()
	c.records[key] = CacheRecord{
		Key:       key,
		Kind:      kind,
		Payload:   payload,
		Timestamp: c.now(),
	}
	c.mu.Unlock()
}

// IsValid reports now - rec.Timestamp < ttl
func (c *QuoteCache) IsValid(rec CacheRecord, ttl time.Duration) bool {
	return c.now().Sub(rec.Timestamp) < ttl
}

// Len returns the number of stored records, expired ones included
func (c *QuoteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.records)
}

// Quote returns a cached quote
func (c *QuoteCache) Quote(symbol string) (*domain.Quote, bool) {
	v, ok := c.Get(KindQuote, symbol)
	if !ok {
		return nil, false
	}
	q, ok := v.(*domain.Quote)
	return q, ok
}

// Profile returns a cached profile
func (c *QuoteCache) Profile(symbol string) (*domain.Profile, bool) {
	v, ok := c.Get(KindProfile, symbol)
	if !ok {
		return nil, false
	}
	p, ok := v.(*domain.Profile)
	return p, ok
}
