package service

import (
	"testing"
	"time"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

func TestQuoteCache_TTLBoundary(t *testing.T) {
	clock := newFakeClock()
	c := NewQuoteCache(time.Minute, 10*time.Minute, WithClock(clock.Now))

	c.Put(KindQuote, "AAPL", quote("AAPL", "150", "149"))

	tests := []struct {
		name    string
		advance time.Duration
		valid   bool
	}{
		{"fresh", 0, true},
		{"just before ttl", time.Minute - time.Millisecond, true},
		{"at ttl", time.Millisecond, false},
		{"past ttl", time.Hour, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.Advance(tt.advance)
			_, ok := c.Get(KindQuote, "AAPL")
			if ok != tt.valid {
				t.Errorf("Get ok = %v, want %v", ok, tt.valid)
			}
		})
	}

	// Expired records stay until overwritten
	if c.Len() != 1 {
		t.Errorf("Expected lazy expiry to keep the record, got len %d", c.Len())
	}
}

func TestQuoteCache_ProfileLivesLonger(t *testing.T) {
	clock := newFakeClock()
	c := NewQuoteCache(time.Minute, 10*time.Minute, WithClock(clock.Now))

	c.Put(KindQuote, "MSFT", quote("MSFT", "400", "390"))
	c.Put(KindProfile, "MSFT", &domain.Profile{Symbol: "MSFT", Name: "Microsoft Corp"})

	clock.Advance(5 * time.Minute)

	if _, ok := c.Quote("MSFT"); ok {
		t.Error("quote should have expired after 5m")
	}
	p, ok := c.Profile("MSFT")
	if !ok || p.Name != "Microsoft Corp" {
		t.Errorf("profile should still be valid, got %+v ok=%v", p, ok)
	}

	clock.Advance(5 * time.Minute)
	if _, ok := c.Profile("MSFT"); ok {
		t.Error("profile should expire at 10x the quote TTL")
	}
}

func TestQuoteCache_KindsAreSeparate(t *testing.T) {
	c := NewQuoteCache(time.Minute, time.Minute)

	c.Put(KindQuote, "AAPL", quote("AAPL", "1", "1"))
	if _, ok := c.Get(KindProfile, "AAPL"); ok {
		t.Error("quote record must not satisfy a profile lookup")
	}
}

func TestQuoteCache_PutReplaces(t *testing.T) {
	clock := newFakeClock()
	c := NewQuoteCache(time.Minute, time.Minute, WithClock(clock.Now))

	c.Put(KindQuote, "AAPL", quote("AAPL", "150", "149"))
	clock.Advance(50 * time.Second)
	c.Put(KindQuote, "AAPL", quote("AAPL", "151", "149"))
	clock.Advance(50 * time.Second)

	q, ok := c.Quote("AAPL")
	if !ok {
		t.Fatal("replacement should refresh the timestamp")
	}
	if q.Price.String() != "151" {
		t.Errorf("Expected newest payload, got %s", q.Price)
	}
}

func TestQuoteCache_Metrics(t *testing.T) {
	m := infra.NewMetrics()
	c := NewQuoteCache(time.Minute, time.Minute, WithCacheMetrics(m))

	c.Get(KindQuote, "AAPL")
	c.Put(KindQuote, "AAPL", quote("AAPL", "1", "1"))
	c.Get(KindQuote, "AAPL")
	c.Get(KindQuote, "AAPL")

	snap := m.Snapshot()
	if snap.CacheMisses != 1 || snap.CacheHits != 2 {
		t.Errorf("Expected 2 hits / 1 miss, got %d / %d", snap.CacheHits, snap.CacheMisses)
	}
}
