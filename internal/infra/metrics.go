package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Cache
	cacheHits   atomic.Uint64
	cacheMisses atomic.Uint64

	// REST
	restRequests atomic.Uint64
	restFailures atomic.Uint64

	// Stream
	streamMessages   atomic.Uint64
	tradesDispatched atomic.Uint64
	parseErrors      atomic.Uint64
	reconnects       atomic.Uint64
	handlerPanics    atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// NewMetrics creates a zeroed metrics set.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordCacheHit records a valid cache read.
func (m *Metrics) RecordCacheHit() {
	m.cacheHits.Add(1)
}

// RecordCacheMiss records an absent or expired cache read.
func (m *Metrics) RecordCacheMiss() {
	m.cacheMisses.Add(1)
}

// RecordRequest records one outbound REST request and whether it failed.
func (m *Metrics) RecordRequest(failed bool) {
	m.restRequests.Add(1)
	if failed {
		m.restFailures.Add(1)
	}
}

// RecordStreamMessage records an inbound push message.
func (m *Metrics) RecordStreamMessage() {
	m.streamMessages.Add(1)
}

// RecordTradeDispatched records a price update handed to the dispatcher.
func (m *Metrics) RecordTradeDispatched() {
	m.tradesDispatched.Add(1)
}

// RecordParseError records a malformed push message.
func (m *Metrics) RecordParseError() {
	m.parseErrors.Add(1)
}

// RecordReconnect records a scheduled reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordHandlerPanic records a recovered panic in a price handler.
func (m *Metrics) RecordHandlerPanic() {
	m.handlerPanics.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	CacheHits         uint64
	CacheMisses       uint64
	RestRequests      uint64
	RestFailures      uint64
	StreamMessages    uint64
	TradesDispatched  uint64
	ParseErrors       uint64
	Reconnects        uint64
	HandlerPanics     uint64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		CacheHits:         m.cacheHits.Load(),
		CacheMisses:       m.cacheMisses.Load(),
		RestRequests:      m.restRequests.Load(),
		RestFailures:      m.restFailures.Load(),
		StreamMessages:    m.streamMessages.Load(),
		TradesDispatched:  m.tradesDispatched.Load(),
		ParseErrors:       m.parseErrors.Load(),
		Reconnects:        m.reconnects.Load(),
		HandlerPanics:     m.handlerPanics.Load(),
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.cacheHits.Store(0)
	m.cacheMisses.Store(0)
	m.restRequests.Store(0)
	m.restFailures.Store(0)
	m.streamMessages.Store(0)
	m.tradesDispatched.Store(0)
	m.parseErrors.Store(0)
	m.reconnects.Store(0)
	m.handlerPanics.Store(0)
	m.activeConnections.Store(0)
}
