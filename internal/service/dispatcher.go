package service

import (
	"fmt"
	"log/slog"
	"sync"

	"equidify/internal/domain"
	"equidify/internal/infra"
)

// GenericErrorNotice is shown when a background task fails unexpectedly
const GenericErrorNotice = "An unexpected error occurred"

type handlerEntry struct {
	id uint64
	fn domain.PriceUpdateHandler
}

// Dispatcher fans live price events out to registered handlers.
// Symbol handlers run before wildcard handlers, each group in registration
// order, on the caller's goroutine.
type Dispatcher struct {
	mu       sync.RWMutex
	bySymbol map[string][]handlerEntry
	wildcard []handlerEntry
	nextID   uint64

	notifier domain.Notifier
	metrics  *infra.Metrics
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. notifier may be nil.
func NewDispatcher(notifier domain.Notifier, metrics *infra.Metrics) *Dispatcher {
	if metrics == nil {
		metrics = infra.NewMetrics()
	}
	return &Dispatcher{
		bySymbol: make(map[string][]handlerEntry),
		notifier: notifier,
		metrics:  metrics,
		logger:   slog.Default().With("module", "dispatcher"),
	}
}

// Register adds fn for symbol and returns a func that removes it
func (d *Dispatcher) Register(symbol string, fn domain.PriceUpdateHandler) func() {
	symbol = domain.NormalizeSymbol(symbol)

	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.bySymbol[symbol] = append(d.bySymbol[symbol], handlerEntry{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.bySymbol[symbol] = without(d.bySymbol[symbol], id)
		if len(d.bySymbol[symbol]) == 0 {
			delete(d.bySymbol, symbol)
		}
	}
}

// RegisterAll adds fn for every symbol and returns a func that removes it
func (d *Dispatcher) RegisterAll(fn domain.PriceUpdateHandler) func() {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	d.wildcard = append(d.wildcard, handlerEntry{id: id, fn: fn})
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.wildcard = without(d.wildcard, id)
	}
}

// Dispatch delivers ev to every matching handler. Having no handler is not an error.
func (d *Dispatcher) Dispatch(ev domain.PriceUpdateEvent) {
	d.mu.RLock()
	symbolHandlers := d.bySymbol[domain.NormalizeSymbol(ev.Symbol)]
	handlers := make([]handlerEntry, 0, len(symbolHandlers)+len(d.wildcard))
	handlers = append(handlers, symbolHandlers...)
	handlers = append(handlers, d.wildcard...)
	d.mu.RUnlock()

	for _, h := range handlers {
		d.invoke(h.fn, ev)
	}
}

// HandlerCount returns the number of handlers that would receive an event for symbol
func (d *Dispatcher) HandlerCount(symbol string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.bySymbol[domain.NormalizeSymbol(symbol)]) + len(d.wildcard)
}

func (d *Dispatcher) invoke(fn domain.PriceUpdateHandler, ev domain.PriceUpdateEvent) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.RecordHandlerPanic()
			d.logger.Error("Price handler panic recovered",
				slog.String("symbol", ev.Symbol),
				slog.String("panic", fmt.Sprint(r)),
			)
			if d.notifier != nil {
				d.notifier.Notify(domain.NoticeError, GenericErrorNotice)
			}
		}
	}()
	fn(ev)
}

func without(entries []handlerEntry, id uint64) []handlerEntry {
	out := entries[:0:0]
	for _, e := range entries {
		if e.id != id {
			out = append(out, e)
		}
	}
	return out
}
