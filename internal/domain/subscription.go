package domain

import (
	"sort"
	"sync"
)

// SubscriptionSet is the set of symbols that should be receiving live
// pushes. It survives transport reconnects and is replayed on each one.
type SubscriptionSet struct {
	mu      sync.RWMutex
	symbols map[string]struct{}
}

// NewSubscriptionSet creates an empty set.
func NewSubscriptionSet() *SubscriptionSet {
	return &SubscriptionSet{
		symbols: make(map[string]struct{}),
	}
}

// Add inserts symbol and reports whether it was newly added.
func (s *SubscriptionSet) Add(symbol string) bool {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.symbols[symbol]; ok {
		return false
	}
	s.symbols[symbol] = struct{}{}
	return true
}

// Remove deletes symbol and reports whether it was present.
func (s *SubscriptionSet) Remove(symbol string) bool {
	symbol = NormalizeSymbol(symbol)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.symbols[symbol]; !ok {
		return false
	}
	delete(s.symbols, symbol)
	return true
}

// Has reports whether symbol is in the set.
func (s *SubscriptionSet) Has(symbol string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.symbols[NormalizeSymbol(symbol)]
	return ok
}

// All returns a sorted copy of the set.
func (s *SubscriptionSet) All() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.symbols))
	for symbol := range s.symbols {
		result = append(result, symbol)
	}
	sort.Strings(result)
	return result
}

// Len returns the number of symbols in the set.
func (s *SubscriptionSet) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.symbols)
}
