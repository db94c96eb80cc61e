package infra

import (
	"testing"
	"time"
)

func TestFixedDelay(t *testing.T) {
	policy := FixedDelay{Delay: 5 * time.Second}

	for _, attempt := range []int{0, 1, 10, 1000} {
		delay, ok := policy.Next(attempt)
		if !ok {
			t.Errorf("attempt %d: fixed delay must retry forever", attempt)
		}
		if delay != 5*time.Second {
			t.Errorf("attempt %d: expected 5s, got %v", attempt, delay)
		}
	}
}

func TestLimited(t *testing.T) {
	policy := Limited{Policy: FixedDelay{Delay: time.Millisecond}, MaxAttempts: 2}

	tests := []struct {
		attempt int
		ok      bool
	}{
		{0, true},
		{1, true},
		{2, false},
		{3, false},
	}

	for _, tt := range tests {
		_, ok := policy.Next(tt.attempt)
		if ok != tt.ok {
			t.Errorf("Next(%d) ok = %v, want %v", tt.attempt, ok, tt.ok)
		}
	}
}
