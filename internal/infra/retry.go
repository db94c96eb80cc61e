package infra

import "time"

// RetryPolicy decides how long to wait before reconnect attempt n (0-based).
// ok=false stops retrying.
type RetryPolicy interface {
	Next(attempt int) (delay time.Duration, ok bool)
}

// FixedDelay retries forever with the same delay. No backoff, no jitter.
type FixedDelay struct {
	Delay time.Duration
}

// Next implements RetryPolicy
func (f FixedDelay) Next(int) (time.Duration, bool) {
	return f.Delay, true
}

// Limited caps another policy at MaxAttempts consecutive attempts.
type Limited struct {
	Policy      RetryPolicy
	MaxAttempts int
}

// Next implements RetryPolicy
func (l Limited) Next(attempt int) (time.Duration, bool) {
	if attempt >= l.MaxAttempts {
		return 0, false
	}
	return l.Policy.Next(attempt)
}
