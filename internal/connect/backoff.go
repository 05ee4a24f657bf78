package connect

import (
	"math"
	"time"
)

// Backoff is the bounded retry policy for connection failures against a
// resolved endpoint. It is a pure value: Delay has no side effects, so the
// schedule is directly testable.
type Backoff struct {
	Initial     time.Duration
	Multiplier  float64
	Max         time.Duration
	MaxAttempts int
}

// Delay returns the pause before retry attempt k (1-based):
// min(Initial * Multiplier^(k-1), Max).
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := float64(b.Initial) * math.Pow(b.Multiplier, float64(attempt-1))
	if d > float64(b.Max) || math.IsInf(d, 1) {
		return b.Max
	}
	return time.Duration(d)
}

// Exhausted reports whether failures has used up the retry budget.
func (b Backoff) Exhausted(failures int) bool {
	return failures >= b.MaxAttempts
}
