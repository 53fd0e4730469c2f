package backoff

import (
	"math"
	"math/rand"
	"time"
)

// Policy is a capped exponential backoff schedule with jitter, grounded
// on the original implementation's RetryConfig.calculate_delay.
type Policy struct {
	InitialDelay time.Duration
	Factor       float64
	MaxDelay     time.Duration
	MaxAttempts  int
	Jitter       bool
}

// Default is the spec.md §4.4 schedule: initial 1s, factor 2, cap 30s,
// max 5 tries.
func Default() Policy {
	return Policy{
		InitialDelay: time.Second,
		Factor:       2,
		MaxDelay:     30 * time.Second,
		MaxAttempts:  5,
		Jitter:       true,
	}
}

// Delay returns the wait before attempt number n (1-indexed: the delay
// before the first retry is Delay(1)).
func (p Policy) Delay(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	base := float64(p.InitialDelay) * math.Pow(p.Factor, float64(attempt-1))
	if p.Jitter {
		base += rand.Float64() * base * 0.1
	}
	if capped := float64(p.MaxDelay); p.MaxDelay > 0 && base > capped {
		base = capped
	}
	return time.Duration(base)
}
