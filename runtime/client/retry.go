package client

import (
	"fmt"
	"math/rand"
	"time"
)

// RetryPolicy controls how a worker retries statements that fail with
// SQLITE_BUSY or SQLITE_LOCKED. It applies on top of the busy timeout.
type RetryPolicy struct {
	MaxAttempts   int           // Total attempts, including the first
	InitialDelay  time.Duration // Delay before the second attempt
	MaxDelay      time.Duration // Cap on the delay between attempts
	BackoffFactor float64       // Exponential backoff multiplier
	Jitter        bool          // Spread delays by ±25%
}

// DefaultRetryPolicy returns five attempts backing off from 10ms to 500ms.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   5,
		InitialDelay:  10 * time.Millisecond,
		MaxDelay:      500 * time.Millisecond,
		BackoffFactor: 2.0,
		Jitter:        true,
	}
}

// NoRetry makes a single attempt.
func NoRetry() RetryPolicy {
	return RetryPolicy{MaxAttempts: 1}
}

func (p RetryPolicy) validate() error {
	if p.MaxAttempts < 1 {
		return fmt.Errorf("%w: retry attempts must be at least 1, got %d", ErrInvalidConfig, p.MaxAttempts)
	}
	if p.InitialDelay < 0 || p.MaxDelay < 0 || (p.BackoffFactor != 0 && p.BackoffFactor < 1) {
		return fmt.Errorf("%w: bad retry delays", ErrInvalidConfig)
	}
	return nil
}

// delay returns how long to wait after the given failed attempt (1-based).
func (p RetryPolicy) delay(attempt int) time.Duration {
	d := p.InitialDelay
	factor := p.BackoffFactor
	if factor == 0 {
		factor = 1
	}
	for i := 1; i < attempt; i++ {
		d = time.Duration(float64(d) * factor)
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.Jitter && d > 0 {
		jitterRange := d / 4
		if jitterRange > 0 {
			d = d - jitterRange + time.Duration(rand.Int63n(int64(jitterRange)*2))
		}
	}
	return d
}

// retry runs fn until it succeeds, fails with a non-busy error, or the
// attempts run out. The last error is returned.
func (p RetryPolicy) retry(fn func() error) error {
	var err error
	for attempt := 1; ; attempt++ {
		err = fn()
		if err == nil || !IsBusy(err) || attempt >= p.MaxAttempts {
			return err
		}
		time.Sleep(p.delay(attempt))
	}
}
