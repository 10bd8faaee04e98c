package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy controls exponential backoff with jitter.
type Policy struct {
	// Attempts is the total number of tries including the first. Default 3.
	Attempts int
	// BaseDelay before the first retry. Default 400ms.
	BaseDelay time.Duration
	// MaxDelay caps the backoff. Default 20s.
	MaxDelay time.Duration
	// Jitter is the fraction of the delay randomized in both directions.
	// Default 0.25.
	Jitter float64
}

// DefaultPolicy suits the Google and Anthropic API calls this pipeline makes.
func DefaultPolicy() Policy {
	return Policy{Attempts: 3, BaseDelay: 400 * time.Millisecond, MaxDelay: 20 * time.Second, Jitter: 0.25}
}

func (p Policy) withDefaults() Policy {
	if p.Attempts <= 0 {
		p.Attempts = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 400 * time.Millisecond
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = 20 * time.Second
	}
	if p.Jitter < 0 {
		p.Jitter = 0
	}
	return p
}

func (p Policy) delay(attempt int) time.Duration {
	d := float64(p.BaseDelay) * math.Pow(2, float64(attempt))
	if d > float64(p.MaxDelay) {
		d = float64(p.MaxDelay)
	}
	if p.Jitter > 0 {
		d += (rand.Float64()*2 - 1) * d * p.Jitter
	}
	if d < 0 {
		d = 0
	}
	return time.Duration(d)
}

// Do runs fn under the policy, retrying only transient failures. Context
// cancellation stops retries immediately; the last error is returned.
func Do[T any](ctx context.Context, p Policy, op string, fn func(ctx context.Context) (T, error)) (T, error) {
	p = p.withDefaults()
	var zero T
	var lastErr error
	for attempt := 0; attempt < p.Attempts; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		lastErr = err
		if ctx.Err() != nil || !IsTransient(err) {
			return zero, lastErr
		}
		if attempt == p.Attempts-1 {
			break
		}
		zap.L().Warn("retrying external call",
			zap.String("op", op),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
		timer := time.NewTimer(p.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, lastErr
		case <-timer.C:
		}
	}
	return zero, lastErr
}
