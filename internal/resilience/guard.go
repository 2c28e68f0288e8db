package resilience

import (
	"context"
	"errors"
	"time"
)

// Guard runs calls against a remote store with a per-attempt timeout, retries
// and a circuit breaker. Errors listed in Expected are returned to the caller
// without counting against the breaker.
type Guard struct {
	Breaker     *Breaker
	Timeout     time.Duration
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
	Expected    []error
}

// Do executes fn. When the breaker refuses the call ErrOpenCircuit is returned
// and fn is not invoked.
func (g Guard) Do(ctx context.Context, fn func(context.Context) error) error {
	if fn == nil {
		return errors.New("resilience: callback not provided")
	}
	breaker := g.Breaker
	if breaker == nil {
		breaker = NewBreaker(1, 1, time.Second)
	}
	maxAttempts := g.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	baseBackoff := g.BaseBackoff
	if baseBackoff <= 0 {
		baseBackoff = 50 * time.Millisecond
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if !breaker.Allow(ctx) {
			return ErrOpenCircuit
		}
		err := g.attempt(ctx, fn)
		if err == nil || g.expected(err) {
			breaker.Report(ctx, true)
			return err
		}
		breaker.Report(ctx, false)
		lastErr = err
		if attempt == maxAttempts || ctx.Err() != nil {
			break
		}
		timer := time.NewTimer(Backoff(baseBackoff, attempt, g.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

func (g Guard) attempt(ctx context.Context, fn func(context.Context) error) error {
	if g.Timeout <= 0 {
		return fn(ctx)
	}
	callCtx, cancel := context.WithTimeout(ctx, g.Timeout)
	defer cancel()
	return fn(callCtx)
}

func (g Guard) expected(err error) bool {
	for _, target := range g.Expected {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
