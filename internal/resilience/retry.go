package resilience

import (
	"context"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"
)

// Policy bounds the re-submission of one model call. Attempts counts
// the first call, so a Policy with Attempts 1 never retries. Delays
// double per attempt from BaseDelay up to MaxDelay.
type Policy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration

	// Jitter widens each delay by a random fraction in [-Jitter, +Jitter].
	Jitter float64

	// Classify decides whether an error is worth another attempt.
	// Nil means IsTransient.
	Classify func(error) bool

	// OnAttempt runs before each re-submission sleep.
	OnAttempt func(attempt int, err error)
}

// ModelCallPolicy is the standing policy for Claude API calls: three
// attempts with doubling, jittered delays, retrying only throttling and
// network-level failures. Each retry is logged under the given
// operation name.
func ModelCallPolicy(operation string) Policy {
	return Policy{
		Attempts:  3,
		BaseDelay: 500 * time.Millisecond,
		MaxDelay:  30 * time.Second,
		Jitter:    0.25,
		OnAttempt: func(attempt int, err error) {
			zap.L().Warn("retrying model call",
				zap.String("operation", operation),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
		},
	}
}

// Call runs fn under the policy. Non-transient errors and context
// cancellation surface immediately; transient ones are re-submitted
// until the attempt budget runs out, returning the last error. The
// generation and validation loops convert whatever comes back into a
// recorded rejection or failure, so Call never masks an error.
func Call[T any](ctx context.Context, p Policy, fn func(ctx context.Context) (T, error)) (T, error) {
	if p.Attempts <= 0 {
		p.Attempts = 1
	}
	classify := p.Classify
	if classify == nil {
		classify = IsTransient
	}

	var zero T
	delay := p.BaseDelay
	for attempt := 1; ; attempt++ {
		val, err := fn(ctx)
		if err == nil {
			return val, nil
		}
		if ctx.Err() != nil || !classify(err) || attempt >= p.Attempts {
			return zero, err
		}

		if p.OnAttempt != nil {
			p.OnAttempt(attempt, err)
		}

		timer := time.NewTimer(jittered(delay, p.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, err
		case <-timer.C:
		}

		delay *= 2
		if p.MaxDelay > 0 && delay > p.MaxDelay {
			delay = p.MaxDelay
		}
	}
}

// jittered spreads a delay uniformly across [delay*(1-f), delay*(1+f)]
// so stalled campaigns do not re-submit in lockstep.
func jittered(delay time.Duration, fraction float64) time.Duration {
	if fraction <= 0 || delay <= 0 {
		return delay
	}
	spread := (rand.Float64()*2 - 1) * fraction * float64(delay)
	d := time.Duration(float64(delay) + spread)
	if d < 0 {
		return 0
	}
	return d
}
