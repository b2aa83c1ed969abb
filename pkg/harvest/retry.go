package harvest

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for parse retries.
var (
	harvestParseRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_parse_retries_total",
		Help: "Total number of page re-fetches after a malformed response",
	})

	harvestRetryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "harvest_retry_backoff_seconds",
		Help:    "Backoff duration before re-fetching a malformed page",
		Buckets: []float64{0, 0.5, 1, 2, 5, 10, 30, 60},
	})

	harvestRetryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "harvest_retry_exhausted_total",
		Help: "Total number of harvests aborted because a page stayed malformed",
	})
)

// RetryPolicy decides how often and how patiently a malformed page is
// re-fetched.
type RetryPolicy struct {
	// MaxAttempts is the maximum number of parse attempts per page,
	// including the first. Zero means no limit.
	MaxAttempts int

	// InitialBackoff is the pause after the first failure. Zero disables
	// pauses altogether.
	InitialBackoff time.Duration

	// MaxBackoff caps the pause.
	MaxBackoff time.Duration

	// BackoffMultiplier is the growth factor between pauses.
	BackoffMultiplier float64

	// Jitter randomises each pause by ±20%.
	Jitter bool
}

// DefaultRetryPolicy re-fetches a malformed page immediately and forever.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{}
}

// BoundedRetryPolicy gives up after five attempts, backing off exponentially
// between them.
func BoundedRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       5,
		InitialBackoff:    1 * time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
}

// Exhausted reports whether no further attempt is allowed after attempt
// consecutive failures.
func (p RetryPolicy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt >= p.MaxAttempts
}

// Backoff returns the pause after attempt consecutive failures, without
// jitter.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	if p.InitialBackoff <= 0 || attempt < 1 {
		return 0
	}
	mult := p.BackoffMultiplier
	if mult < 1 {
		mult = 1
	}

	backoff := float64(p.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= mult
		if p.MaxBackoff > 0 && backoff >= float64(p.MaxBackoff) {
			return p.MaxBackoff
		}
	}
	if p.MaxBackoff > 0 && time.Duration(backoff) > p.MaxBackoff {
		return p.MaxBackoff
	}
	return time.Duration(backoff)
}

// wait pauses before the next attempt, returning early when ctx ends.
func (p RetryPolicy) wait(ctx context.Context, attempt int) error {
	harvestParseRetriesTotal.Inc()

	backoff := p.Backoff(attempt)
	if p.Jitter && backoff > 0 {
		backoff = time.Duration(float64(backoff) * (0.8 + rand.Float64()*0.4))
	}
	harvestRetryBackoffSeconds.Observe(backoff.Seconds())

	if backoff <= 0 {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrContextCancelled, err)
		}
		return nil
	}

	timer := time.NewTimer(backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
	case <-timer.C:
		return nil
	}
}
