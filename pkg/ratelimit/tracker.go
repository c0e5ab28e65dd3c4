package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	vcRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "veracross_rate_limit_remaining",
		Help: "Number of API calls remaining in the current rate limit window",
	})

	vcRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veracross_rate_limit_throttles_total",
		Help: "Total number of requests paused waiting for the rate limit window to reset",
	})

	vcRateLimitSleepSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "veracross_rate_limit_sleep_seconds",
		Help:    "Duration of rate limit pauses in seconds",
		Buckets: []float64{1, 2, 5, 10, 30, 60, 120, 300},
	})
)

// Tracker observes rate limit headers and gates requests. State lives in a
// Store so that several processes sharing one credential can also share the
// quota counters.
type Tracker struct {
	store  Store
	logger zerolog.Logger

	// after is swapped out in tests to avoid real sleeps.
	after func(time.Duration) <-chan time.Time
}

// NewTracker creates a rate limit tracker backed by the given store.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:  store,
		logger: logger,
		after:  time.After,
	}
}

// SetAfterFunc replaces the timer used for throttle waits (for testing).
func (t *Tracker) SetAfterFunc(after func(time.Duration) <-chan time.Time) {
	t.after = after
}

// State returns the current rate limit state.
func (t *Tracker) State(ctx context.Context) (State, error) {
	return t.store.Get(ctx)
}

// UpdateFromHeaders parses the rate limit headers of a response and
// overwrites the stored state. Responses without rate limit headers leave
// the state untouched.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	remainStr := headers.Get("X-Rate-Limit-Remaining")
	if remainStr == "" {
		return nil
	}

	remaining, err := strconv.Atoi(remainStr)
	if err != nil {
		return fmt.Errorf("parse X-Rate-Limit-Remaining header: %w", err)
	}

	resetSeconds := 0
	if resetStr := headers.Get("X-Rate-Limit-Reset"); resetStr != "" {
		resetSeconds, err = strconv.Atoi(resetStr)
		if err != nil {
			return fmt.Errorf("parse X-Rate-Limit-Reset header: %w", err)
		}
	}

	state := State{
		Remaining:    remaining,
		ResetSeconds: resetSeconds,
		LastUpdate:   time.Now(),
	}

	if err := t.store.Set(ctx, state); err != nil {
		return fmt.Errorf("store rate limit state: %w", err)
	}

	vcRateLimitRemaining.Set(float64(remaining))

	logEvent := t.logger.Debug()
	if state.NeedsThrottle() {
		logEvent = t.logger.Warn()
	}
	logEvent.
		Int("remaining", remaining).
		Int("reset_seconds", resetSeconds).
		Msg("Rate limit state updated")

	return nil
}

// Throttle blocks until the rate limit window resets if the last observed
// state demands it, then restores the default state so one header
// observation pauses exactly once. The wait is cooperative: cancelling the
// context aborts it.
func (t *Tracker) Throttle(ctx context.Context) error {
	state, err := t.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("get rate limit state: %w", err)
	}

	if !state.NeedsThrottle() {
		return nil
	}

	// An observation older than its own reset window describes a window
	// that has already rolled over. Clear it instead of pausing.
	if state.IsStale(state.ThrottleDuration()) {
		if err := t.store.Set(ctx, DefaultState()); err != nil {
			return fmt.Errorf("reset rate limit state: %w", err)
		}
		t.logger.Debug().
			Time("last_update", state.LastUpdate).
			Msg("Rate limit window reset while idle - skipping pause")
		return nil
	}

	wait := state.ThrottleDuration()

	t.logger.Warn().
		Int("remaining", state.Remaining).
		Dur("wait", wait).
		Msg("Rate limit reached - pausing until window resets")

	vcRateLimitThrottlesTotal.Inc()
	vcRateLimitSleepSeconds.Observe(wait.Seconds())

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.after(wait):
	}

	if err := t.store.Set(ctx, DefaultState()); err != nil {
		return fmt.Errorf("reset rate limit state: %w", err)
	}

	t.logger.Info().Dur("waited", wait).Msg("Rate limit window reset - resuming")
	return nil
}
