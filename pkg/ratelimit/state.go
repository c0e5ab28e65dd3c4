// Package ratelimit implements Veracross API rate limit tracking and the
// reactive throttle. It monitors the X-Rate-Limit-Remaining and
// X-Rate-Limit-Reset headers and pauses before the call that would exhaust
// the quota.
package ratelimit

import (
	"time"
)

// DefaultRemaining is the remaining-call count assumed before the first
// response has been observed. The Veracross API grants 300 calls per window.
const DefaultRemaining = 300

// ThrottleThreshold is the remaining-call count at which the client must
// pause until the window resets. The call that observes remaining=1 is the
// last one allowed before the server starts rejecting requests.
const ThrottleThreshold = 1

// State represents the most recently observed rate limit state.
type State struct {
	// Remaining is the number of API calls left in the current window.
	// Extracted from the X-Rate-Limit-Remaining header.
	Remaining int `json:"remaining"`

	// ResetSeconds is the number of seconds until the window resets.
	// Extracted from the X-Rate-Limit-Reset header.
	ResetSeconds int `json:"reset_seconds"`

	// LastUpdate is the timestamp when this state was last overwritten
	// from response headers.
	LastUpdate time.Time `json:"last_update"`
}

// DefaultState returns the generous state assumed at client creation,
// before any response headers have been seen.
func DefaultState() State {
	return State{
		Remaining:    DefaultRemaining,
		ResetSeconds: 0,
		LastUpdate:   time.Now(),
	}
}

// NeedsThrottle returns true if the next request must wait for the window
// to reset.
func (s State) NeedsThrottle() bool {
	return s.Remaining <= ThrottleThreshold
}

// ThrottleDuration returns how long the client must pause before the next
// request. The extra second guarantees the window has rolled over on the
// server side.
func (s State) ThrottleDuration() time.Duration {
	return time.Duration(s.ResetSeconds+1) * time.Second
}

// IsStale returns true if the state is older than the given duration.
func (s State) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}
