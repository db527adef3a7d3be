// Package ratelimit implements the upstream call quota guard.
// All upstream calls share one fixed-length window per process; only calls
// that actually reach the upstream API are counted.
package ratelimit

import (
	"math"
	"time"
)

// WindowLength is the length of one quota window.
const WindowLength = 60 * time.Second

// DefaultLimit is the default number of upstream calls admitted per window.
const DefaultLimit = 90

// Window is the state of the current quota window.
type Window struct {
	// Start is when the current window opened.
	Start time.Time `json:"start"`

	// Count is the number of calls admitted in this window. It may reach
	// Limit exactly but never exceeds it.
	Count int `json:"count"`

	// Limit is the maximum number of calls per window.
	Limit int `json:"limit"`
}

// Elapsed reports whether the window has run its full length at now.
func (w *Window) Elapsed(now time.Time, length time.Duration) bool {
	return now.Sub(w.Start) >= length
}

// Roll opens a fresh window at now when the current one has elapsed.
// It returns true if the window was reset.
func (w *Window) Roll(now time.Time, length time.Duration) bool {
	if !w.Elapsed(now, length) {
		return false
	}
	w.Start = now
	w.Count = 0
	return true
}

// Exhausted returns true if no call can be admitted in this window.
func (w *Window) Exhausted() bool {
	return w.Count >= w.Limit
}

// Remaining returns the number of calls still admissible.
func (w *Window) Remaining() int {
	if w.Exhausted() {
		return 0
	}
	return w.Limit - w.Count
}

// SecondsUntilReset returns the ceiling of the time left in the window,
// never less than 1.
func (w *Window) SecondsUntilReset(now time.Time, length time.Duration) int {
	left := length - now.Sub(w.Start)
	secs := int(math.Ceil(left.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
