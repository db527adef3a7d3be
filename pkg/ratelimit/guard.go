package ratelimit

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for quota tracking.
var (
	quotaAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_rate_guard_admitted_total",
		Help: "Total number of upstream calls admitted by the quota guard",
	})

	quotaRejectedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quote_rate_guard_rejected_total",
		Help: "Total number of upstream calls rejected because the quota window was exhausted",
	})

	quotaWindowUsed = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quote_rate_guard_window_used",
		Help: "Number of upstream calls admitted in the current quota window",
	})
)

// Guard admits or rejects upstream calls against a fixed-length window.
// It is safe for concurrent use; the check and the increment happen under
// one lock.
type Guard struct {
	mu     sync.Mutex
	window Window
	length time.Duration
	now    func() time.Time
	logger zerolog.Logger
}

// NewGuard creates a guard admitting limit calls per WindowLength.
// A non-positive limit falls back to DefaultLimit.
func NewGuard(limit int, logger zerolog.Logger) *Guard {
	if limit <= 0 {
		limit = DefaultLimit
	}
	g := &Guard{
		length: WindowLength,
		now:    time.Now,
		logger: logger,
	}
	g.window = Window{Start: g.now(), Limit: limit}
	return g
}

// SetClock replaces the time source and restarts the window at the new
// clock's current time (for testing).
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.now = now
	g.window.Start = now()
	g.window.Count = 0
}

// TryAdmit counts one upstream call if the window has room.
// It returns false without changing state when the window is exhausted.
func (g *Guard) TryAdmit() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if g.window.Roll(now, g.length) {
		g.logger.Debug().
			Time("window_start", now).
			Msg("Quota window reset")
	}

	if g.window.Exhausted() {
		quotaRejectedTotal.Inc()
		g.logger.Warn().
			Int("window_used", g.window.Count).
			Int("limit", g.window.Limit).
			Int("retry_after", g.window.SecondsUntilReset(now, g.length)).
			Msg("Upstream quota exhausted - rejecting call")
		return false
	}

	g.window.Count++
	quotaAdmittedTotal.Inc()
	quotaWindowUsed.Set(float64(g.window.Count))
	return true
}

// SecondsUntilReset reports the whole seconds left in the current window,
// at least 1.
func (g *Guard) SecondsUntilReset() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.window.Roll(now, g.length)
	return g.window.SecondsUntilReset(now, g.length)
}

// Snapshot returns a copy of the current window state.
func (g *Guard) Snapshot() Window {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.window.Roll(g.now(), g.length)
	return g.window
}
