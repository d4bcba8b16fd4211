package engine

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// GovernorConfig holds the guard thresholds.
type GovernorConfig struct {
	// FailureRateThreshold trips when invalid/total over the rolling window
	// exceeds it. The guard only fires once the window is full, so a burst
	// of early failures on a small sample cannot trip it.
	FailureRateThreshold float64

	// FailureRateWindow is the rolling window size in outcomes.
	FailureRateWindow int

	// RowDeltaMin and RowDeltaMax bound the number of records a run is
	// expected to move between states. RowDeltaMax = 0 disables the guard.
	RowDeltaMin int
	RowDeltaMax int

	// IdentityDriftThreshold trips when the fraction of replays that
	// attempt to change identity-bearing fields exceeds it. Fires only
	// after a minimum of driftMinReplays observations.
	IdentityDriftThreshold float64
}

// driftMinReplays is the minimum replay sample before the drift guard
// can fire.
const driftMinReplays = 4

// Governor is the shared kill-switch. One instance is injected into every
// pipeline component of a run; any guard tripping sets an atomic halted
// flag that all components check at entity boundaries.
//
// A trip HALTS the run. It never skips an entity and continues: skipping
// would silently hide exactly the anomaly the guard exists to surface.
//
// Thread-safety: the halted flag is atomic; window and replay counters are
// mutex-guarded. Halted() is the hot path and takes no lock.
type Governor struct {
	cfg GovernorConfig

	halted atomic.Bool

	mu       sync.Mutex
	window   []bool // ring of recent outcomes, true = invalid
	next     int
	filled   int
	failures int

	replays      int
	driftReplays int

	guard  string
	reason string
}

// NewGovernor creates a governor with the given thresholds.
func NewGovernor(cfg GovernorConfig) *Governor {
	if cfg.FailureRateWindow <= 0 {
		cfg.FailureRateWindow = 1
	}
	return &Governor{
		cfg:    cfg,
		window: make([]bool, cfg.FailureRateWindow),
	}
}

// Halted reports whether the kill-switch has tripped.
// Checked at entity boundaries; in-flight atomic writes complete.
func (g *Governor) Halted() bool {
	return g.halted.Load()
}

// TripReason returns the tripped guard and its reason, or empty strings
// if the governor has not tripped.
func (g *Governor) TripReason() (guard, reason string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.guard, g.reason
}

// HaltErr returns a HaltError describing the trip, or nil if not halted.
func (g *Governor) HaltErr() error {
	if !g.Halted() {
		return nil
	}
	guard, reason := g.TripReason()
	return &HaltError{Guard: guard, Reason: reason}
}

// ObserveOutcome records one evaluation outcome into the rolling window
// and trips the failure-rate guard when the window is full and the invalid
// fraction exceeds the threshold.
func (g *Governor) ObserveOutcome(valid bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.filled == len(g.window) {
		// Window full: the slot being overwritten falls out of the count.
		if g.window[g.next] {
			g.failures--
		}
	} else {
		g.filled++
	}
	g.window[g.next] = !valid
	if !valid {
		g.failures++
	}
	g.next = (g.next + 1) % len(g.window)

	if g.filled < len(g.window) {
		return
	}
	rate := float64(g.failures) / float64(g.filled)
	if rate > g.cfg.FailureRateThreshold {
		g.trip("failure_rate", fmt.Sprintf(
			"invalid rate %.2f over window of %d exceeds threshold %.2f",
			rate, g.filled, g.cfg.FailureRateThreshold))
	}
}

// ObserveReplayIdentity records one replay attempt and whether it tried to
// change identity-bearing fields, tripping the drift guard when the
// fraction exceeds the threshold.
func (g *Governor) ObserveReplayIdentity(identityChanged bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.replays++
	if identityChanged {
		g.driftReplays++
	}
	if g.replays < driftMinReplays {
		return
	}
	ratio := float64(g.driftReplays) / float64(g.replays)
	if ratio > g.cfg.IdentityDriftThreshold {
		g.trip("identity_drift", fmt.Sprintf(
			"%d of %d replays changed identity fields (ratio %.2f exceeds threshold %.2f)",
			g.driftReplays, g.replays, ratio, g.cfg.IdentityDriftThreshold))
	}
}

// CheckRowDelta validates the number of records moved during a pass
// against the configured expected range, tripping the row-delta guard
// when it falls outside.
func (g *Governor) CheckRowDelta(moved int) {
	if g.cfg.RowDeltaMax <= 0 {
		return
	}
	if moved >= g.cfg.RowDeltaMin && moved <= g.cfg.RowDeltaMax {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.trip("row_delta", fmt.Sprintf(
		"%d records moved, expected range [%d, %d]",
		moved, g.cfg.RowDeltaMin, g.cfg.RowDeltaMax))
}

// trip sets the halted flag and records the first trip's guard and reason.
// Callers must hold g.mu.
func (g *Governor) trip(guard, reason string) {
	if g.halted.Load() {
		return
	}
	g.guard = guard
	g.reason = reason
	g.halted.Store(true)
	slog.Error("kill-switch tripped", "guard", guard, "reason", reason)
}
