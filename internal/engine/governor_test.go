package engine

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/steward/internal/config"
)

func TestGovernorFailureRateNeedsFullWindow(t *testing.T) {
	g := NewGovernor(GovernorConfig{
		FailureRateThreshold: 0.5,
		FailureRateWindow:    4,
	})

	// Three failures on a window of four: not enough sample to trip.
	g.ObserveOutcome(false)
	g.ObserveOutcome(false)
	g.ObserveOutcome(false)
	assert.False(t, g.Halted())

	g.ObserveOutcome(false)
	assert.True(t, g.Halted())

	guard, reason := g.TripReason()
	assert.Equal(t, "failure_rate", guard)
	assert.NotEmpty(t, reason)
}

func TestGovernorFailureRateWindowRolls(t *testing.T) {
	g := NewGovernor(GovernorConfig{
		FailureRateThreshold: 0.5,
		FailureRateWindow:    4,
	})

	// Two old failures roll out of the window as valid outcomes arrive.
	g.ObserveOutcome(false)
	g.ObserveOutcome(false)
	g.ObserveOutcome(true)
	g.ObserveOutcome(true)
	assert.False(t, g.Halted(), "rate 0.5 does not exceed threshold 0.5")

	g.ObserveOutcome(true)
	g.ObserveOutcome(true)
	g.ObserveOutcome(false)
	assert.False(t, g.Halted(), "one failure in the last four")
}

func TestGovernorRowDelta(t *testing.T) {
	g := NewGovernor(GovernorConfig{RowDeltaMin: 2, RowDeltaMax: 10})

	g.CheckRowDelta(5)
	assert.False(t, g.Halted())

	g.CheckRowDelta(11)
	assert.True(t, g.Halted())
	guard, _ := g.TripReason()
	assert.Equal(t, "row_delta", guard)
}

func TestGovernorRowDeltaDisabledByDefault(t *testing.T) {
	g := NewGovernor(GovernorConfig{})
	g.CheckRowDelta(1_000_000)
	assert.False(t, g.Halted())
}

func TestGovernorIdentityDriftNeedsSample(t *testing.T) {
	g := NewGovernor(GovernorConfig{IdentityDriftThreshold: 0.25})

	// Below the minimum sample nothing trips, even at ratio 1.0.
	g.ObserveReplayIdentity(true)
	g.ObserveReplayIdentity(true)
	g.ObserveReplayIdentity(true)
	assert.False(t, g.Halted())

	g.ObserveReplayIdentity(false)
	assert.True(t, g.Halted(), "3 of 4 replays changed identity")
	guard, _ := g.TripReason()
	assert.Equal(t, "identity_drift", guard)
}

func TestGovernorFirstTripWins(t *testing.T) {
	g := NewGovernor(GovernorConfig{RowDeltaMax: 1, FailureRateThreshold: 0.5, FailureRateWindow: 1})

	g.CheckRowDelta(5)
	g.ObserveOutcome(false)

	guard, _ := g.TripReason()
	assert.Equal(t, "row_delta", guard)
}

func TestRunHaltsOnFailureRate(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 10; i++ {
		seedIntake(t, s, fmt.Sprintf("c-%02d", i), companyMissingIndustry(fmt.Sprintf("Company %02d", i)))
	}

	cfg := config.Default("company")
	cfg.Workers = 1 // deterministic trip point
	cfg.FailureRateWindow = 4
	cfg.FailureRateThreshold = 0.5
	e := newCompanyEngine(t, s, cfg)

	report, err := e.Run(ctx)
	require.NoError(t, err)

	// The fourth invalid outcome trips the guard. That entity's write
	// completes; no further entity is picked up.
	assert.Equal(t, StatusHalted, report.Status)
	assert.Equal(t, "failure_rate", report.HaltGuard)
	assert.Equal(t, 4, report.Quarantined)
	assert.Equal(t, 6, report.IntakeRemaining)

	counts, err := s.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 6, counts.Intake)
	assert.Equal(t, 4, counts.Quarantine)
}

func TestRunHaltsOnRowDelta(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		seedIntake(t, s, fmt.Sprintf("c-%02d", i), company(fmt.Sprintf("Company %02d", i)))
	}

	cfg := config.Default("company")
	cfg.RowDeltaMin = 0
	cfg.RowDeltaMax = 2
	e := newCompanyEngine(t, s, cfg)

	report, err := e.Run(ctx)
	require.NoError(t, err)

	// The intake pass itself completes; the delta check after it trips.
	assert.Equal(t, StatusHalted, report.Status)
	assert.Equal(t, "row_delta", report.HaltGuard)
	assert.Equal(t, 5, report.Promoted)
}

func TestReplayRejectedWhileHalted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	g := NewGovernor(GovernorConfig{RowDeltaMax: 1})
	g.CheckRowDelta(100)
	require.True(t, g.Halted())

	e := newCompanyEngine(t, s, config.Default("company"), WithGovernor(g))
	_, err := e.Replay(ctx, "c-01", map[string]string{"industry": "software"})
	require.Error(t, err)
	assert.True(t, IsHalted(err))
}
