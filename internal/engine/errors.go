package engine

import (
	"errors"
	"fmt"
)

// ErrIdentityChange is returned by Replay when the corrected fields would
// change an identity-bearing field. The stable identifier and the fields
// it is derived from are never rewritten through replay; such a change is
// a new entity, not a correction.
var ErrIdentityChange = errors.New("correction changes identity-bearing fields")

// ErrNotQuarantined is returned by Replay when the entity has no
// quarantine entry. Replay only operates on quarantined records.
var ErrNotQuarantined = errors.New("entity is not in quarantine")

// HaltError is returned when the kill-switch governor has tripped.
//
// It carries the guard that fired and a human-readable reason. Work
// already written before the trip stays written; the error only means no
// further entity was picked up.
type HaltError struct {
	// Guard identifies the tripped guard: "failure_rate", "row_delta",
	// or "identity_drift".
	Guard string

	// Reason is a human-readable description with the observed values.
	Reason string
}

// Error implements the error interface.
func (e *HaltError) Error() string {
	return fmt.Sprintf("run halted by %s guard: %s", e.Guard, e.Reason)
}

// IsHalted returns true if the error is a governor halt.
// Uses errors.As to handle wrapped errors.
func IsHalted(err error) bool {
	var he *HaltError
	return errors.As(err, &he)
}
