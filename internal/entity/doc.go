// Package entity defines the data model shared by every stage of the
// validation-promotion pipeline: records, validation outcomes, error rows,
// and the identity fingerprint used to detect identity-bearing changes.
//
// Types here are plain values with no store dependencies. Records are owned
// by the store; this package only describes their shape and lifecycle states.
package entity
