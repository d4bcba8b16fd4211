// Package rules defines the validation contract the engine consumes.
//
// An Evaluator is a pure predicate over a record: no I/O, no side effects,
// deterministic. The engine never interprets why a rule failed beyond the
// reason strings it returns; reasons are opaque but must be stable (the same
// failure condition always yields the same string) to support automated
// triage of quarantined entities.
//
// Evaluators are selected per entity kind through a Registry at run start -
// a closed interface with one implementation per kind, no reflection.
package rules
