package entity

import "time"

// Kind identifies the entity type a record belongs to.
// Rule sets and doctrine files are keyed by Kind.
type Kind string

const (
	KindCompany Kind = "company"
	KindPerson  Kind = "person"
)

// State is the lifecycle state a record lives in.
// A record is in exactly one state at a time.
type State string

const (
	StateIntake     State = "intake"
	StateMaster     State = "master"
	StateQuarantine State = "quarantine"
)

// Record is a business-entity record: a mapping from field name to value,
// keyed by a stable business identifier assigned once at creation.
//
// The identifier is never reassigned and never reused. Only the store
// moves records between states; everything else treats Record as a value.
type Record struct {
	ID     string            `json:"id"`
	Kind   Kind              `json:"kind"`
	Fields map[string]string `json:"fields"`
}

// Clone returns a deep copy of the record.
// Workers mutate enriched copies, never the original.
func (r Record) Clone() Record {
	fields := make(map[string]string, len(r.Fields))
	for k, v := range r.Fields {
		fields[k] = v
	}
	return Record{ID: r.ID, Kind: r.Kind, Fields: fields}
}

// Field returns the value for a field name, or "" if absent.
func (r Record) Field(name string) string {
	return r.Fields[name]
}

// Outcome is the result of one rule evaluation. It is ephemeral: only its
// consequence (promotion or an error row) is ever persisted.
//
// Reasons are ordered and stable: the same failure condition always yields
// the same reason string, which automated triage depends on.
type Outcome struct {
	Valid   bool
	Reasons []string
}

// ErrorStatus is the lifecycle status of an error row.
//
// Legal transitions: open → chronic, open → replayed, chronic → replayed.
// Everything else on an error row is immutable after the append.
type ErrorStatus string

const (
	StatusOpen     ErrorStatus = "open"
	StatusChronic  ErrorStatus = "chronic"
	StatusReplayed ErrorStatus = "replayed"
)

// ValidTransition reports whether status may transition to next.
func (s ErrorStatus) ValidTransition(next ErrorStatus) bool {
	switch s {
	case StatusOpen:
		return next == StatusChronic || next == StatusReplayed
	case StatusChronic:
		return next == StatusReplayed
	default:
		return false
	}
}

// ErrorRow is one immutable entry in an entity's error trail.
//
// Once written, Reasons, Attempt, and CreatedAt never change; only Status
// may transition. A new failed cycle always appends a new row.
type ErrorRow struct {
	ID        string      `json:"error_id"`
	EntityID  string      `json:"entity_id"`
	Reasons   []string    `json:"reasons"`
	Attempt   int         `json:"attempt_number"`
	CreatedAt time.Time   `json:"created_at"`
	Status    ErrorStatus `json:"status"`
}
