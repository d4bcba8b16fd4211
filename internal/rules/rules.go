package rules

import (
	"fmt"
	"sort"

	"github.com/roach88/steward/internal/entity"
)

// Evaluator validates a record against a doctrine rule set.
//
// Implementations must be pure and deterministic: identical input always
// yields identical output, and reason strings are stable per failure
// condition.
type Evaluator interface {
	Evaluate(rec entity.Record) entity.Outcome
}

// Registry maps entity kinds to their evaluators.
// Populated once at run start; reads are not synchronized.
type Registry struct {
	evaluators map[entity.Kind]Evaluator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[entity.Kind]Evaluator)}
}

// Register binds an evaluator to a kind, replacing any previous binding.
func (r *Registry) Register(kind entity.Kind, ev Evaluator) {
	r.evaluators[kind] = ev
}

// For returns the evaluator for a kind.
func (r *Registry) For(kind entity.Kind) (Evaluator, error) {
	ev, ok := r.evaluators[kind]
	if !ok {
		return nil, fmt.Errorf("no evaluator registered for kind %q", kind)
	}
	return ev, nil
}

// Kinds returns the registered kinds in sorted order.
func (r *Registry) Kinds() []entity.Kind {
	kinds := make([]entity.Kind, 0, len(r.evaluators))
	for k := range r.evaluators {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
