package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/steward/internal/entity"
)

// FieldSet is a declarative rule set over record fields:
// required fields must be present and non-empty, and fields listed in
// Allowed must take one of the enumerated values when present.
//
// Evaluation order follows declaration order, so reason ordering is stable
// for a given rule set.
type FieldSet struct {
	// Required fields must be present with a non-blank value.
	Required []string

	// Allowed restricts a field to an enumerated value set.
	// Checked only when the field is present and non-blank.
	Allowed map[string][]string

	// AllowedOrder fixes the evaluation order of Allowed checks.
	// When empty, Allowed keys are checked in sorted order.
	AllowedOrder []string
}

// Evaluate implements Evaluator. Pure: reads the record, returns an outcome.
func (f FieldSet) Evaluate(rec entity.Record) entity.Outcome {
	var reasons []string

	for _, name := range f.Required {
		if strings.TrimSpace(rec.Fields[name]) == "" {
			reasons = append(reasons, fmt.Sprintf("missing required field: %s", name))
		}
	}

	for _, name := range f.allowedOrder() {
		value := strings.TrimSpace(rec.Fields[name])
		if value == "" {
			continue
		}
		if !contains(f.Allowed[name], value) {
			reasons = append(reasons, fmt.Sprintf("field %s has disallowed value: %s", name, value))
		}
	}

	return entity.Outcome{Valid: len(reasons) == 0, Reasons: reasons}
}

func (f FieldSet) allowedOrder() []string {
	if len(f.AllowedOrder) > 0 {
		return f.AllowedOrder
	}
	names := make([]string, 0, len(f.Allowed))
	for name := range f.Allowed {
		names = append(names, name)
	}
	// Sorted fallback keeps reason order deterministic across runs.
	sort.Strings(names)
	return names
}

func contains(values []string, v string) bool {
	for _, x := range values {
		if x == v {
			return true
		}
	}
	return false
}
