package doctrine

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/roach88/steward/internal/rules"
)

// CompileError reports a doctrine compilation failure with CUE position info.
type CompileError struct {
	Kind    string // entity kind being compiled, if known
	Field   string // doctrine field at fault ("required", "allowed", ...)
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	prefix := "doctrine"
	if e.Kind != "" {
		prefix = fmt.Sprintf("doctrine.%s", e.Kind)
	}
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s.%s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), prefix, e.Field, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", prefix, e.Field, e.Message)
}

// CompileRuleSet parses one kind's doctrine struct into a FieldSet.
//
// The CUE value should be the per-kind struct, e.g. the value at
// doctrine.company. required is mandatory and must be a non-empty list of
// strings; allowed is optional.
func CompileRuleSet(kind string, v cue.Value) (*rules.FieldSet, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Kind: kind, Field: "", Message: err.Error(), Pos: v.Pos()}
	}

	fs := &rules.FieldSet{}

	requiredVal := v.LookupPath(cue.ParsePath("required"))
	if !requiredVal.Exists() {
		return nil, &CompileError{Kind: kind, Field: "required", Message: "required field list is mandatory", Pos: v.Pos()}
	}
	required, err := stringList(requiredVal)
	if err != nil {
		return nil, &CompileError{Kind: kind, Field: "required", Message: err.Error(), Pos: requiredVal.Pos()}
	}
	if len(required) == 0 {
		return nil, &CompileError{Kind: kind, Field: "required", Message: "at least one required field is needed", Pos: requiredVal.Pos()}
	}
	fs.Required = required

	allowedVal := v.LookupPath(cue.ParsePath("allowed"))
	if allowedVal.Exists() {
		fs.Allowed = make(map[string][]string)
		iter, err := allowedVal.Fields()
		if err != nil {
			return nil, &CompileError{Kind: kind, Field: "allowed", Message: err.Error(), Pos: allowedVal.Pos()}
		}
		for iter.Next() {
			name := iter.Label()
			values, err := stringList(iter.Value())
			if err != nil {
				return nil, &CompileError{Kind: kind, Field: "allowed." + name, Message: err.Error(), Pos: iter.Value().Pos()}
			}
			fs.Allowed[name] = values
			fs.AllowedOrder = append(fs.AllowedOrder, name)
		}
	}

	return fs, nil
}

// stringList extracts a CUE list of strings.
func stringList(v cue.Value) ([]string, error) {
	iter, err := v.List()
	if err != nil {
		return nil, fmt.Errorf("expected a list of strings: %w", err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, fmt.Errorf("expected a string element: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
