package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalFields converts a field map to JSON TEXT for storage.
// Go's json.Marshal sorts map keys, so the stored form is deterministic -
// the same record always serializes to the same bytes.
func marshalFields(fields map[string]string) (string, error) {
	if fields == nil {
		fields = map[string]string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(fields); err != nil {
		return "", fmt.Errorf("marshal fields: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalFields parses JSON TEXT to a field map.
func unmarshalFields(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return map[string]string{}, nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(data), &fields); err != nil {
		return nil, fmt.Errorf("unmarshal fields: %w", err)
	}
	return fields, nil
}

// marshalReasons converts an ordered reason list to JSON TEXT.
// Order is preserved: reasons are stored exactly as the evaluator
// produced them.
func marshalReasons(reasons []string) (string, error) {
	if reasons == nil {
		reasons = []string{}
	}
	data, err := json.Marshal(reasons)
	if err != nil {
		return "", fmt.Errorf("marshal reasons: %w", err)
	}
	return string(data), nil
}

// unmarshalReasons parses JSON TEXT to an ordered reason list.
func unmarshalReasons(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return []string{}, nil
	}
	var reasons []string
	if err := json.Unmarshal([]byte(data), &reasons); err != nil {
		return nil, fmt.Errorf("unmarshal reasons: %w", err)
	}
	return reasons, nil
}
