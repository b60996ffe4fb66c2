package pipedef

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ContextEntry is one (key, value-spec) pair from a decoded Context mapping.
// Value holds whatever the YAML/JSON decoder produced: a scalar
// (string/int/float64/bool), a list ([]interface{}), or a range spec
// (map[string]interface{} with start/end/step keys).
type ContextEntry struct {
	Key   string
	Value interface{}
}

// Context is an ordered mapping from parameter key to value-spec. Order is
// significant: flatten() walks entries in document order, and determinism of
// the resulting expansion depends on that order being preserved, so Context
// decodes the underlying YAML mapping node directly instead of going through
// a plain Go map.
type Context []ContextEntry

// UnmarshalYAML preserves mapping key order, which encoding into a Go map
// would otherwise discard.
func (c *Context) UnmarshalYAML(value *yaml.Node) error {
	if value == nil || value.Kind == 0 {
		*c = nil
		return nil
	}
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("context must be a mapping, got kind %d", value.Kind)
	}

	entries := make(Context, 0, len(value.Content)/2)
	for i := 0; i+1 < len(value.Content); i += 2 {
		keyNode := value.Content[i]
		valNode := value.Content[i+1]

		var v interface{}
		if err := valNode.Decode(&v); err != nil {
			return fmt.Errorf("context key %q: %w", keyNode.Value, err)
		}
		entries = append(entries, ContextEntry{Key: keyNode.Value, Value: v})
	}

	*c = entries
	return nil
}

// RangeSpec is a half-open integer range [Start, End) stepping by Step
// (default 1), decoded from a mapping value-spec such as
// {start: 0, end: 3} or {start: 0, end: 10, step: 2}.
type RangeSpec struct {
	Start int
	End   int
	Step  int
}

// AsRange reports whether v decodes as a RangeSpec (a mapping carrying both
// "start" and "end" keys) and returns it.
func AsRange(v interface{}) (RangeSpec, bool) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return RangeSpec{}, false
	}
	startRaw, hasStart := m["start"]
	endRaw, hasEnd := m["end"]
	if !hasStart || !hasEnd {
		return RangeSpec{}, false
	}

	start, ok := asInt(startRaw)
	if !ok {
		return RangeSpec{}, false
	}
	end, ok := asInt(endRaw)
	if !ok {
		return RangeSpec{}, false
	}
	step := 1
	if stepRaw, ok := m["step"]; ok {
		if s, ok := asInt(stepRaw); ok && s != 0 {
			step = s
		}
	}

	return RangeSpec{Start: start, End: end, Step: step}, true
}

// AsList reports whether v decodes as an ordered value list.
func AsList(v interface{}) ([]interface{}, bool) {
	list, ok := v.([]interface{})
	return list, ok
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}
