// Package paramctx implements the context expander: flattening a Context
// into the cartesian product of its parameter assignments, and merging two
// flattened lists to compose pipeline/block/script scoping.
package paramctx

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/jsprague/orchestra/internal/pipedef"
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

// FlatContext is a fully-expanded mapping from parameter key to scalar
// value. Values carry whatever Go type the decoder produced for them
// (string, int, float64, bool).
type FlatContext map[string]interface{}

// Clone returns a shallow copy, safe to mutate independently of the
// original.
func (f FlatContext) Clone() FlatContext {
	out := make(FlatContext, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Canonical renders the FlatContext as indented JSON with keys in sorted
// order (encoding/json already sorts map keys), matching the textual
// rendering used for both Executable identity and hashing.
func (f FlatContext) Canonical() string {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		// FlatContext values only ever come from decoded YAML/JSON scalars,
		// which always marshal; a failure here indicates a caller injected
		// an unsupported type directly.
		panic(fmt.Sprintf("paramctx: context is not JSON-encodable: %v", err))
	}
	return string(data)
}

// Options controls edge-case behavior of flatten/unpair that the source
// implementation leaves ambiguous (spec Open Question (a)).
type Options struct {
	// StrictPairing causes a paired key/value arity mismatch to fail the
	// plan instead of silently zip-shortest-ing the extra components.
	StrictPairing bool
}

// Flatten expands a Context into the cartesian product of its list and
// range leaves, honoring paired-key unpacking. See spec §4.1.
func Flatten(ctx pipedef.Context, opts Options) ([]FlatContext, error) {
	instances := []FlatContext{{}}

	for _, entry := range ctx {
		key, val := entry.Key, entry.Value

		switch {
		case isList(val):
			list, _ := pipedef.AsList(val)
			next := make([]FlatContext, 0, len(instances)*len(list))
			for _, v := range list {
				pairs, err := unpair(key, v, opts.StrictPairing)
				if err != nil {
					return nil, streamyerrors.NewPlanError(key, err.Error(), err)
				}
				for _, inst := range instances {
					next = append(next, extend(inst, pairs))
				}
			}
			instances = next

		case isRange(val):
			rs, _ := pipedef.AsRange(val)
			values := rangeValues(rs)
			next := make([]FlatContext, 0, len(instances)*len(values))
			for _, i := range values {
				for _, inst := range instances {
					c := inst.Clone()
					c[key] = i
					next = append(next, c)
				}
			}
			instances = next

		default:
			pairs, err := unpair(key, val, opts.StrictPairing)
			if err != nil {
				return nil, streamyerrors.NewPlanError(key, err.Error(), err)
			}
			for i := range instances {
				instances[i] = extend(instances[i], pairs)
			}
		}
	}

	return instances, nil
}

// Merge computes the cartesian cross of two flattened lists. On key
// collision within a pair, b's value wins (right-bias), which is how
// pipeline/block/script scoping composes.
func Merge(a, b []FlatContext) []FlatContext {
	out := make([]FlatContext, 0, len(a)*len(b))
	for _, ai := range a {
		for _, bi := range b {
			out = append(out, extend(ai, bi))
		}
	}
	return out
}

func extend(base FlatContext, additions map[string]interface{}) FlatContext {
	out := base.Clone()
	for k, v := range additions {
		out[k] = v
	}
	return out
}

func isList(v interface{}) bool {
	_, ok := pipedef.AsList(v)
	return ok
}

func isRange(v interface{}) bool {
	_, ok := pipedef.AsRange(v)
	return ok
}

func rangeValues(rs pipedef.RangeSpec) []int {
	var out []int
	switch {
	case rs.Step > 0:
		for i := rs.Start; i < rs.End; i += rs.Step {
			out = append(out, i)
		}
	case rs.Step < 0:
		for i := rs.Start; i > rs.End; i += rs.Step {
			out = append(out, i)
		}
	}
	return out
}

// unpair expands a (possibly paired) key/value into one or more scalar
// assignments. A paired key names multiple parameters via the reserved
// delimiter ','; the value must be a paired scalar string using the same
// delimiter, zipped positionally. Mismatched arity drops the excess
// components (zip-shortest) unless strict is set, in which case it fails
// loudly instead.
func unpair(key string, val interface{}, strict bool) (map[string]interface{}, error) {
	if !strings.Contains(key, ",") {
		return map[string]interface{}{key: val}, nil
	}

	valStr, ok := val.(string)
	if !ok {
		return nil, fmt.Errorf("paired key %q requires a paired string value, got %T", key, val)
	}

	keys := splitTrim(key)
	vals := splitTrim(valStr)

	if strict && len(keys) != len(vals) {
		return nil, fmt.Errorf("paired key %q has arity %d but value %q has arity %d", key, len(keys), valStr, len(vals))
	}

	n := len(keys)
	if len(vals) < n {
		n = len(vals)
	}

	out := make(map[string]interface{}, n)
	for i := 0; i < n; i++ {
		out[keys[i]] = vals[i]
	}
	return out, nil
}

func splitTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.TrimSpace(p)
	}
	return out
}

// SortedKeys returns f's keys in ascending order, useful for deterministic
// iteration when logging or rendering a FlatContext.
func (f FlatContext) SortedKeys() []string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
