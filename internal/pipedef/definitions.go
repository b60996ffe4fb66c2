package pipedef

import (
	streamyerrors "github.com/jsprague/orchestra/pkg/errors"
)

// sentinel is the reserved literal that marks a context entry's value for
// substitution from the document's top-level `definitions` map. It is a
// known limitation (not type-safe) that a legitimate scalar equal to this
// string is indistinguishable from a substitution request.
const sentinel = "$see definitions"

// ResolveDefinitions replaces every context entry whose value is the literal
// sentinel string with definitions[entry.Key], recursively across the
// pipeline context, every block context, and every script context. It runs
// once, before any flattening. A sentinel with no matching definitions entry
// is a fatal plan-time error.
func ResolveDefinitions(doc *Document) error {
	if err := resolveContext(doc.Context, doc.Definitions); err != nil {
		return err
	}

	for bi := range doc.Blocks {
		if err := resolveContext(doc.Blocks[bi].Context, doc.Definitions); err != nil {
			return err
		}
		for si := range doc.Blocks[bi].Scripts {
			if err := resolveContext(doc.Blocks[bi].Scripts[si].Context, doc.Definitions); err != nil {
				return err
			}
		}
	}

	return nil
}

func resolveContext(ctx Context, definitions map[string]interface{}) error {
	for i := range ctx {
		if !isSentinel(ctx[i].Value) {
			continue
		}

		value, ok := definitions[ctx[i].Key]
		if !ok {
			return streamyerrors.NewPlanError(ctx[i].Key, "no definitions entry for \"$see definitions\" reference", nil)
		}
		ctx[i].Value = value
	}
	return nil
}

func isSentinel(v interface{}) bool {
	s, ok := v.(string)
	return ok && s == sentinel
}
