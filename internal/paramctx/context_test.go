package paramctx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jsprague/orchestra/internal/pipedef"
)

func ctx(entries ...pipedef.ContextEntry) pipedef.Context {
	return pipedef.Context(entries)
}

func TestFlattenScalarProducesSingleInstance(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(pipedef.ContextEntry{Key: "env", Value: "prod"}), Options{})

	require.NoError(t, err)
	require.Equal(t, []FlatContext{{"env": "prod"}}, out)
}

func TestFlattenListMultipliesCardinality(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "region", Value: []interface{}{"us", "eu", "apac"}},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 3)

	var regions []interface{}
	for _, inst := range out {
		regions = append(regions, inst["region"])
	}
	require.ElementsMatch(t, []interface{}{"us", "eu", "apac"}, regions)
}

func TestFlattenRangeMultipliesCardinality(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "shard", Value: map[string]interface{}{"start": 0, "end": 3}},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 0, out[0]["shard"])
	require.Equal(t, 1, out[1]["shard"])
	require.Equal(t, 2, out[2]["shard"])
}

func TestFlattenRangeWithNegativeStep(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "countdown", Value: map[string]interface{}{"start": 3, "end": 0, "step": -1}},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 3)
	require.Equal(t, 3, out[0]["countdown"])
	require.Equal(t, 2, out[1]["countdown"])
	require.Equal(t, 1, out[2]["countdown"])
}

func TestFlattenMultipleEntriesCrossMultiply(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "region", Value: []interface{}{"us", "eu"}},
		pipedef.ContextEntry{Key: "shard", Value: map[string]interface{}{"start": 0, "end": 2}},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 4)
}

func TestFlattenPairedKeyUnpacksMatchingArity(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "host,port", Value: "a,1"},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "a", out[0]["host"])
	require.Equal(t, "1", out[0]["port"], "paired values stay strings, not ints")
}

func TestFlattenPairedKeyListZipsEachElement(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "host,port", Value: []interface{}{"a,1", "b,2"}},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Equal(t, "a", out[0]["host"])
	require.Equal(t, "1", out[0]["port"])
	require.Equal(t, "b", out[1]["host"])
	require.Equal(t, "2", out[1]["port"])
}

func TestFlattenPairedKeyArityMismatchZipsShortestByDefault(t *testing.T) {
	t.Parallel()

	out, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "host,port,proto", Value: "a,1"},
	), Options{})

	require.NoError(t, err)
	require.Len(t, out, 1)
	require.Equal(t, "a", out[0]["host"])
	require.Equal(t, "1", out[0]["port"])
	_, hasProto := out[0]["proto"]
	require.False(t, hasProto)
}

func TestFlattenPairedKeyArityMismatchFailsWhenStrict(t *testing.T) {
	t.Parallel()

	_, err := Flatten(ctx(
		pipedef.ContextEntry{Key: "host,port,proto", Value: "a,1"},
	), Options{StrictPairing: true})

	require.Error(t, err)
}

func TestMergeCrossMultipliesCardinality(t *testing.T) {
	t.Parallel()

	a := []FlatContext{{"region": "us"}, {"region": "eu"}}
	b := []FlatContext{{"shard": 0}, {"shard": 1}, {"shard": 2}}

	out := Merge(a, b)

	require.Len(t, out, 6)
}

func TestMergeRightBiasOnKeyCollision(t *testing.T) {
	t.Parallel()

	a := []FlatContext{{"env": "staging"}}
	b := []FlatContext{{"env": "prod"}}

	out := Merge(a, b)

	require.Len(t, out, 1)
	require.Equal(t, "prod", out[0]["env"])
}

func TestMergeWithEmptyOperandYieldsEmpty(t *testing.T) {
	t.Parallel()

	a := []FlatContext{}
	b := []FlatContext{{"shard": 0}}

	out := Merge(a, b)

	require.Empty(t, out)
}

func TestCanonicalIsDeterministicAcrossKeyInsertionOrder(t *testing.T) {
	t.Parallel()

	first := FlatContext{"b": 1, "a": 2}
	second := FlatContext{"a": 2, "b": 1}

	require.Equal(t, first.Canonical(), second.Canonical())
}
