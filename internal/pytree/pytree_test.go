package pytree

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlattenUnflatten(t *testing.T) {
	tree := Tuple{1, Tuple{2, []any{3, 4}}, map[string]any{"b": 6, "a": 5}}

	leaves, spec := Flatten(tree)
	assert.Equal(t, []any{1, 2, 3, 4, 5, 6}, leaves)
	assert.Equal(t, 6, spec.NumLeaves())
	assert.Equal(t, "(*, (*, [*, *]), {a: *, b: *})", spec.String())

	back, err := spec.Unflatten(leaves)
	require.NoError(t, err)
	assert.Equal(t, tree, back)

	_, err = spec.Unflatten(leaves[:2])
	assert.Error(t, err)
}

func TestMapOnly(t *testing.T) {
	tree := []any{1, "x", Tuple{2, "y"}}
	out, err := MapOnly(tree, func(i int) (any, error) { return i * 10, nil })
	require.NoError(t, err)
	assert.Equal(t, []any{10, "x", Tuple{20, "y"}}, out)

	_, err = MapOnly(tree, func(s string) (any, error) { return nil, fmt.Errorf("boom %s", s) })
	assert.EqualError(t, err, "boom x")
}

func TestAnyAllOnly(t *testing.T) {
	tree := map[string]any{"a": 1, "b": []any{2, "s"}}
	assert.True(t, AnyOnly(tree, func(i int) bool { return i == 2 }))
	assert.False(t, AnyOnly(tree, func(i int) bool { return i > 2 }))
	assert.True(t, AllOnly(tree, func(i int) bool { return i > 0 }))
	// Vacuously true when no leaf has the type.
	assert.True(t, AllOnly(tree, func(float64) bool { return false }))
}

func TestSpecEqual(t *testing.T) {
	_, a := Flatten(Tuple{1, []any{2}})
	_, b := Flatten(Tuple{"x", []any{"y"}})
	_, c := Flatten([]any{1, []any{2}})
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}
