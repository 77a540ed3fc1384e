package tensor

import (
	"fmt"
	"slices"
)

// Shape is a concrete tensor shape. Symbolic tensors carry example sizes here
// and their symbols in Meta.Sym.
type Shape []int

// NumElements returns the element count; 1 for a scalar.
func (s Shape) NumElements() int {
	n := 1
	for _, dim := range s {
		n *= dim
	}
	return n
}

// Validate rejects negative dimensions. Zero-sized dimensions are allowed.
func (s Shape) Validate() error {
	if i := slices.IndexFunc(s, func(d int) bool { return d < 0 }); i >= 0 {
		return fmt.Errorf("invalid dimension at index %d: %d (must be >= 0)", i, s[i])
	}
	return nil
}

// Equal reports whether both shapes have the same dimensions.
func (s Shape) Equal(other Shape) bool {
	return slices.Equal(s, other)
}

// Clone returns a copy of the shape that never aliases s, even when s is
// empty.
func (s Shape) Clone() Shape {
	return append(make(Shape, 0, len(s)), s...)
}

// ComputeStrides returns the row-major strides of a contiguous buffer.
func (s Shape) ComputeStrides() []int {
	strides := make([]int, len(s))
	acc := 1
	for i := len(s) - 1; i >= 0; i-- {
		strides[i] = acc
		acc *= s[i]
	}
	return strides
}

// dimFromRight returns the i-th dimension counted from the last one, or 1
// past the front of the shape.
func (s Shape) dimFromRight(i int) int {
	if i >= len(s) {
		return 1
	}
	return s[len(s)-1-i]
}

// BroadcastShapes aligns a and b from the right: equal dims are kept, a dim
// of 1 stretches to the other side, missing dims count as 1. The flag reports
// whether either operand needs expanding.
//
//	(3, 1) + (3, 5) → (3, 5), true
//	(3, 5) + (3, 5) → (3, 5), false
//	(3, 4) + (3, 5) → error
func BroadcastShapes(a, b Shape) (Shape, bool, error) {
	n := max(len(a), len(b))
	out := make(Shape, n)
	expand := len(a) != len(b)

	for i := range n {
		da, db := a.dimFromRight(i), b.dimFromRight(i)
		switch {
		case da == db:
			out[n-1-i] = da
		case da == 1:
			out[n-1-i], expand = db, true
		case db == 1:
			out[n-1-i], expand = da, true
		default:
			return nil, false, fmt.Errorf("shapes not compatible for broadcasting: %v vs %v (dimension %d: %d vs %d)",
				a, b, n-1-i, da, db)
		}
	}
	return out, expand, nil
}
