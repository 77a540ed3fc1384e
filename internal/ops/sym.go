package ops

import (
	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
)

// Arithmetic on sizes. Operands are int, int64 or symbolic scalars; results
// are symbolic when an operand is.

// SymAdd returns a + b.
func SymAdd(c *dispatch.Context, a, b any) (any, error) {
	return c.SymCall(catalog.SymAdd, []any{a, b}, nil)
}

// SymSub returns a - b.
func SymSub(c *dispatch.Context, a, b any) (any, error) {
	return c.SymCall(catalog.SymSub, []any{a, b}, nil)
}

// SymMul returns a * b.
func SymMul(c *dispatch.Context, a, b any) (any, error) {
	return c.SymCall(catalog.SymMul, []any{a, b}, nil)
}

// SymFloorDiv returns a // b.
func SymFloorDiv(c *dispatch.Context, a, b any) (any, error) {
	return c.SymCall(catalog.SymFloorDiv, []any{a, b}, nil)
}

// SymFloat converts an integer to a float.
func SymFloat(c *dispatch.Context, a any) (any, error) {
	return c.SymCall(catalog.SymFloat, []any{a}, nil)
}

// SymTrueDiv returns a / b as a float.
func SymTrueDiv(c *dispatch.Context, a, b any) (any, error) {
	return c.SymCall(catalog.SymTrueDiv, []any{a, b}, nil)
}
