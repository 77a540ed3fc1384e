// Package symbolic provides symbolic integers and floats for dynamic shape
// tracing, together with a small ShapeEnv that allocates shape variables.
//
// The package does not solve shape expressions. Expressions are kept as
// readable strings with a concrete hint taken from the example inputs, which
// is all the tracer needs to build graphs and for downstream consumers to
// inspect them.
package symbolic

import (
	"fmt"
	"strconv"

	"github.com/born-ml/fxtrace/internal/slot"
)

// SymInt is a symbolic integer. It is a tracked value: tracers associate
// graph handles with it.
type SymInt struct {
	slot.Ident

	expr     string
	hint     int64
	constant bool
	env      *ShapeEnv
}

func newSymInt(env *ShapeEnv, expr string, hint int64, constant bool) *SymInt {
	s := &SymInt{expr: expr, hint: hint, constant: constant, env: env}
	s.Ident = slot.NewIdent(s)
	return s
}

// ConstInt returns a SymInt statically known to equal v.
func ConstInt(env *ShapeEnv, v int64) *SymInt {
	return newSymInt(env, strconv.FormatInt(v, 10), v, true)
}

// Expr returns the symbolic expression, e.g. "(s0 * 2)".
func (s *SymInt) Expr() string { return s.expr }

// Hint returns the value the expression takes for the example inputs.
func (s *SymInt) Hint() int64 { return s.hint }

// Constant returns the value of s when it is statically known.
func (s *SymInt) Constant() (int64, bool) {
	return s.hint, s.constant
}

// Env returns the shape environment that allocated s (nil for free constants).
func (s *SymInt) Env() *ShapeEnv { return s.env }

func (s *SymInt) String() string {
	return "SymInt(" + s.expr + ")"
}

// SymFloat is a symbolic float.
type SymFloat struct {
	slot.Ident

	expr     string
	hint     float64
	constant bool
	env      *ShapeEnv
}

func newSymFloat(env *ShapeEnv, expr string, hint float64, constant bool) *SymFloat {
	s := &SymFloat{expr: expr, hint: hint, constant: constant, env: env}
	s.Ident = slot.NewIdent(s)
	return s
}

// Expr returns the symbolic expression.
func (s *SymFloat) Expr() string { return s.expr }

// Hint returns the value for the example inputs.
func (s *SymFloat) Hint() float64 { return s.hint }

// Constant returns the value of s when it is statically known.
func (s *SymFloat) Constant() (float64, bool) {
	return s.hint, s.constant
}

func (s *SymFloat) String() string {
	return "SymFloat(" + s.expr + ")"
}

// Int is either a concrete integer or a *SymInt.
// The zero value is the concrete 0.
type Int struct {
	sym *SymInt
	v   int64
}

// Concrete wraps a plain integer.
func Concrete(v int64) Int { return Int{v: v} }

// Symbolic wraps a symbolic integer. A nil s yields the concrete 0.
func Symbolic(s *SymInt) Int {
	if s == nil {
		return Int{}
	}
	return Int{sym: s, v: s.hint}
}

// IntOf converts int, int64 or *SymInt into an Int.
func IntOf(v any) (Int, error) {
	switch x := v.(type) {
	case Int:
		return x, nil
	case int:
		return Concrete(int64(x)), nil
	case int64:
		return Concrete(x), nil
	case *SymInt:
		return Symbolic(x), nil
	default:
		return Int{}, fmt.Errorf("symbolic: %T is not an integer", v)
	}
}

// IsSymbolic reports whether i carries a *SymInt.
func (i Int) IsSymbolic() bool { return i.sym != nil }

// Sym returns the symbolic integer, or nil for concrete values.
func (i Int) Sym() *SymInt { return i.sym }

// Hint returns the concrete value, or the hint of a symbolic one.
func (i Int) Hint() int64 { return i.v }

// Value returns the dispatchable representation: *SymInt or int64.
func (i Int) Value() any {
	if i.sym != nil {
		return i.sym
	}
	return i.v
}

func (i Int) String() string {
	if i.sym != nil {
		return i.sym.expr
	}
	return strconv.FormatInt(i.v, 10)
}

// known returns the statically known value of i.
func (i Int) known() (int64, bool) {
	if i.sym == nil {
		return i.v, true
	}
	return i.sym.Constant()
}

// Same reports whether a and b are provably equal without solving.
func Same(a, b Int) bool {
	av, aok := a.known()
	bv, bok := b.known()
	if aok && bok {
		return av == bv
	}
	if a.sym != nil && b.sym != nil {
		return a.sym == b.sym || a.sym.expr == b.sym.expr
	}
	return false
}
