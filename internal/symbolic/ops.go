package symbolic

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrDivisionByZero is returned by floor and true division.
var ErrDivisionByZero = errors.New("symbolic: division by zero")

// IntOp is a binary integer operation.
type IntOp int

// Integer operations.
const (
	OpAdd IntOp = iota
	OpSub
	OpMul
	OpFloorDiv
)

func (o IntOp) String() string {
	switch o {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpFloorDiv:
		return "//"
	default:
		return "?"
	}
}

func evalInt(op IntOp, a, b int64) (int64, error) {
	switch op {
	case OpAdd:
		return a + b, nil
	case OpSub:
		return a - b, nil
	case OpMul:
		return a * b, nil
	case OpFloorDiv:
		if b == 0 {
			return 0, ErrDivisionByZero
		}
		q := a / b
		if (a%b != 0) && ((a < 0) != (b < 0)) {
			q--
		}
		return q, nil
	default:
		return 0, fmt.Errorf("symbolic: unknown integer op %d", op)
	}
}

// ApplyInt evaluates a op b. Operands are int, int64 or *SymInt. Two concrete
// operands give an int64; otherwise the result is a *SymInt, constant when
// both operands are statically known.
func ApplyInt(op IntOp, a, b any) (any, error) {
	x, err := IntOf(a)
	if err != nil {
		return nil, err
	}
	y, err := IntOf(b)
	if err != nil {
		return nil, err
	}

	hint, err := evalInt(op, x.Hint(), y.Hint())
	if err != nil {
		return nil, err
	}
	if !x.IsSymbolic() && !y.IsSymbolic() {
		return hint, nil
	}

	env := envOf(x, y)
	_, xk := x.known()
	_, yk := y.known()
	if xk && yk {
		return ConstInt(env, hint), nil
	}
	return newSymInt(env, "("+x.String()+" "+op.String()+" "+y.String()+")", hint, false), nil
}

// ToFloat converts an integer operand to a float. *SymInt yields *SymFloat.
func ToFloat(a any) (any, error) {
	x, err := IntOf(a)
	if err != nil {
		return nil, err
	}
	if !x.IsSymbolic() {
		return float64(x.v), nil
	}
	_, known := x.known()
	return newSymFloat(x.sym.env, "float("+x.String()+")", float64(x.Hint()), known), nil
}

// TrueDiv divides two numeric operands (int, int64, float64, *SymInt,
// *SymFloat). The result is a *SymFloat when any operand is symbolic.
func TrueDiv(a, b any) (any, error) {
	xa, xs, xsym, xenv, err := floatOperand(a)
	if err != nil {
		return nil, err
	}
	ya, ys, ysym, yenv, err := floatOperand(b)
	if err != nil {
		return nil, err
	}
	if ya == 0 {
		return nil, ErrDivisionByZero
	}
	hint := xa / ya
	if !xsym && !ysym {
		return hint, nil
	}
	env := xenv
	if env == nil {
		env = yenv
	}
	return newSymFloat(env, "("+xs+" / "+ys+")", hint, false), nil
}

func floatOperand(v any) (float64, string, bool, *ShapeEnv, error) {
	switch x := v.(type) {
	case float64:
		return x, strconv.FormatFloat(x, 'g', -1, 64), false, nil, nil
	case *SymFloat:
		if c, ok := x.Constant(); ok {
			return c, x.expr, false, x.env, nil
		}
		return x.hint, x.expr, true, x.env, nil
	case *SymInt:
		if c, ok := x.Constant(); ok {
			return float64(c), x.expr, false, x.env, nil
		}
		return float64(x.hint), x.expr, true, x.env, nil
	default:
		i, err := IntOf(v)
		if err != nil {
			return 0, "", false, nil, fmt.Errorf("symbolic: %T is not numeric", v)
		}
		return float64(i.v), i.String(), false, nil, nil
	}
}

func envOf(xs ...Int) *ShapeEnv {
	for _, x := range xs {
		if x.sym != nil && x.sym.env != nil {
			return x.sym.env
		}
	}
	return nil
}

// Broadcast applies NumPy broadcasting to symbolic sizes. Two different
// symbols are assumed equal and the assumption is recorded as a guard.
func Broadcast(a, b []Int) ([]Int, error) {
	n := max(len(a), len(b))
	out := make([]Int, n)
	for i := 0; i < n; i++ {
		ad, bd := Concrete(1), Concrete(1)
		if j := len(a) - n + i; j >= 0 {
			ad = a[j]
		}
		if j := len(b) - n + i; j >= 0 {
			bd = b[j]
		}

		switch {
		case Same(ad, bd):
			out[i] = ad
		case isOne(ad):
			out[i] = bd
		case isOne(bd):
			out[i] = ad
		case ad.IsSymbolic() || bd.IsSymbolic():
			if ad.Hint() != bd.Hint() {
				return nil, fmt.Errorf("symbolic: sizes %s and %s cannot broadcast (hints %d vs %d)",
					ad, bd, ad.Hint(), bd.Hint())
			}
			if env := envOf(ad, bd); env != nil {
				env.addGuard(ad.String() + " == " + bd.String())
			}
			if ad.IsSymbolic() {
				out[i] = ad
			} else {
				out[i] = bd
			}
		default:
			return nil, fmt.Errorf("symbolic: sizes %s and %s cannot broadcast", ad, bd)
		}
	}
	return out, nil
}

func isOne(i Int) bool {
	v, ok := i.known()
	return ok && v == 1
}

// Product multiplies sizes, returning the concrete 1 for an empty list.
func Product(sizes []Int) (Int, error) {
	acc := any(int64(1))
	for _, s := range sizes {
		v, err := ApplyInt(OpMul, acc, s)
		if err != nil {
			return Int{}, err
		}
		acc = v
	}
	return IntOf(acc)
}
