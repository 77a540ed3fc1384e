package catalog

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

func tensorArg(op string, args []any, i int) (*tensor.Tensor, error) {
	if i >= len(args) {
		return nil, errors.Errorf("%s: missing argument %d", op, i)
	}
	t, ok := args[i].(*tensor.Tensor)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "%s: argument %d is %T, not a tensor", op, i, args[i])
	}
	return t, nil
}

// optionalTensorArg returns nil when argument i is absent or nil.
func optionalTensorArg(op string, args []any, i int) (*tensor.Tensor, error) {
	if i >= len(args) || args[i] == nil {
		return nil, nil
	}
	return tensorArg(op, args, i)
}

func intArg(op string, args []any, kwargs map[string]any, i int, name string, def int) (int, error) {
	v, ok := kwargs[name]
	if !ok {
		if i >= len(args) {
			return def, nil
		}
		v = args[i]
	}
	n, err := symbolic.IntOf(v)
	if err != nil {
		return 0, errors.Wrapf(err, "%s: %s", op, name)
	}
	return int(n.Hint()), nil
}

// scalarValue returns the example value of a Go or symbolic number.
func scalarValue(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case *symbolic.SymInt:
		return float64(x.Hint()), true
	case *symbolic.SymFloat:
		return x.Hint(), true
	default:
		return 0, false
	}
}

func sizesArg(op string, v any) ([]symbolic.Int, error) {
	var items []any
	switch s := v.(type) {
	case []any:
		items = s
	case []int:
		for _, d := range s {
			items = append(items, d)
		}
	case []symbolic.Int:
		return s, nil
	case tensor.Shape:
		for _, d := range s {
			items = append(items, d)
		}
	default:
		return nil, errors.Errorf("%s: sizes must be a list, got %T", op, v)
	}

	sizes := make([]symbolic.Int, len(items))
	for i, item := range items {
		n, err := symbolic.IntOf(item)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: size %d", op, i)
		}
		sizes[i] = n
	}
	return sizes, nil
}

func hintShape(sizes []symbolic.Int) tensor.Shape {
	shape := make(tensor.Shape, len(sizes))
	for i, s := range sizes {
		shape[i] = int(s.Hint())
	}
	return shape
}

func dtypeArg(op string, kwargs map[string]any, def tensor.DataType) (tensor.DataType, error) {
	v, ok := kwargs["dtype"]
	if !ok || v == nil {
		return def, nil
	}
	switch d := v.(type) {
	case tensor.DataType:
		return d, nil
	case string:
		dt, err := tensor.ParseDataType(d)
		return dt, errors.Wrap(err, op)
	default:
		return 0, errors.Errorf("%s: dtype must be a DataType, got %T", op, v)
	}
}

func fake(owner any, m tensor.Meta) *tensor.Tensor {
	return tensor.NewFake(m, owner)
}
