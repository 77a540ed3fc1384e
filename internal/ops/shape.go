package ops

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/catalog"
	"github.com/born-ml/fxtrace/internal/dispatch"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// T transposes a matrix.
func T(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.T, []any{x}, nil)
}

// View reshapes x. Sizes are ints, int64s or *symbolic.SymInt; one may be -1.
func View(c *dispatch.Context, x *tensor.Tensor, sizes ...any) (*tensor.Tensor, error) {
	return call(c, catalog.View, []any{x, sizes}, nil)
}

// Clone copies x.
func Clone(c *dispatch.Context, x *tensor.Tensor) (*tensor.Tensor, error) {
	return call(c, catalog.Clone, []any{x}, nil)
}

// To converts x to dtype.
func To(c *dispatch.Context, x *tensor.Tensor, dtype tensor.DataType) (*tensor.Tensor, error) {
	return call(c, catalog.To, []any{x, dtype}, nil)
}

// Chunk splits x into at most n pieces along dim.
func Chunk(c *dispatch.Context, x *tensor.Tensor, n, dim int) ([]*tensor.Tensor, error) {
	out, err := c.Call(catalog.Chunk, []any{x, n, dim}, nil)
	if err != nil {
		return nil, err
	}
	list, ok := out.([]any)
	if !ok {
		return nil, errors.Errorf("%s returned %T, want a list", catalog.Chunk, out)
	}
	chunks := make([]*tensor.Tensor, len(list))
	for i, e := range list {
		if chunks[i], ok = e.(*tensor.Tensor); !ok {
			return nil, errors.Errorf("%s element %d is %T", catalog.Chunk, i, e)
		}
	}
	return chunks, nil
}

// Size returns the sizes of x as int64 or *symbolic.SymInt values.
func Size(c *dispatch.Context, x tensor.Like) ([]any, error) {
	out, err := c.Call(catalog.Size, []any{x}, nil)
	if err != nil {
		return nil, err
	}
	sizes, ok := out.([]any)
	if !ok {
		return nil, errors.Errorf("%s returned %T", catalog.Size, out)
	}
	return sizes, nil
}

// SizeAt returns the size of dimension dim.
func SizeAt(c *dispatch.Context, x tensor.Like, dim int) (any, error) {
	return c.Call(catalog.Size, []any{x, dim}, nil)
}

// Numel returns the element count of x, an int64 or a *symbolic.SymInt.
func Numel(c *dispatch.Context, x tensor.Like) (any, error) {
	return c.Call(catalog.Numel, []any{x}, nil)
}

// DeviceOf returns the device of x. The query is never recorded.
func DeviceOf(c *dispatch.Context, x tensor.Like) (tensor.Device, error) {
	out, err := c.Call(catalog.Device, []any{x}, nil)
	if err != nil {
		return 0, err
	}
	d, ok := out.(tensor.Device)
	if !ok {
		return 0, errors.Errorf("%s returned %T", catalog.Device, out)
	}
	return d, nil
}
