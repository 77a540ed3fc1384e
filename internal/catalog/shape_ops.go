package catalog

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/backend/cpu"
	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Shape and metadata operators.
var (
	T       = &Operator{Name: "t", Kernel: tKernel, Meta: tMeta}
	View    = &Operator{Name: "view", Kernel: viewKernel, Meta: viewMeta}
	Clone   = &Operator{Name: "clone", Kernel: cloneKernel, Meta: cloneMeta}
	To      = &Operator{Name: "to", Kernel: toKernel, Meta: toMeta}
	Chunk   = &Operator{Name: "chunk", Kernel: chunkKernel, Meta: chunkMeta}
	Size    = &Operator{Name: "size", Tags: SymbolicShape, Kernel: sizeKernel, Meta: ignoreOwner(sizeKernel)}
	Numel   = &Operator{Name: "numel", Tags: SymbolicShape, Decomposition: numelDecomposition, Kernel: numelKernel, Meta: ignoreOwner(numelKernel)}
	Device  = &Operator{Name: "device", Tags: Metadata, Kernel: deviceKernel, Meta: ignoreOwner(deviceKernel)}
	SymSize = &Operator{Name: "sym_size", Tags: SymbolicShape, Kernel: symSizeKernel, Meta: ignoreOwner(symSizeKernel)}
)

func (r *Registry) registerShapeOps() {
	for _, op := range []*Operator{T, View, Clone, To, Chunk, Size, Numel, Device, SymSize} {
		r.Register(op)
	}
}

// ignoreOwner adapts a kernel that only reads metadata into a meta function.
func ignoreOwner(k Kernel) MetaFunc {
	return func(_ any, args []any, kwargs map[string]any) (any, error) {
		return k(args, kwargs)
	}
}

func tKernel(args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("t", args, 0)
	if err != nil {
		return nil, err
	}
	return tensor.FromRaw(backend.Transpose(x.Raw())), nil
}

func tMeta(owner any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("t", args, 0)
	if err != nil {
		return nil, err
	}
	sizes := x.Sizes()
	switch len(sizes) {
	case 0, 1:
	case 2:
		sizes[0], sizes[1] = sizes[1], sizes[0]
	default:
		return nil, errors.Errorf("t: expected a tensor with <= 2 dimensions, got %dD", len(sizes))
	}
	return fake(owner, tensor.MetaFromSizes(x.DType(), x.Device(), sizes)), nil
}

// viewSizes resolves a single -1 entry against the element count of x.
func viewSizes(x *tensor.Tensor, v any) ([]symbolic.Int, error) {
	sizes, err := sizesArg("view", v)
	if err != nil {
		return nil, err
	}

	infer := -1
	var known []symbolic.Int
	for i, s := range sizes {
		if !s.IsSymbolic() && s.Hint() == -1 {
			if infer >= 0 {
				return nil, errors.New("view: only one dimension can be inferred")
			}
			infer = i
			continue
		}
		known = append(known, s)
	}

	numel, err := symbolic.Product(x.Sizes())
	if err != nil {
		return nil, errors.Wrap(err, "view")
	}
	prod, err := symbolic.Product(known)
	if err != nil {
		return nil, errors.Wrap(err, "view")
	}

	if infer >= 0 {
		if prod.Hint() == 0 || numel.Hint()%prod.Hint() != 0 {
			return nil, errors.Errorf("view: shape %v is invalid for input of size %d", sizes, numel.Hint())
		}
		q, err := symbolic.ApplyInt(symbolic.OpFloorDiv, numel, prod)
		if err != nil {
			return nil, errors.Wrap(err, "view")
		}
		if sizes[infer], err = symbolic.IntOf(q); err != nil {
			return nil, err
		}
		return sizes, nil
	}

	if prod.Hint() != numel.Hint() {
		return nil, errors.Errorf("view: shape %v is invalid for input of size %d", sizes, numel.Hint())
	}
	return sizes, nil
}

func viewKernel(args []any, kwargs map[string]any) (any, error) {
	x, err := tensorArg("view", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, errors.New("view requires a size argument")
	}
	sizes, err := viewSizes(x, args[1])
	if err != nil {
		return nil, err
	}
	return tensor.FromRaw(backend.Reshape(x.Raw(), hintShape(sizes))), nil
}

func viewMeta(owner any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("view", args, 0)
	if err != nil {
		return nil, err
	}
	if len(args) < 2 {
		return nil, errors.New("view requires a size argument")
	}
	sizes, err := viewSizes(x, args[1])
	if err != nil {
		return nil, err
	}
	return fake(owner, tensor.MetaFromSizes(x.DType(), x.Device(), sizes)), nil
}

func cloneKernel(args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("clone", args, 0)
	if err != nil {
		return nil, err
	}
	return tensor.FromRaw(x.Raw().Clone()), nil
}

func cloneMeta(owner any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("clone", args, 0)
	if err != nil {
		return nil, err
	}
	return fake(owner, x.TensorMeta()), nil
}

func toDType(args []any, kwargs map[string]any) (tensor.DataType, error) {
	if len(args) > 1 {
		kwargs = map[string]any{"dtype": args[1]}
	}
	if _, ok := kwargs["dtype"]; !ok {
		return 0, errors.New("to requires a dtype")
	}
	return dtypeArg("to", kwargs, tensor.Float32)
}

func toKernel(args []any, kwargs map[string]any) (any, error) {
	x, err := tensorArg("to", args, 0)
	if err != nil {
		return nil, err
	}
	dt, err := toDType(args, kwargs)
	if err != nil {
		return nil, err
	}
	return tensor.FromRaw(backend.Cast(x.Raw(), dt)), nil
}

func toMeta(owner any, args []any, kwargs map[string]any) (any, error) {
	x, err := tensorArg("to", args, 0)
	if err != nil {
		return nil, err
	}
	dt, err := toDType(args, kwargs)
	if err != nil {
		return nil, err
	}
	m := x.TensorMeta()
	m.DType = dt
	return fake(owner, m), nil
}

func chunkArgs(args []any, kwargs map[string]any) (*tensor.Tensor, int, int, error) {
	x, err := tensorArg("chunk", args, 0)
	if err != nil {
		return nil, 0, 0, err
	}
	n, err := intArg("chunk", args, kwargs, 1, "chunks", 0)
	if err != nil {
		return nil, 0, 0, err
	}
	if n <= 0 {
		return nil, 0, 0, errors.Errorf("chunk: number of chunks must be positive, got %d", n)
	}
	dim, err := intArg("chunk", args, kwargs, 2, "dim", 0)
	if err != nil {
		return nil, 0, 0, err
	}
	if dim < 0 {
		dim += x.Dim()
	}
	if dim < 0 || dim >= x.Dim() {
		return nil, 0, 0, errors.Errorf("chunk: dim %d out of range for %dD tensor", dim, x.Dim())
	}
	return x, n, dim, nil
}

func chunkKernel(args []any, kwargs map[string]any) (any, error) {
	x, n, dim, err := chunkArgs(args, kwargs)
	if err != nil {
		return nil, err
	}
	chunks := backend.Chunk(x.Raw(), n, dim)
	out := make([]any, len(chunks))
	for i, c := range chunks {
		out[i] = tensor.FromRaw(c)
	}
	return out, nil
}

// chunkMeta splits a possibly symbolic dimension into ceil(size / n) sized
// pieces. The number of pieces is taken from the example size.
func chunkMeta(owner any, args []any, kwargs map[string]any) (any, error) {
	x, n, dim, err := chunkArgs(args, kwargs)
	if err != nil {
		return nil, err
	}

	size := x.Size(dim)
	count := len(cpu.ChunkSizes(int(size.Hint()), n))

	// step = (size + n - 1) // n
	v, err := symbolic.ApplyInt(symbolic.OpAdd, size, int64(n-1))
	if err != nil {
		return nil, err
	}
	if v, err = symbolic.ApplyInt(symbolic.OpFloorDiv, v, int64(n)); err != nil {
		return nil, err
	}
	step, err := symbolic.IntOf(v)
	if err != nil {
		return nil, errors.Wrap(err, "chunk")
	}

	out := make([]any, count)
	for i := range out {
		piece := step
		if i == count-1 {
			// last = size - step * (count - 1)
			used, err := symbolic.ApplyInt(symbolic.OpMul, step, int64(count-1))
			if err != nil {
				return nil, err
			}
			rest, err := symbolic.ApplyInt(symbolic.OpSub, size, used)
			if err != nil {
				return nil, err
			}
			if piece, err = symbolic.IntOf(rest); err != nil {
				return nil, errors.Wrap(err, "chunk")
			}
		}
		sizes := x.Sizes()
		sizes[dim] = piece
		out[i] = fake(owner, tensor.MetaFromSizes(x.DType(), x.Device(), sizes))
	}
	return out, nil
}

func sizeKernel(args []any, kwargs map[string]any) (any, error) {
	x, ok := likeArg(args)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "size: expected a tensor, got %v", args)
	}
	sizes := x.TensorMeta().Sizes()
	if len(args) > 1 || kwargs["dim"] != nil {
		dim, err := intArg("size", args, kwargs, 1, "dim", 0)
		if err != nil {
			return nil, err
		}
		if dim < 0 {
			dim += len(sizes)
		}
		if dim < 0 || dim >= len(sizes) {
			return nil, errors.Errorf("size: dim %d out of range for %dD tensor", dim, len(sizes))
		}
		return sizes[dim].Value(), nil
	}
	out := make([]any, len(sizes))
	for i, s := range sizes {
		out[i] = s.Value()
	}
	return out, nil
}

func symSizeKernel(args []any, kwargs map[string]any) (any, error) {
	if len(args) < 2 {
		return nil, errors.New("sym_size requires a tensor and a dimension")
	}
	return sizeKernel(args, kwargs)
}

func numelKernel(args []any, _ map[string]any) (any, error) {
	x, ok := likeArg(args)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "numel: expected a tensor, got %v", args)
	}
	n, err := symbolic.Product(x.TensorMeta().Sizes())
	if err != nil {
		return nil, errors.Wrap(err, "numel")
	}
	return n.Value(), nil
}

// numelDecomposition multiplies the sizes through symbolic dispatch so the
// product of symbolic sizes is recorded.
func numelDecomposition(c Caller, args []any, _ map[string]any) (any, error) {
	x, ok := likeArg(args)
	if !ok || !x.TensorMeta().IsSymbolic() {
		return nil, ErrNotImplemented
	}
	acc := any(int64(1))
	for _, s := range x.TensorMeta().Sizes() {
		if k, ok := acc.(int64); ok && !s.IsSymbolic() {
			acc = k * s.Hint()
			continue
		}
		v, err := c.SymCall(SymMul, []any{acc, s.Value()}, nil)
		if err != nil {
			return nil, err
		}
		acc = v
	}
	return acc, nil
}

func deviceKernel(args []any, _ map[string]any) (any, error) {
	x, ok := likeArg(args)
	if !ok {
		return nil, errors.Wrapf(ErrUnsupported, "device: expected a tensor, got %v", args)
	}
	return x.TensorMeta().Device, nil
}

func likeArg(args []any) (tensor.Like, bool) {
	if len(args) == 0 {
		return nil, false
	}
	x, ok := args[0].(tensor.Like)
	return x, ok
}
