package catalog

import (
	"math/rand/v2"

	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/symbolic"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Tensor creation operators.
var (
	Zeros = fullOperator("zeros", 0)
	Ones  = fullOperator("ones", 1)
	Randn = &Operator{Name: "randn", Tags: Factory | NondeterministicSeeded, Kernel: randnKernel, Meta: factoryMeta("randn")}

	// LiftFresh hands a freshly allocated constant to the active modes.
	LiftFresh = &Operator{Name: "lift_fresh", Kernel: liftFreshKernel, Meta: liftFreshMeta}
	// LiftFreshCopy is LiftFresh without aliasing its argument.
	LiftFreshCopy = &Operator{Name: "lift_fresh_copy", Kernel: cloneKernel, Meta: cloneMeta}

	// Item reads the value of a single element tensor.
	Item = &Operator{Name: "item", Tags: DataDependentOutput, Kernel: itemKernel, Meta: itemMeta}
)

func (r *Registry) registerCreationOps() {
	for _, op := range []*Operator{Zeros, Ones, Randn, LiftFresh, LiftFreshCopy, Item} {
		r.Register(op)
	}
}

func factorySizes(name string, args []any) ([]symbolic.Int, error) {
	if len(args) == 0 {
		return nil, errors.Errorf("%s requires a size argument", name)
	}
	return sizesArg(name, args[0])
}

func factoryMeta(name string) MetaFunc {
	return func(owner any, args []any, kwargs map[string]any) (any, error) {
		sizes, err := factorySizes(name, args)
		if err != nil {
			return nil, err
		}
		dt, err := dtypeArg(name, kwargs, tensor.Float32)
		if err != nil {
			return nil, err
		}
		return fake(owner, tensor.MetaFromSizes(dt, tensor.CPU, sizes)), nil
	}
}

func fullOperator(name string, value float64) *Operator {
	return &Operator{
		Name: name,
		Tags: Factory,
		Kernel: func(args []any, kwargs map[string]any) (any, error) {
			sizes, err := factorySizes(name, args)
			if err != nil {
				return nil, err
			}
			dt, err := dtypeArg(name, kwargs, tensor.Float32)
			if err != nil {
				return nil, err
			}
			return tensor.FromRaw(backend.Full(hintShape(sizes), value, dt)), nil
		},
		Meta: factoryMeta(name),
	}
}

func randnKernel(args []any, kwargs map[string]any) (any, error) {
	sizes, err := factorySizes("randn", args)
	if err != nil {
		return nil, err
	}
	dt, err := dtypeArg("randn", kwargs, tensor.Float32)
	if err != nil {
		return nil, err
	}
	var rng *rand.Rand
	if seed, ok := kwargs["seed"]; ok {
		s, err := symbolic.IntOf(seed)
		if err != nil {
			return nil, errors.Wrap(err, "randn: seed")
		}
		rng = rand.New(rand.NewPCG(uint64(s.Hint()), 0))
	} else {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return tensor.FromRaw(backend.Randn(hintShape(sizes), dt, rng)), nil
}

func liftFreshKernel(args []any, _ map[string]any) (any, error) {
	return tensorArg("lift_fresh", args, 0)
}

func liftFreshMeta(owner any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("lift_fresh", args, 0)
	if err != nil {
		return nil, err
	}
	if x.IsFake() {
		return x, nil
	}
	return fake(owner, x.TensorMeta()), nil
}

func itemKernel(args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("item", args, 0)
	if err != nil {
		return nil, err
	}
	v, err := x.Item()
	if err != nil {
		return nil, errors.Wrap(err, "item")
	}
	if !x.DType().IsFloat() {
		return int64(v), nil
	}
	return v, nil
}

func itemMeta(_ any, args []any, _ map[string]any) (any, error) {
	x, err := tensorArg("item", args, 0)
	if err != nil {
		return nil, err
	}
	return nil, errors.Wrapf(tensor.ErrNoStorage, "item: cannot read the value of %v", x)
}
