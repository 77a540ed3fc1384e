// Package catalog is the operator catalog the tracer dispatches through.
//
// An Operator bundles its tags, an optional built-in decomposition, a real
// kernel running on the CPU backend and a meta function that only computes
// output metadata. The catalog knows nothing about modes or graphs:
// decompositions call back into dispatch through the Caller interface.
package catalog

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/pytree"
	"github.com/born-ml/fxtrace/internal/tensor"
)

// Errors reported by operators.
var (
	// ErrNotImplemented is returned by a decomposition or mode that declines
	// an operator call.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupported is returned when an operator cannot accept its arguments.
	ErrUnsupported = errors.New("unsupported operation")
)

// Tag is a property of an operator.
type Tag uint

// Operator tags.
const (
	// DataDependentOutput marks operators whose result depends on tensor data
	// (item).
	DataDependentOutput Tag = 1 << iota
	// NondeterministicSeeded marks operators drawing from a random generator.
	NondeterministicSeeded
	// Inplace marks operators that mutate and return their first argument.
	Inplace
	// Metadata marks pure metadata queries that are never traced (device).
	Metadata
	// SymbolicShape marks shape queries answered from symbolic sizes.
	SymbolicShape
	// Symbolic marks operators on symbolic scalars.
	Symbolic
	// Factory marks operators creating tensors without tensor inputs.
	Factory
)

var tagNames = []string{
	"data_dependent_output",
	"nondeterministic_seeded",
	"inplace",
	"metadata",
	"symbolic_shape",
	"symbolic",
	"factory",
}

func (t Tag) String() string {
	var names []string
	for i, name := range tagNames {
		if t&(1<<i) != 0 {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return "none"
	}
	return fmt.Sprint(names)
}

// Caller lets decompositions re-dispatch operators.
type Caller interface {
	Call(op *Operator, args []any, kwargs map[string]any) (any, error)
	SymCall(op *Operator, args []any, kwargs map[string]any) (any, error)
}

// Decomposition rewrites an operator call in terms of other operators.
// Returning ErrNotImplemented declines.
type Decomposition func(c Caller, args []any, kwargs map[string]any) (any, error)

// Kernel executes an operator on real values.
type Kernel func(args []any, kwargs map[string]any) (any, error)

// MetaFunc computes outputs as fake tensors owned by owner.
type MetaFunc func(owner any, args []any, kwargs map[string]any) (any, error)

// Operator is one entry of the catalog.
type Operator struct {
	Name          string
	Tags          Tag
	Decomposition Decomposition
	Kernel        Kernel
	Meta          MetaFunc
}

// Has reports whether op carries tag.
func (op *Operator) Has(tag Tag) bool {
	return op.Tags&tag != 0
}

func (op *Operator) String() string {
	return "aten." + op.Name
}

// Run executes op without any mode. When an argument is a fake tensor the
// meta function runs, owned by that tensor's fake session.
func (op *Operator) Run(args []any, kwargs map[string]any) (any, error) {
	if owner, ok := FakeOwner(args, kwargs); ok {
		return op.RunMeta(owner, args, kwargs)
	}
	return op.RunKernel(args, kwargs)
}

// RunKernel executes the real kernel. Backend panics become errors.
func (op *Operator) RunKernel(args []any, kwargs map[string]any) (out any, err error) {
	if op.Kernel == nil {
		return nil, errors.Wrapf(ErrUnsupported, "%s has no kernel", op)
	}
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("%s: %v", op, r)
		}
	}()
	return op.Kernel(args, kwargs)
}

// RunMeta executes the meta function.
func (op *Operator) RunMeta(owner any, args []any, kwargs map[string]any) (any, error) {
	if op.Meta == nil {
		return nil, errors.Wrapf(ErrUnsupported, "%s has no meta function", op)
	}
	return op.Meta(owner, args, kwargs)
}

// FakeOwner returns the fake session of the first fake tensor among args.
func FakeOwner(args []any, kwargs map[string]any) (any, bool) {
	leaves, _ := pytree.Flatten(pytree.Tuple{[]any(args), kwargs})
	for _, l := range leaves {
		if t, ok := l.(*tensor.Tensor); ok && t.IsFake() {
			return t.FakeOwner(), true
		}
	}
	return nil, false
}
