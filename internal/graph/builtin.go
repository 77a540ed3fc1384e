package graph

import (
	"github.com/pkg/errors"

	"github.com/born-ml/fxtrace/internal/pytree"
)

// Builtin is a call_function target that is not an operator: it runs
// directly on its arguments and is never dispatched.
type Builtin struct {
	Name string
	Fn   func(args []any) (any, error)
}

func (b *Builtin) String() string {
	return b.Name
}

// GetItem selects element i of a list or tuple result.
var GetItem = &Builtin{Name: "getitem", Fn: getItem}

func getItem(args []any) (any, error) {
	if len(args) != 2 {
		return nil, errors.Errorf("getitem requires 2 inputs, got %d", len(args))
	}
	i, ok := args[1].(int)
	if !ok {
		return nil, errors.Errorf("getitem: index is %T, not int", args[1])
	}
	var items []any
	switch c := args[0].(type) {
	case []any:
		items = c
	case pytree.Tuple:
		items = c
	default:
		return nil, errors.Errorf("getitem: cannot index %T", args[0])
	}
	if i < 0 || i >= len(items) {
		return nil, errors.Errorf("getitem: index %d out of range for %d items", i, len(items))
	}
	return items[i], nil
}
