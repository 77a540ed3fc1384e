// Package pytree flattens nested argument structures into leaves and back.
//
// Containers are []any, Tuple and map[string]any. Everything else is a leaf.
// Map keys are visited in sorted order so flattening is deterministic.
package pytree

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Tuple is a fixed-arity container. It prints and unflattens as a tuple,
// which lets callers distinguish (x, y) from [x, y].
type Tuple []any

type kind int

const (
	leafKind kind = iota
	listKind
	tupleKind
	dictKind
)

// Spec describes the structure of a flattened tree.
type Spec struct {
	kind     kind
	keys     []string
	children []*Spec
	leaves   int
}

// Flatten returns the leaves of tree in depth-first order and its structure.
func Flatten(tree any) ([]any, *Spec) {
	var leaves []any
	spec := flatten(tree, &leaves)
	return leaves, spec
}

func flatten(tree any, leaves *[]any) *Spec {
	switch t := tree.(type) {
	case []any:
		return flattenSeq(listKind, t, leaves)
	case Tuple:
		return flattenSeq(tupleKind, t, leaves)
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		s := &Spec{kind: dictKind, keys: keys}
		for _, k := range keys {
			c := flatten(t[k], leaves)
			s.children = append(s.children, c)
			s.leaves += c.leaves
		}
		return s
	default:
		*leaves = append(*leaves, tree)
		return &Spec{kind: leafKind, leaves: 1}
	}
}

func flattenSeq(k kind, items []any, leaves *[]any) *Spec {
	s := &Spec{kind: k, children: make([]*Spec, 0, len(items))}
	for _, item := range items {
		c := flatten(item, leaves)
		s.children = append(s.children, c)
		s.leaves += c.leaves
	}
	return s
}

// NumLeaves returns the number of leaves described by s.
func (s *Spec) NumLeaves() int {
	return s.leaves
}

// Unflatten rebuilds a tree of this structure from leaves.
func (s *Spec) Unflatten(leaves []any) (any, error) {
	if len(leaves) != s.leaves {
		return nil, fmt.Errorf("pytree: spec %v expects %d leaves, got %d", s, s.leaves, len(leaves))
	}
	out, _ := s.unflatten(leaves)
	return out, nil
}

func (s *Spec) unflatten(leaves []any) (any, []any) {
	switch s.kind {
	case leafKind:
		return leaves[0], leaves[1:]
	case dictKind:
		m := make(map[string]any, len(s.keys))
		for i, k := range s.keys {
			m[k], leaves = s.children[i].unflatten(leaves)
		}
		return m, leaves
	default:
		items := make([]any, len(s.children))
		for i, c := range s.children {
			items[i], leaves = c.unflatten(leaves)
		}
		if s.kind == tupleKind {
			return Tuple(items), leaves
		}
		return items, leaves
	}
}

// Equal reports whether two specs describe the same structure.
func (s *Spec) Equal(other *Spec) bool {
	if s.kind != other.kind || s.leaves != other.leaves || len(s.children) != len(other.children) {
		return false
	}
	if !slices.Equal(s.keys, other.keys) {
		return false
	}
	for i := range s.children {
		if !s.children[i].Equal(other.children[i]) {
			return false
		}
	}
	return true
}

func (s *Spec) String() string {
	switch s.kind {
	case leafKind:
		return "*"
	case dictKind:
		parts := make([]string, len(s.keys))
		for i, k := range s.keys {
			parts[i] = k + ": " + s.children[i].String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	default:
		parts := make([]string, len(s.children))
		for i, c := range s.children {
			parts[i] = c.String()
		}
		if s.kind == tupleKind {
			return "(" + strings.Join(parts, ", ") + ")"
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
}

// Map applies f to every leaf, preserving structure.
func Map(tree any, f func(any) (any, error)) (any, error) {
	leaves, spec := Flatten(tree)
	for i, l := range leaves {
		v, err := f(l)
		if err != nil {
			return nil, err
		}
		leaves[i] = v
	}
	return spec.Unflatten(leaves)
}

// MapOnly applies f to the leaves of type T and keeps the others.
func MapOnly[T any](tree any, f func(T) (any, error)) (any, error) {
	return Map(tree, func(l any) (any, error) {
		if t, ok := l.(T); ok {
			return f(t)
		}
		return l, nil
	})
}

// AnyOnly reports whether pred holds for some leaf of type T.
func AnyOnly[T any](tree any, pred func(T) bool) bool {
	leaves, _ := Flatten(tree)
	for _, l := range leaves {
		if t, ok := l.(T); ok && pred(t) {
			return true
		}
	}
	return false
}

// AllOnly reports whether pred holds for every leaf of type T.
func AllOnly[T any](tree any, pred func(T) bool) bool {
	return !AnyOnly(tree, func(t T) bool { return !pred(t) })
}
