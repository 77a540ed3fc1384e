package symbolic

import (
	"fmt"
	"sort"
	"strings"
)

// ShapeEnv allocates fresh shape variables for one trace and remembers the
// example value of each. Sizes 0 and 1 are specialized to constants, since
// graphs routinely branch on them (broadcasting, empty tensors).
type ShapeEnv struct {
	next   int
	hints  map[string]int64
	guards []string
}

// NewShapeEnv returns an empty shape environment.
func NewShapeEnv() *ShapeEnv {
	return &ShapeEnv{hints: make(map[string]int64)}
}

// CreateSymbol returns a fresh symbol whose example value is hint.
func (e *ShapeEnv) CreateSymbol(hint int64) *SymInt {
	if hint == 0 || hint == 1 {
		return ConstInt(e, hint)
	}
	name := fmt.Sprintf("s%d", e.next)
	e.next++
	e.hints[name] = hint
	return newSymInt(e, name, hint, false)
}

// CreateShape allocates one symbol per dimension.
func (e *ShapeEnv) CreateShape(dims []int) []*SymInt {
	out := make([]*SymInt, len(dims))
	for i, d := range dims {
		out[i] = e.CreateSymbol(int64(d))
	}
	return out
}

// CreateShapesForArgs allocates symbolic shapes for a list of concrete shapes,
// typically the flattened tensor inputs of a traced function. Nil entries
// (non-tensor inputs) stay nil.
func (e *ShapeEnv) CreateShapesForArgs(shapes [][]int) [][]*SymInt {
	out := make([][]*SymInt, len(shapes))
	for i, s := range shapes {
		if s == nil {
			continue
		}
		out[i] = e.CreateShape(s)
	}
	return out
}

// Symbols returns the allocated symbol names in allocation order.
func (e *ShapeEnv) Symbols() []string {
	names := make([]string, 0, len(e.hints))
	for name := range e.hints {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return symbolIndex(names[i]) < symbolIndex(names[j])
	})
	return names
}

// Hint returns the example value bound to a symbol.
func (e *ShapeEnv) Hint(name string) (int64, bool) {
	v, ok := e.hints[name]
	return v, ok
}

// Concretize derives concrete sizes from symbolic ones using the example
// values the environment was built from.
func (e *ShapeEnv) Concretize(sizes []*SymInt) []int {
	out := make([]int, len(sizes))
	for i, s := range sizes {
		out[i] = int(s.Hint())
	}
	return out
}

// Guards returns the equalities assumed while tracing, e.g. "s0 == s1".
func (e *ShapeEnv) Guards() []string {
	return append([]string(nil), e.guards...)
}

func (e *ShapeEnv) addGuard(g string) {
	for _, existing := range e.guards {
		if existing == g {
			return
		}
	}
	e.guards = append(e.guards, g)
}

func (e *ShapeEnv) String() string {
	if e == nil {
		return "ShapeEnv(<nil>)"
	}
	var b strings.Builder
	b.WriteString("ShapeEnv(")
	for i, name := range e.Symbols() {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", name, e.hints[name])
	}
	if len(e.guards) > 0 {
		b.WriteString("; guards: ")
		b.WriteString(strings.Join(e.guards, ", "))
	}
	b.WriteString(")")
	return b.String()
}

func symbolIndex(name string) int {
	var n int
	_, _ = fmt.Sscanf(name, "s%d", &n)
	return n
}
