package slot

import (
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type value struct {
	Ident
	name string
}

func newValue(name string) *value {
	v := &value{name: name}
	v.Ident = NewIdent(v)
	return v
}

func (v *value) String() string { return v.name }

func TestTableSetGet(t *testing.T) {
	tbl := NewTable[string](uuid.New())
	defer tbl.Close()
	v := newValue("x")

	assert.False(t, tbl.Has(v))
	_, err := tbl.Lookup(v)
	assert.ErrorIs(t, err, ErrNotTracked)

	tbl.Set(v, "a")
	tbl.Set(v, "b")
	s, ok := tbl.Get(v)
	assert.True(t, ok)
	assert.Equal(t, "b", s)
	assert.Equal(t, 1, tbl.Len())

	assert.Equal(t, "b!", LookupOr(tbl, v, "none", func(s string) string { return s + "!" }))
	assert.Equal(t, "none", LookupOr(tbl, newValue("y"), "none", func(s string) string { return s + "!" }))
}

func TestIdentsAreUnique(t *testing.T) {
	a, b := newValue("a"), newValue("b")
	assert.NotEqual(t, a.SlotID(), b.SlotID())
	assert.NotZero(t, a.SlotID())
}

func TestSetWithoutIdentityPanics(t *testing.T) {
	tbl := NewTable[int](uuid.New())
	defer tbl.Close()
	assert.Panics(t, func() { tbl.Set(&value{}, 1) })
}

func TestTablesAreIndependent(t *testing.T) {
	t1 := NewTable[int](uuid.New())
	t2 := NewTable[int](uuid.New())
	defer t1.Close()
	defer t2.Close()
	v := newValue("x")

	t1.Set(v, 1)
	assert.False(t, t2.Has(v))

	got, err := Any[int](v)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	t2.Set(v, 2)
	_, err = Any[int](v)
	assert.ErrorIs(t, err, ErrAmbiguous)

	_, err = Any[string](v)
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestClose(t *testing.T) {
	tbl := NewTable[int](uuid.New())
	v := newValue("x")
	tbl.Set(v, 1)

	tbl.Close()
	assert.False(t, tbl.Has(v))
	assert.Zero(t, tbl.Len())

	tbl.Set(v, 2)
	assert.False(t, tbl.Has(v))

	_, err := Any[int](v)
	assert.ErrorIs(t, err, ErrNotTracked)
}

func TestCollectedValuesAreForgotten(t *testing.T) {
	tbl := NewTable[int](uuid.New())
	defer tbl.Close()

	func() {
		tbl.Set(newValue("tmp"), 1)
	}()
	require.Equal(t, 1, tbl.Len())

	assert.Eventually(t, func() bool {
		runtime.GC()
		return tbl.Len() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
