// Package slot associates tracked runtime values (tensors, symbolic scalars)
// with per-tracer payloads.
//
// Every tracked value embeds an Ident, a process-unique identity that is never
// reused. Each tracer owns a Table keyed by that identity. The process-wide
// index only refers to tables through weak pointers, and tables only refer to
// values through their IDs, so the registry never extends the lifetime of a
// value or of a tracer:
//   - when a value is collected, its entries are forgotten by every live table;
//   - when a tracer drops its table (or calls Close), the table leaves the index.
//
// Tracing is single-threaded; the mutexes exist because runtime cleanups run on
// their own goroutine.
package slot

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"weak"

	"github.com/google/uuid"
)

// Lookup failures.
var (
	ErrNotTracked = errors.New("value is not tracked")
	ErrAmbiguous  = errors.New("value is tracked by more than one tracer")
)

// ID identifies a tracked value. IDs are never reused within a process.
type ID uint64

var nextID atomic.Uint64

// Ident is embedded by values that can carry tracing slots.
type Ident struct {
	id ID
}

// NewIdent allocates an identity for owner and arranges for its slots to be
// forgotten once owner becomes unreachable.
func NewIdent[T any](owner *T) Ident {
	id := ID(nextID.Add(1))
	runtime.AddCleanup(owner, forget, id)
	return Ident{id: id}
}

// SlotID returns the identity. The zero Ident has ID 0 and cannot be tracked.
func (i Ident) SlotID() ID {
	return i.id
}

// Value is anything that can be associated with a slot.
type Value interface {
	SlotID() ID
}

type table interface {
	forget(id ID)
	lookup(id ID) (any, bool)
}

var index = struct {
	mu     sync.Mutex
	tables map[uuid.UUID]func() table
}{
	tables: make(map[uuid.UUID]func() table),
}

func forget(id ID) {
	for _, t := range liveTables() {
		t.forget(id)
	}
}

func unregister(owner uuid.UUID) {
	index.mu.Lock()
	defer index.mu.Unlock()
	delete(index.tables, owner)
}

func liveTables() []table {
	index.mu.Lock()
	defer index.mu.Unlock()

	tables := make([]table, 0, len(index.tables))
	for owner, get := range index.tables {
		t := get()
		if t == nil {
			delete(index.tables, owner)
			continue
		}
		tables = append(tables, t)
	}
	return tables
}

// Table holds the slots of a single tracer.
type Table[S any] struct {
	owner   uuid.UUID
	mu      sync.Mutex
	entries map[ID]S
	closed  bool
}

// NewTable creates the slot table for the tracer identified by owner.
func NewTable[S any](owner uuid.UUID) *Table[S] {
	t := &Table[S]{
		owner:   owner,
		entries: make(map[ID]S),
	}

	wp := weak.Make(t)
	index.mu.Lock()
	index.tables[owner] = func() table {
		if v := wp.Value(); v != nil {
			return v
		}
		return nil
	}
	index.mu.Unlock()

	runtime.AddCleanup(t, unregister, owner)
	return t
}

// Owner returns the identity of the tracer owning this table.
func (t *Table[S]) Owner() uuid.UUID {
	return t.owner
}

// Set associates s with v, replacing any previous association.
func (t *Table[S]) Set(v Value, s S) {
	id := v.SlotID()
	if id == 0 {
		panic(fmt.Sprintf("slot: %T has no identity", v))
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.entries[id] = s
}

// Get returns the slot of v, if any.
func (t *Table[S]) Get(v Value) (S, bool) {
	s, ok := t.get(v.SlotID())
	return s, ok
}

// Has reports whether v carries a slot in this table.
func (t *Table[S]) Has(v Value) bool {
	_, ok := t.get(v.SlotID())
	return ok
}

// Lookup returns the slot of v or an error wrapping ErrNotTracked.
func (t *Table[S]) Lookup(v Value) (S, error) {
	s, ok := t.get(v.SlotID())
	if !ok {
		return s, fmt.Errorf("%v (id %d) for tracer %s: %w", v, v.SlotID(), t.owner, ErrNotTracked)
	}
	return s, nil
}

// Len returns the number of live associations.
func (t *Table[S]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Close drops every association and removes the table from the index.
// A closed table behaves as if nothing was ever tracked.
func (t *Table[S]) Close() {
	t.mu.Lock()
	t.closed = true
	clear(t.entries)
	t.mu.Unlock()

	unregister(t.owner)
}

func (t *Table[S]) get(id ID) (S, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.entries[id]
	return s, ok
}

func (t *Table[S]) forget(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *Table[S]) lookup(id ID) (any, bool) {
	return t.get(id)
}

// LookupOr returns transform(slot) when v is tracked by t, def otherwise.
// The transform is not applied to def.
func LookupOr[S, R any](t *Table[S], v Value, def R, transform func(S) R) R {
	s, ok := t.Get(v)
	if !ok {
		return def
	}
	return transform(s)
}

// Any returns the slot of v when exactly one live table of payload type S
// tracks it. It is meant for code that knows a single trace is in flight.
func Any[S any](v Value) (S, error) {
	var (
		found S
		n     int
	)
	for _, t := range liveTables() {
		e, ok := t.lookup(v.SlotID())
		if !ok {
			continue
		}
		s, ok := e.(S)
		if !ok {
			continue
		}
		found = s
		n++
	}

	switch n {
	case 0:
		return found, fmt.Errorf("%v (id %d): %w", v, v.SlotID(), ErrNotTracked)
	case 1:
		return found, nil
	default:
		return found, fmt.Errorf("%v (id %d) tracked %d times: %w", v, v.SlotID(), n, ErrAmbiguous)
	}
}
