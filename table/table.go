// Package table implements the engine's primary value: a Table, a pair of
// aligned columns (Head, Tail) with property flags, a reference to an
// optional hash index, and lifecycle helpers (slicing, mirroring, and the
// scoped-acquisition Guard that replaces the original's goto-based error
// unwinding, per spec §9).
package table

import (
	"sync"

	"github.com/colbat/batjoin/atomheap"
	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/typetag"
)

// Side names one of a Table's two columns.
type Side int

const (
	Head Side = iota
	Tail
)

func (s Side) String() string {
	if s == Head {
		return "head"
	}
	return "tail"
}

// Flags holds the per-side property bits of spec §3: sorted, reverse
// sorted, key (unique), dense, and nonil. A Table holds one Flags for
// Head and one for Tail.
type Flags struct {
	Sorted    bool
	RevSorted bool
	Key       bool
	Dense     bool
	Nonil     bool
}

// Table is the engine's uniform columnar container: an ordered sequence
// of (Head[i], Tail[i]) tuples plus the metadata every physical join
// reads and writes.
type Table struct {
	Head, Tail column.Column

	HeadFlags, TailFlags Flags

	// First is the index of the first live tuple; views slice without
	// copying by adjusting First (and the underlying column's own
	// slice).
	First int
	Count int

	hashMu  sync.Mutex
	hash    *HashIndex
	hashOn  Side
	built   bool
	tracer  LockTracer

	// released marks a Table whose backing storage has already been
	// handed back, so a second Guard.Release is a no-op instead of a
	// double free.
	released bool
}

// New constructs an empty Table over freshly allocated columns of the
// given tags, the Go-level analogue of the external table_new service
// (spec §6). memtable's TableNew calls it; physical joins and the
// planner allocate through storage.Service instead so a caller-supplied
// allocator can intercept it.
func New(headTag, tailTag typetag.Tag, capacity int) *Table {
	return &Table{
		Head: column.New(headTag, capacity),
		Tail: column.New(tailTag, capacity),
	}
}

// NewFrom wraps already-constructed columns (used by views and by
// physical joins constructing a result with a shared atom heap).
func NewFrom(head, tail column.Column) *Table {
	return &Table{Head: head, Tail: tail, Count: head.Len()}
}

// SetLockTracer installs an optional lock-tracing hook (spec §5, "a
// per-lock counter and an optional thread-local trace mode"). A nil
// tracer (the default) makes tracing a no-op.
func (t *Table) SetLockTracer(tr LockTracer) {
	t.tracer = tr
}

// Len reports the number of live tuples.
func (t *Table) Len() int {
	return t.Count
}

// Flags returns the flags for the requested side.
func (t *Table) Flags(side Side) Flags {
	if side == Head {
		return t.HeadFlags
	}
	return t.TailFlags
}

// SetFlags installs the flags for the requested side.
func (t *Table) SetFlags(side Side, f Flags) {
	if side == Head {
		t.HeadFlags = f
	} else {
		t.TailFlags = f
	}
}

// Column returns the requested side's column.
func (t *Table) Column(side Side) column.Column {
	if side == Head {
		return t.Head
	}
	return t.Tail
}

// Keyed returns the requested side's column as a column.Keyed, panicking
// if that side cannot be compared -- every tag the engine supports
// implements Keyed, so this only fires on a programmer error.
func (t *Table) Keyed(side Side) column.Keyed {
	return t.Column(side).(column.Keyed)
}

// Slice returns a zero-copy view over [lo, hi). Per spec §3, views share
// underlying storage and must not outlive their parent.
func (t *Table) Slice(lo, hi int) *Table {
	view := &Table{
		Head:      t.Head.Slice(lo, hi),
		Tail:      t.Tail.Slice(lo, hi),
		HeadFlags: t.HeadFlags,
		TailFlags: t.TailFlags,
		First:     t.First + lo,
		Count:     hi - lo,
	}
	return view
}

// Mirror returns a Table view with Head and Tail swapped, an O(1)
// operation per spec §6 (table_mirror).
func (t *Table) Mirror() *Table {
	return &Table{
		Head:      t.Tail,
		Tail:      t.Head,
		HeadFlags: t.TailFlags,
		TailFlags: t.HeadFlags,
		First:     t.First,
		Count:     t.Count,
	}
}

// Heap returns the atom heap backing side's column, or nil if that side
// is not variable-width.
func (t *Table) Heap(side Side) *atomheap.Heap {
	if s, ok := t.Column(side).(*column.Strings); ok {
		return s.Heap
	}
	return nil
}

// Release marks the table's storage as reclaimed. A real deployment
// backs this with the external heap/allocator's free path; in-process it
// mainly exists so Guard has something idempotent to call on failure.
func (t *Table) Release() {
	t.released = true
}

// Released reports whether Release has been called.
func (t *Table) Released() bool {
	return t.released
}
