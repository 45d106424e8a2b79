// Package storage declares the boundary between the join engine and the
// persistent buffer pool / memory-mapped heap manager that spec §1 and §6
// treat as an external collaborator. The engine imports only this
// interface; memtable (in this module, but not part of the public API)
// provides a reference implementation used by the engine's own tests, the
// same separation the teacher draws between package sql (interfaces) and
// package memory (a reference implementation).
package storage

import (
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

// Service is every operation the join engine calls into the storage
// layer for. None of it is join logic; it is all allocation, indexing,
// and sorting that the storage layer is assumed to already provide.
type Service interface {
	// TableNew returns a fresh, empty table with the given column
	// tags and reserved capacity.
	TableNew(headTag, tailTag typetag.Tag, capacity int) (*table.Table, error)
	// TableExtend grows t's storage to newCap, preserving existing
	// tuples. May fail with jointypes.ErrOutOfMemory.
	TableExtend(t *table.Table, newCap int) error
	// TableSlice returns a zero-copy view over [lo, hi).
	TableSlice(t *table.Table, lo, hi int) (*table.Table, error)
	// TableMirror returns a Table view with head and tail swapped.
	TableMirror(t *table.Table) (*table.Table, error)
	// HashBuild builds a hash index on one side of t. Idempotent.
	HashBuild(t *table.Table, side table.Side) error
	// HashLookup walks the chain of positions on side matching the
	// hash of v.
	HashLookup(t *table.Table, side table.Side, hash uint64) []int
	// Sort and StableSort return a newly allocated, sorted copy of t
	// ordered by side; they never mutate t.
	Sort(t *table.Table, side table.Side) (*table.Table, error)
	StableSort(t *table.Table, side table.Side) (*table.Table, error)
	// SortedLowerBound binary searches side of t (which must already
	// be sorted ascending) for the first position whose value is >=
	// the value at (probe, probeSide).
	SortedLowerBound(t *table.Table, side table.Side, probe *table.Table, probeSide table.Side, probeIdx int) int
	// HeapShare increments the reference count of src's atom heap and
	// installs it (shared) on dst, falling back to a byte copy if
	// sharing is not possible.
	HeapShare(dst, src *table.Table, side table.Side) error
	// RandomSample returns a uniformly sampled sub-table of n rows,
	// used by the estimator's outlier fallback.
	RandomSample(t *table.Table, n int) (*table.Table, error)
}
