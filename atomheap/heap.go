// Package atomheap implements the append-only blob store backing
// variable-width columns (spec §3, "Atom Heap"). Values are interned by
// content hash so repeated strings are stored once; the heap is shared by
// reference rather than copied whenever an operator can get away with it
// ("string trick", spec §4.1, §4.4.3).
package atomheap

import (
	"sync"

	"github.com/OneOfOne/xxhash"
)

// Heap is an append-only, reference-counted store of variable-width
// values. It is safe for concurrent readers; writers (Intern) serialize
// via mu, matching the "hashes build-once cache-forever" discipline spec
// §5 asks of the rest of the engine.
type Heap struct {
	mu       sync.Mutex
	refcount int32

	values []string
	index  map[uint64][]int32 // content hash -> candidate offsets, de-dup
}

// New returns an empty heap with one reference held by the caller.
func New() *Heap {
	return &Heap{
		refcount: 1,
		index:    make(map[uint64][]int32),
	}
}

// Intern appends v to the heap, returning the offset of an existing equal
// value if one is already present (the de-duplication the planner relies
// on when deciding whether the string trick is legal).
func (h *Heap) Intern(v string) int32 {
	h.mu.Lock()
	defer h.mu.Unlock()

	sum := xxhash.ChecksumString64(v)
	for _, off := range h.index[sum] {
		if h.values[off] == v {
			return off
		}
	}

	off := int32(len(h.values))
	h.values = append(h.values, v)
	h.index[sum] = append(h.index[sum], off)
	return off
}

// At returns the value stored at offset off.
func (h *Heap) At(off int32) string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.values[off]
}

// Len reports the number of distinct values interned so far.
func (h *Heap) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.values)
}

// Share increments the heap's reference count and returns it, the Go
// analogue of the external heap_share(dst, src) service: an output table
// that reuses its input's heap calls Share instead of copying bytes.
func (h *Heap) Share() *Heap {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refcount++
	return h
}

// Release decrements the reference count. The heap is not actually freed
// here (the Go GC will reclaim it once unreachable); Release exists so
// reference-count bookkeeping mirrors the external heap manager's
// contract (spec §3, "the share must be reference-counted").
func (h *Heap) Release() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.refcount--
}

// RefCount reports the current reference count, for diagnostics and
// tests.
func (h *Heap) RefCount() int32 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refcount
}
