package table

import "github.com/colbat/batjoin/jointypes"

// keyedHasher is the subset of column.Keyed the hash index needs.
type keyedHasher interface {
	HashAt(i int) uint64
}

// HashIndex maps a value's hash to the tuple positions on one side of a
// Table where it occurs (spec §3, "Hash Index"). It is built on demand
// and cached on the Table; a Table caches one index at a time, so a
// build on the other side replaces it (see BuildHash).
type HashIndex struct {
	side    Side
	buckets map[uint64][]int
}

// BuildHash builds (or reuses) the hash index on side. Idempotent:
// calling it twice for the same side is a no-op. Building a hash on the
// other side after one already exists replaces it, since a Table only
// caches one hash index at a time in this implementation -- the planner
// never needs both sides hashed in a single call.
//
// The build happens under the Table's single lock (spec §5: "one lock
// per Table; never acquire two locks simultaneously"). HasHash and
// HashLookup take the same lock, so readers also lock.
func (t *Table) BuildHash(side Side) error {
	t.hashMu.Lock()
	defer t.hashMu.Unlock()
	t.traceLock("hash-build")

	if t.built && t.hashOn == side {
		return nil
	}

	keyed, ok := t.Column(side).(keyedHasher)
	if !ok {
		return jointypes.ErrWrongShape.New()
	}

	idx := &HashIndex{side: side, buckets: make(map[uint64][]int, t.Count)}
	for i := 0; i < t.Count; i++ {
		if t.Column(side).IsNil(i) {
			continue
		}
		h := keyed.HashAt(i)
		idx.buckets[h] = append(idx.buckets[h], i)
	}

	t.hash = idx
	t.hashOn = side
	t.built = true
	return nil
}

// HasHash reports whether a hash index already exists for side.
func (t *Table) HasHash(side Side) bool {
	t.hashMu.Lock()
	defer t.hashMu.Unlock()
	return t.built && t.hashOn == side
}

// HashLookup walks the chain of tuple positions whose hash matches h,
// the Go analogue of the external hash_lookup(t, side, v) service (spec
// §6). Callers still must confirm equality themselves since this index
// is hash-bucketed, not value-bucketed.
func (t *Table) HashLookup(h uint64) []int {
	t.hashMu.Lock()
	defer t.hashMu.Unlock()
	if t.hash == nil {
		return nil
	}
	return t.hash.buckets[h]
}

func (t *Table) traceLock(name string) {
	if t.tracer != nil {
		t.tracer.Trace(name)
	}
}
