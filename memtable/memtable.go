// Package memtable is the in-process reference implementation of
// storage.Service, analogous to the teacher's memory package: a
// plain-Go backing store good enough for tests and for small embedded
// uses of the engine, but not the persistent buffer pool spec §1 excludes
// from scope.
package memtable

import (
	"math/rand"
	"sort"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

// Service is a storage.Service backed by plain Go slices.
type Service struct {
	rng *rand.Rand
}

// New returns a Service. The optional seed makes RandomSample
// deterministic for tests; 0 is treated as seed 1, so every Service is
// deterministic.
func New(seed int64) *Service {
	if seed == 0 {
		seed = 1
	}
	return &Service{rng: rand.New(rand.NewSource(seed))}
}

func (s *Service) TableNew(headTag, tailTag typetag.Tag, capacity int) (*table.Table, error) {
	return table.New(headTag, tailTag, capacity), nil
}

func (s *Service) TableExtend(t *table.Table, newCap int) error {
	t.Head.Grow(newCap)
	t.Tail.Grow(newCap)
	return nil
}

func (s *Service) TableSlice(t *table.Table, lo, hi int) (*table.Table, error) {
	return t.Slice(lo, hi), nil
}

func (s *Service) TableMirror(t *table.Table) (*table.Table, error) {
	return t.Mirror(), nil
}

func (s *Service) HashBuild(t *table.Table, side table.Side) error {
	return t.BuildHash(side)
}

func (s *Service) HashLookup(t *table.Table, side table.Side, hash uint64) []int {
	if !t.HasHash(side) {
		return nil
	}
	return t.HashLookup(hash)
}

func (s *Service) Sort(t *table.Table, side table.Side) (*table.Table, error) {
	return sortTable(t, side, false)
}

func (s *Service) StableSort(t *table.Table, side table.Side) (*table.Table, error) {
	return sortTable(t, side, true)
}

func sortTable(t *table.Table, side table.Side, stable bool) (*table.Table, error) {
	n := t.Len()
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	keyed := t.Keyed(side)
	less := func(i, j int) bool {
		return keyed.CompareAt(perm[i], keyed, perm[j]) < 0
	}
	if stable {
		sort.SliceStable(perm, less)
	} else {
		sort.Slice(perm, less)
	}

	out := table.New(t.Head.Tag(), t.Tail.Tag(), n)
	for _, i := range perm {
		if err := out.Head.AppendFrom(t.Head, i); err != nil {
			return nil, err
		}
		if err := out.Tail.AppendFrom(t.Tail, i); err != nil {
			return nil, err
		}
	}
	out.Count = n

	sortedFlags := table.Flags{Sorted: true, Key: t.Flags(side).Key, Nonil: t.Flags(side).Nonil}
	otherSide := table.Head
	if side == table.Head {
		otherSide = table.Tail
	}
	out.SetFlags(side, sortedFlags)
	out.SetFlags(otherSide, table.Flags{})
	return out, nil
}

func (s *Service) SortedLowerBound(t *table.Table, side table.Side, probe *table.Table, probeSide table.Side, probeIdx int) int {
	keyed := t.Keyed(side)
	probeKeyed := probe.Keyed(probeSide)
	return sort.Search(t.Len(), func(i int) bool {
		return keyed.CompareAt(i, probeKeyed, probeIdx) >= 0
	})
}

func (s *Service) HeapShare(dst, src *table.Table, side table.Side) error {
	dstCol, dstOK := dst.Column(side).(*column.Strings)
	srcCol, srcOK := src.Column(side).(*column.Strings)
	if !dstOK || !srcOK {
		return jointypes.ErrWrongShape.New()
	}
	dstCol.ShareHeap(srcCol)
	return nil
}

func (s *Service) RandomSample(t *table.Table, n int) (*table.Table, error) {
	if n > t.Len() {
		n = t.Len()
	}
	idx := s.rng.Perm(t.Len())[:n]
	sort.Ints(idx)

	out := table.New(t.Head.Tag(), t.Tail.Tag(), n)
	for _, i := range idx {
		if err := out.Head.AppendFrom(t.Head, i); err != nil {
			return nil, err
		}
		if err := out.Tail.AppendFrom(t.Tail, i); err != nil {
			return nil, err
		}
	}
	out.Count = n
	return out, nil
}
