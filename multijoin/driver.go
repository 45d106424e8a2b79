// Package multijoin implements the N-way equi-join driver of spec §4.6:
// given k input Tables and two callbacks, it matches all of them on
// their head column and invokes the callbacks for every tuple in the
// Cartesian product of matches. It is a separate entry point from
// package plan/join -- it composes their single-column matching
// primitives rather than calling the binary planner k-1 times, which
// would lose the "abort on first empty column" short-circuit of spec
// §4.6 step 4.
package multijoin

import (
	"encoding/binary"
	"sort"

	"github.com/mitchellh/hashstructure"
	"github.com/sirupsen/logrus"
	"github.com/spaolacci/murmur3"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/join"
	"github.com/colbat/batjoin/table"
)

// PerValue is invoked whenever the driver moves to a new value on
// column colIndex (spec §4.6 step 5, "per_value on a column-value
// change"). pos is that column's table position for the new value.
type PerValue func(colIndex, pos int)

// PerTuple is invoked once per emitted tuple, at the innermost level of
// the Cartesian product recursion. positions[i] is the matching
// position in cols[i] for this tuple.
type PerTuple func(positions []int)

// Result is the status bitmap of spec §4.6 step 6.
type Result struct {
	SortedOutput bool
	AllKey       bool
	OneToOne     bool
	LeadIndex    int
}

type probeKind int

const (
	probeSynced probeKind = iota
	probeSortedMerge
	probeSortedBinary
	probeKeyHash
	probeHashChain
)

func (k probeKind) String() string {
	switch k {
	case probeSynced:
		return "synced"
	case probeSortedMerge:
		return "sorted-merge"
	case probeSortedBinary:
		return "sorted-binary"
	case probeKeyHash:
		return "key-hash"
	case probeHashChain:
		return "hash-chain"
	default:
		return "unknown"
	}
}

// probe holds the per-column matching strategy chosen once, up front,
// for the lifetime of one Drive call.
type probe struct {
	kind  probeKind
	table *table.Table
	index map[uint64][]int // probeKeyHash, probeHashChain
	// mergeCursor only moves forward; chooseProbe picks
	// probeSortedMerge only when the lead's head is flagged sorted and
	// probeSortedBinary otherwise.
	mergeCursor int
}

// Drive matches cols on their head column and invokes perValue/perTuple
// over the Cartesian product of matches, per spec §4.6. orderByIndex, if
// not negative, names a column that must lead regardless of size (spec.md's
// Design Notes: "the source prioritizes the explicitly ordered column,
// overriding size-order. This must be preserved."); pass -1 to fall back
// to plain ascending-size lead selection.
func Drive(env *join.Env, cols []*table.Table, orderByIndex int, perValue PerValue, perTuple PerTuple) (Result, error) {
	order := leadOrder(cols, orderByIndex)
	leadOrig := order[0]
	lead := cols[leadOrig]

	log := env.Log
	if log == nil {
		log = logrus.NewEntry(logrus.New())
	}
	log = log.WithField("op", "multi_join").WithField("lead", leadOrig).WithField("columns", len(cols))
	if orderByIndex >= 0 {
		log.Debug("lead forced by order_by_index")
	} else {
		log.Debug("lead selected by ascending size")
	}

	probes := make([]*probe, len(cols))
	allKey := true
	for _, origIdx := range order[1:] {
		c := cols[origIdx]
		probes[origIdx] = chooseProbe(lead, c)
		log.WithField("column", origIdx).WithField("strategy", probes[origIdx].kind).Debug("probe strategy chosen")
		allKey = allKey && c.HeadFlags.Key
	}
	allKey = allKey && lead.HeadFlags.Key

	oneToOne := true
	positions := make([]int, len(cols))

	for leadPos := 0; leadPos < lead.Len(); leadPos++ {
		if lead.Head.IsNil(leadPos) {
			continue
		}
		positions[leadOrig] = leadPos

		matches := make([][]int, len(cols))
		aborted := false
		for _, origIdx := range order[1:] {
			m := matchPositions(lead, leadPos, cols[origIdx], probes[origIdx])
			if len(m) == 0 {
				aborted = true
				break
			}
			if len(m) != 1 {
				oneToOne = false
			}
			matches[origIdx] = m
		}
		if aborted {
			continue
		}

		perValue(leadOrig, leadPos)
		recurse(order[1:], 0, matches, positions, cols, perValue, perTuple)
	}

	return Result{
		SortedOutput: lead.HeadFlags.Sorted,
		AllKey:       allKey,
		OneToOne:     oneToOne,
		LeadIndex:    leadOrig,
	}, nil
}

// recurse walks the Cartesian product of the remaining columns'
// matches, calling perValue on entry to each column's level and
// perTuple at the leaf, per spec §4.6 step 5.
func recurse(remaining []int, depth int, matches [][]int, positions []int, cols []*table.Table, perValue PerValue, perTuple PerTuple) {
	if depth == len(remaining) {
		out := make([]int, len(positions))
		copy(out, positions)
		perTuple(out)
		return
	}
	colIdx := remaining[depth]
	for _, pos := range matches[colIdx] {
		positions[colIdx] = pos
		perValue(colIdx, pos)
		recurse(remaining, depth+1, matches, positions, cols, perValue, perTuple)
	}
}

// leadOrder returns column indices sorted by ascending Len(); the
// smallest becomes the lead (spec §4.6 step 1). When orderByIndex is a
// valid index into cols, it overrides size-order entirely: that column
// leads no matter how large it is, and the rest keep their relative
// ascending-size order behind it. A caller cannot get this effect by
// reordering cols up front -- a genuinely smaller column still sorts
// ahead of it regardless of input order -- so the override has to be
// applied here, after the size sort, not left to the caller.
func leadOrder(cols []*table.Table, orderByIndex int) []int {
	order := make([]int, len(cols))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return cols[order[i]].Len() < cols[order[j]].Len()
	})
	if orderByIndex < 0 || orderByIndex >= len(cols) {
		return order
	}
	forced := make([]int, 0, len(cols))
	forced = append(forced, orderByIndex)
	for _, idx := range order {
		if idx != orderByIndex {
			forced = append(forced, idx)
		}
	}
	return forced
}

// chooseProbe picks a per-column strategy, spec §4.6 step 3. Sync
// detection is structural (hashstructure over a cheap fingerprint of
// the column's shape), since two columns produced by independent
// operators can carry the same logical order without being the same
// Go value.
func chooseProbe(lead, c *table.Table) *probe {
	if syncedWith(lead, c) {
		return &probe{kind: probeSynced, table: c}
	}
	if c.HeadFlags.Sorted {
		if lead.HeadFlags.Sorted {
			return &probe{kind: probeSortedMerge, table: c}
		}
		return &probe{kind: probeSortedBinary, table: c}
	}
	if c.HeadFlags.Key {
		return &probe{kind: probeKeyHash, table: c, index: buildSecondaryIndex(c)}
	}
	return &probe{kind: probeHashChain, table: c, index: buildSecondaryIndex(c)}
}

// syncedWith reports whether c's head column already carries the same
// alignment as lead's: same length and, for the dense/void case the
// planner also special-cases, the same fingerprint of seqbase and
// count. hashstructure turns that fingerprint comparison into a single
// equality check instead of a field-by-field one, and is the hook a
// future synced-detection extension (comparing actual value sequences,
// not just shape) would hang off of.
func syncedWith(lead, c *table.Table) bool {
	if lead.Len() != c.Len() {
		return false
	}
	lv, lok := leadDenseSeq(lead)
	cv, cok := leadDenseSeq(c)
	if !lok || !cok {
		return false
	}
	lh, err1 := hashstructure.Hash(lv, nil)
	ch, err2 := hashstructure.Hash(cv, nil)
	return err1 == nil && err2 == nil && lh == ch
}

func leadDenseSeq(t *table.Table) ([2]uint64, bool) {
	v, ok := t.Column(table.Head).(*column.Void)
	if !ok || !v.Dense() {
		return [2]uint64{}, false
	}
	return [2]uint64{uint64(v.Seqbase), uint64(t.Len())}, true
}

// buildSecondaryIndex hashes every non-nil head value of c through a
// second hash family (murmur3 over the value's own HashAt), separate
// from the xxhash/fnv family table.HashIndex uses, so a multi-way join
// probing many columns at once is not bottlenecked on a single hash
// function's collision behavior.
func buildSecondaryIndex(c *table.Table) map[uint64][]int {
	keyed := c.Keyed(table.Head)
	idx := make(map[uint64][]int, c.Len())
	var buf [8]byte
	for i := 0; i < c.Len(); i++ {
		if c.Head.IsNil(i) {
			continue
		}
		binary.LittleEndian.PutUint64(buf[:], keyed.HashAt(i))
		h := murmur3.Sum64(buf[:])
		idx[h] = append(idx[h], i)
	}
	return idx
}

// matchPositions returns c's matching positions for lead's value at
// leadPos, using whatever strategy p.kind selected.
func matchPositions(lead *table.Table, leadPos int, c *table.Table, p *probe) []int {
	leadKeyed := lead.Keyed(table.Head)
	cKeyed := c.Keyed(table.Head)

	switch p.kind {
	case probeSynced:
		if leadPos < c.Len() && cKeyed.EqualAt(leadPos, leadKeyed, leadPos) {
			return []int{leadPos}
		}
		return nil

	case probeSortedMerge:
		for p.mergeCursor < c.Len() && cKeyed.CompareAt(p.mergeCursor, leadKeyed, leadPos) < 0 {
			p.mergeCursor++
		}
		lo := p.mergeCursor
		var out []int
		for i := lo; i < c.Len() && cKeyed.CompareAt(i, leadKeyed, leadPos) == 0; i++ {
			out = append(out, i)
		}
		return out

	case probeSortedBinary:
		n := c.Len()
		lo, hi := 0, n
		for lo < hi {
			mid := (lo + hi) / 2
			if cKeyed.CompareAt(mid, leadKeyed, leadPos) < 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		var out []int
		for i := lo; i < n && cKeyed.CompareAt(i, leadKeyed, leadPos) == 0; i++ {
			out = append(out, i)
		}
		return out

	case probeKeyHash, probeHashChain:
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], leadKeyed.HashAt(leadPos))
		h := murmur3.Sum64(buf[:])
		var out []int
		for _, i := range p.index[h] {
			if cKeyed.EqualAt(i, leadKeyed, leadPos) {
				out = append(out, i)
			}
		}
		return out
	}
	return nil
}
