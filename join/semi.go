package join

import (
	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/table"
)

// SemiStrategy names the execution strategies the planner's seven-way
// selection (spec §4.5) ultimately reduces to. Candidate 1 (synced
// copy) is cheap enough that the planner applies it directly without
// calling into this package; candidates 2/3 (a dense right head) run
// through SemiFetch. SemiFetch, SemiHash, and SemiMerge are the "three core
// implementations" spec §4.4.6 names.
type SemiStrategy int

const (
	// SemiFetch: right head is dense/void; a left row matches iff its
	// tail, read as an oid, falls within right's seqbase range.
	SemiFetch SemiStrategy = iota
	// SemiHash: hash intersection against a hash index on right.head
	// (or, when the planner reverses the probe direction, on
	// left.tail -- see ReverseProbe).
	SemiHash
	// SemiMerge: binary search (or a merge scan) of a sorted right
	// for each left row.
	SemiMerge
)

// SemiOptions configures a semi-join call.
type SemiOptions struct {
	Strategy SemiStrategy
	// ReverseProbe, valid only with SemiHash, builds the hash index on
	// left.Tail and iterates right instead (spec §4.5 strategy 5,
	// "reverse-hash semi"), de-duplicating right on the fly.
	ReverseProbe bool
}

// Semi runs semi-join: spec §4.4.6. Only left's tuples that have at
// least one match in right are kept, each emitted exactly once (spec §8,
// "Idempotence: semi_join(L, L) ≡ L").
func Semi(env *Env, left, right *table.Table, opts SemiOptions) (*table.Table, error) {
	switch opts.Strategy {
	case SemiFetch:
		return semiFetch(env, left, right)
	case SemiMerge:
		return semiMerge(env, left, right)
	default:
		if opts.ReverseProbe {
			return semiHashReverse(env, left, right)
		}
		return semiHash(env, left, right)
	}
}

func newSemiOutput(env *Env, left *table.Table) (*table.Table, *table.Guard, error) {
	out, err := env.Svc.TableNew(left.Head.Tag(), left.Tail.Tag(), left.Len())
	if err != nil {
		return nil, nil, jointypes.ErrOutOfMemory.New("semi-join output", left.Len())
	}
	return out, table.NewGuard(out), nil
}

func appendWholeRow(out *table.Table, left *table.Table, i int) error {
	if err := out.Head.AppendFrom(left.Head, i); err != nil {
		return err
	}
	if err := out.Tail.AppendFrom(left.Tail, i); err != nil {
		return err
	}
	out.Count++
	return nil
}

func semiFetch(env *Env, left, right *table.Table) (*table.Table, error) {
	rightHeadVoid, ok := right.Head.(*column.Void)
	if !ok || !rightHeadVoid.Dense() {
		return nil, jointypes.ErrWrongShape.New()
	}

	out, guard, err := newSemiOutput(env, left)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	lo := int(rightHeadVoid.Seqbase)
	hi := lo + right.Len()

	for i := 0; i < left.Len(); i++ {
		if left.Tail.IsNil(i) {
			continue
		}
		v := int(leftOIDAt(left.Tail, i))
		if v >= lo && v < hi {
			if err := appendWholeRow(out, left, i); err != nil {
				return nil, err
			}
		}
	}

	out.HeadFlags = left.HeadFlags
	out.TailFlags = left.TailFlags
	return guard.Commit(), nil
}

func semiMerge(env *Env, left, right *table.Table) (*table.Table, error) {
	if !right.HeadFlags.Sorted {
		return nil, jointypes.ErrNotSorted.New()
	}

	out, guard, err := newSemiOutput(env, left)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)

	for i := 0; i < left.Len(); i++ {
		if left.Tail.IsNil(i) {
			continue
		}
		lo, hi := 0, right.Len()
		for lo < hi {
			mid := (lo + hi) / 2
			if rightKey.CompareAt(mid, leftKey, i) < 0 {
				lo = mid + 1
			} else {
				hi = mid
			}
		}
		if lo < right.Len() && rightKey.EqualAt(lo, leftKey, i) {
			if err := appendWholeRow(out, left, i); err != nil {
				return nil, err
			}
		}
	}

	out.HeadFlags = left.HeadFlags
	out.TailFlags = left.TailFlags
	return guard.Commit(), nil
}

func semiHash(env *Env, left, right *table.Table) (*table.Table, error) {
	if err := env.Svc.HashBuild(right, table.Head); err != nil {
		return nil, err
	}

	out, guard, err := newSemiOutput(env, left)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)

	for i := 0; i < left.Len(); i++ {
		if left.Tail.IsNil(i) {
			continue
		}
		h := leftKey.HashAt(i)
		for _, j := range env.Svc.HashLookup(right, table.Head, h) {
			if rightKey.EqualAt(j, leftKey, i) {
				if err := appendWholeRow(out, left, i); err != nil {
					return nil, err
				}
				break
			}
		}
	}

	out.HeadFlags = left.HeadFlags
	out.TailFlags = left.TailFlags
	return guard.Commit(), nil
}

// semiHashReverse builds the hash on left.Tail instead (cheaper when
// right is much smaller than left, spec §4.5 strategy 5) and iterates
// right, de-duplicating right values on the fly so a right value is
// only ever used to admit its matching left rows once per distinct
// value.
func semiHashReverse(env *Env, left, right *table.Table) (*table.Table, error) {
	if err := env.Svc.HashBuild(left, table.Tail); err != nil {
		return nil, err
	}

	out, guard, err := newSemiOutput(env, left)
	if err != nil {
		return nil, err
	}
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)

	seen := make(map[uint64][]int, right.Len())
	admitted := make(map[int]bool, left.Len())

	for j := 0; j < right.Len(); j++ {
		if right.Head.IsNil(j) {
			continue
		}
		h := rightKey.HashAt(j)
		duplicate := false
		for _, prev := range seen[h] {
			if rightKey.EqualAt(prev, rightKey, j) {
				duplicate = true
				break
			}
		}
		if duplicate {
			continue
		}
		seen[h] = append(seen[h], j)
		for _, i := range env.Svc.HashLookup(left, table.Tail, h) {
			if admitted[i] || !leftKey.EqualAt(i, rightKey, j) {
				continue
			}
			admitted[i] = true
		}
	}

	for i := 0; i < left.Len(); i++ {
		if admitted[i] {
			if err := appendWholeRow(out, left, i); err != nil {
				return nil, err
			}
		}
	}

	out.HeadFlags = left.HeadFlags
	out.TailFlags = left.TailFlags
	return guard.Commit(), nil
}
