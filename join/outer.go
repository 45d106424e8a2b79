package join

import (
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/table"
)

// OuterOptions configures an outer-join call.
type OuterOptions struct {
	SizeHint int
}

// Outer runs outer-join: spec §4.4.5. When right is sorted and not
// dense, it is merge-join with a nil miss-value; otherwise it is a
// hash-probe where a left row with no hits still emits one tuple,
// paired with nil.
func Outer(env *Env, left, right *table.Table, opts OuterOptions) (*table.Table, error) {
	if right.HeadFlags.Sorted && !right.HeadFlags.Dense {
		res, err := Merge(env, left, right, MergeOptions{MissValue: true, SizeHint: opts.SizeHint})
		if err != nil {
			return nil, err
		}
		return res.Output, nil
	}

	if err := env.Svc.HashBuild(right, table.Head); err != nil {
		return nil, err
	}

	sizeHint := opts.SizeHint
	if sizeHint == 0 {
		// Outer-join always emits at least left.Len() tuples (a miss
		// still emits one row), so that is a safe, cheap starting
		// estimate; Go's own append-based growth absorbs any
		// underestimate from duplicate matches without a resize
		// storm, so the full logarithmic-sampling estimator is
		// unneeded here.
		sizeHint = left.Len()
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), sizeHint)
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("outer-join output", sizeHint)
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)

	for i := 0; i < left.Len(); i++ {
		hits := 0
		if !left.Tail.IsNil(i) {
			h := leftKey.HashAt(i)
			for _, j := range env.Svc.HashLookup(right, table.Head, h) {
				if !rightKey.EqualAt(j, leftKey, i) {
					continue
				}
				if err := appendTuple(out, left, i, right, j); err != nil {
					return nil, err
				}
				hits++
			}
		}
		if hits == 0 {
			if err := appendMiss(out, left, i); err != nil {
				return nil, err
			}
		}
	}

	property.Derive(out, property.Input{
		Left:                 left.Flags(table.Head),
		Right:                right.Flags(table.Tail),
		EveryLeftContributes: true,
		InjectsNils:          true,
	})
	out.HeadFlags.Sorted = left.HeadFlags.Sorted
	out.HeadFlags.RevSorted = left.HeadFlags.RevSorted

	return guard.Commit(), nil
}
