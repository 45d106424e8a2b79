package join

import (
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/table"
)

// AntiOptions configures an anti-join call.
type AntiOptions struct {
	SizeHint int
}

// Anti runs anti-join: spec §4.4.7. For every pair (l, r) with neither
// side nil and compare(l.tail, r.head) != 0, emit (l.head, r.tail). A
// single-row left specializes to an anti-select over right (scenario 6);
// a single-row right specializes to a per-row not-equal filter over
// left. Both specializations fall out of the same nested loop, so they
// are not split into separate code paths here.
func Anti(env *Env, left, right *table.Table, opts AntiOptions) (*table.Table, error) {
	initCap := opts.SizeHint
	if initCap == 0 {
		// Anti-join output is rarely near the full cross product; start
		// from a cheap lower bound and let append growth, aided by the
		// periodic extrapolate() hint below, take it from there.
		initCap = left.Len() + right.Len()
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), initCap)
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("anti-join output", initCap)
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)
	nl, nr := left.Len(), right.Len()

	cur := 0
	for i := 0; i < nl; i++ {
		if left.Tail.IsNil(i) {
			continue
		}
		for j := 0; j < nr; j++ {
			if right.Head.IsNil(j) {
				continue
			}
			if leftKey.CompareAt(i, rightKey, j) != 0 {
				if err := appendTuple(out, left, i, right, j); err != nil {
					return nil, err
				}
				cur++
			}
		}
		if i > 0 && i%8 == 0 {
			extrapolate(env, out, nl, i, cur)
		}
	}

	property.Derive(out, property.Input{
		Left:  left.Flags(table.Head),
		Right: right.Flags(table.Tail),
	})
	out.HeadFlags.Sorted = false
	out.HeadFlags.RevSorted = false
	out.HeadFlags.Key = false
	out.TailFlags.Sorted = false
	out.TailFlags.RevSorted = false

	return guard.Commit(), nil
}
