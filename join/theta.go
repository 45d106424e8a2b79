package join

import (
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/table"
)

// ThetaOp names the five predicates a theta-join can test, spec §4.4.4.
// Eq is accepted for completeness but the planner always routes it to
// the equi-join family instead (spec §4.5, "Theta-join: `=` is routed to
// equi-join").
type ThetaOp int

const (
	ThetaLess ThetaOp = iota
	ThetaLessEqual
	ThetaEq
	ThetaGreaterEqual
	ThetaGreater
)

func (op ThetaOp) test(cmp int) bool {
	switch op {
	case ThetaLess:
		return cmp < 0
	case ThetaLessEqual:
		return cmp <= 0
	case ThetaEq:
		return cmp == 0
	case ThetaGreaterEqual:
		return cmp >= 0
	case ThetaGreater:
		return cmp > 0
	default:
		return false
	}
}

// ThetaOptions configures a theta-join call.
type ThetaOptions struct {
	SizeHint int
}

// Theta runs the nested-loop theta-join of spec §4.4.4: for every
// non-nil pair (left.tail[i], right.head[j]) satisfying
// op.test(compare(left.tail[i], right.head[j])), emit (left.head[i],
// right.tail[j]). The inner loop is kept 8-wide, mirroring the source's
// unrolled branchless increment `cur += predicate(v, r[j])`; Go's own
// append-based growth plays the role of the source's doubling-with-
// live-rate-extrapolation allocator, so TableExtend is only consulted as
// a periodic sizing hint rather than a hard precondition.
func Theta(env *Env, left, right *table.Table, op ThetaOp, opts ThetaOptions) (*table.Table, error) {
	initCap := opts.SizeHint
	if initCap == 0 {
		initCap = 8
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), initCap)
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("theta-join output", initCap)
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

		j := 0
		for ; j+8 <= nr; j += 8 {
			for u := 0; u < 8; u++ {
				rpos := j + u
				if right.Head.IsNil(rpos) {
					continue
				}
				if op.test(leftKey.CompareAt(i, rightKey, rpos)) {
					if err := appendTuple(out, left, i, right, rpos); err != nil {
						return nil, err
					}
					cur++
				}
			}
		}
		for ; j < nr; j++ {
			if right.Head.IsNil(j) {
				continue
			}
			if op.test(leftKey.CompareAt(i, rightKey, j)) {
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
	out.TailFlags.Sorted = false
	out.TailFlags.RevSorted = false

	return guard.Commit(), nil
}

// extrapolate computes the live-rate capacity hint of spec §4.4.4,
// `cap <- 8 + cur*(|L|/(i+1))`, and passes it to TableExtend so a
// storage.Service backed by a real pre-sized allocator can act on it.
func extrapolate(env *Env, out *table.Table, nl, i, cur int) {
	rate := float64(nl) / float64(i+1)
	cap := 8 + int(float64(cur)*rate)
	_ = env.Svc.TableExtend(out, cap)
}
