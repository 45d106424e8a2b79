package join

import (
	"context"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/estimate"
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/table"
)

// mergeState names the states of the per-left-chunk state machine of
// spec §4.4.9. The implementation below is a straightforward Go loop,
// but it visits exactly these states in this order; the names are kept
// as a comment-level cross-reference rather than an explicit type
// because Go's switch-in-a-loop already reads as the state machine it
// is.
//
//	Probing          -> scan budget not exhausted: remain
//	                 -> exhausted: BinarySearching
//	                 -> match: EmittingRange
//	BinarySearching  -> found: EmittingRange
//	                 -> not found: AdvancingLeft
//	EmittingRange    -> output full: stop, report limit
//	                 -> done: AdvancingLeft
//	AdvancingLeft    -> l_start >= l_last: Done
//	                 -> else: Probing
const mergeStateDoc = "see spec §4.4.9"

// MergeOptions configures one merge-join call.
type MergeOptions struct {
	// MissValue, when true, makes a left chunk with no right match
	// emit one tuple per left row paired with a nil tail (the
	// outer-join variant of spec §4.4.1 step 4) instead of being
	// skipped.
	MissValue bool
	// SizeHint, if non-zero, is trusted by the estimator and used to
	// preallocate the output.
	SizeHint int
	// LimitFraction, if in (0, 1], makes merge-join stop early once
	// the output has grown to that fraction of its allocated
	// capacity, reporting how much of the left side it consumed.
	LimitFraction float64
}

// MergeResult reports how much of the budget variant (spec §4.4.1,
// "Budget variant") consumed.
type MergeResult struct {
	Output      *table.Table
	LeftConsumed int
	LimitHit     bool
}

// Merge runs merge-join: spec §4.4.1. Precondition: right.HeadFlags.Sorted.
func Merge(env *Env, left, right *table.Table, opts MergeOptions) (MergeResult, error) {
	if !right.HeadFlags.Sorted {
		return MergeResult{}, jointypes.ErrNotSorted.New()
	}

	sizeHint := opts.SizeHint
	if sizeHint == 0 {
		n, err := estimate.Estimate(env.Ctx, left, right, estimate.Params{T: env.Cfg.SamplingExponent}, sampleJoinCount(env, opts), env.Svc.(estimate.Sampler), env.logger())
		if err != nil {
			return MergeResult{}, err
		}
		sizeHint = n
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), sizeHint)
	if err != nil {
		return MergeResult{}, jointypes.ErrOutOfMemory.New("merge-join output", sizeHint)
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)
	bothSorted := left.TailFlags.Sorted && right.HeadFlags.Sorted

	scanBudget := scanBudgetFor(right.Len(), env.Cfg.ScanBudgetFactor)

	capLimit := -1
	if opts.LimitFraction > 0 && opts.LimitFraction <= 1 {
		capLimit = int(float64(sizeHint) * opts.LimitFraction)
		if capLimit < 1 {
			capLimit = 1
		}
	}

	rightCursor := 0
	tailStillSorted := true
	var prevTailHash *uint64
	leftConsumed := 0
	limitHit := false

	n := left.Len()
	lStart := 0
	for lStart < n {
		lEnd := lStart + 1
		if left.TailFlags.Sorted {
			for lEnd < n && leftKey.EqualAt(lStart, leftKey, lEnd) {
				lEnd++
			}
		}

		var rStart, rEnd int
		matched := false
		if left.Tail.IsNil(lStart) {
			matched = false
		} else {
			// Probing / BinarySearching states.
			pos, ok, newCursor := probeRight(rightKey, right.Len(), rightCursor, leftKey, lStart, scanBudget, bothSorted)
			if bothSorted {
				rightCursor = newCursor
			}
			if ok {
				rStart = pos
				rEnd = rStart + 1
				for rEnd < right.Len() && rightKey.EqualAt(rStart, rightKey, rEnd) && !right.Head.IsNil(rEnd) {
					rEnd++
				}
				matched = true
			}
		}

		if matched {
			// EmittingRange state: Cartesian product of the two
			// equal-value ranges, in physical (input) order.
			for li := lStart; li < lEnd; li++ {
				for ri := rStart; ri < rEnd; ri++ {
					if err := appendTuple(out, left, li, right, ri); err != nil {
						return MergeResult{}, err
					}
					checkTailOrder(out, &tailStillSorted, &prevTailHash)
					if capLimit > 0 && out.Len() >= capLimit {
						limitHit = true
						break
					}
				}
				if limitHit {
					break
				}
			}
		} else if opts.MissValue {
			for li := lStart; li < lEnd; li++ {
				if err := appendMiss(out, left, li); err != nil {
					return MergeResult{}, err
				}
			}
		}

		leftConsumed = lEnd
		if limitHit {
			break
		}
		lStart = lEnd // AdvancingLeft state.
	}

	mustRederive := property.Derive(out, property.Input{
		Left:                     left.Flags(table.Head),
		Right:                    right.Flags(table.Tail),
		RightHeadUnique:          right.HeadFlags.Key,
		EveryLeftContributes:     opts.MissValue,
		LeftTailUniqueAndSorted:  left.TailFlags.Key && left.TailFlags.Sorted,
		EveryRightHitExactlyOnce: right.HeadFlags.Key,
		BothKeyOnJoinSide:        left.TailFlags.Key && right.HeadFlags.Key,
		InjectsNils:              opts.MissValue,
	})
	if mustRederive {
		out.TailFlags.Sorted = tailStillSorted
	} else if !out.TailFlags.Sorted {
		out.TailFlags.Sorted = tailStillSorted
	}

	return MergeResult{Output: guard.Commit(), LeftConsumed: leftConsumed, LimitHit: limitHit}, nil
}

// scanBudgetFor returns W = factor * ceil(log2(n)), spec §4.4.1.
func scanBudgetFor(n, factor int) int {
	if n <= 1 {
		return factor
	}
	bits := 0
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return factor * bits
}

// probeRight implements the opportunistic scan / binary search hybrid.
// It returns the first matching position, whether a match was found, and
// the cursor to resume from on the next call (only meaningful when
// bothSorted).
func probeRight(rightKey column.Keyed, rightLen, cursor int, leftKey column.Keyed, lIdx, budget int, bothSorted bool) (pos int, ok bool, nextCursor int) {
	start := cursor
	if !bothSorted {
		start = 0
	}

	steps := 0
	i := start
	for i < rightLen && steps < budget {
		cmp := rightKey.CompareAt(i, leftKey, lIdx)
		if cmp == 0 {
			return i, true, i
		}
		if cmp > 0 {
			// Scanned past v: no match for this chunk, and (when
			// both sides are sorted) the next chunk starts no
			// earlier than here.
			return 0, false, i
		}
		i++
		steps++
	}

	if i >= rightLen {
		return 0, false, rightLen
	}

	// Budget exhausted: fall back to binary search over the
	// remainder.
	lo, hi := i, rightLen
	for lo < hi {
		mid := (lo + hi) / 2
		if rightKey.CompareAt(mid, leftKey, lIdx) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < rightLen && rightKey.CompareAt(lo, leftKey, lIdx) == 0 {
		return lo, true, lo
	}
	return 0, false, lo
}

func appendTuple(out *table.Table, left *table.Table, li int, right *table.Table, ri int) error {
	if err := out.Head.AppendFrom(left.Head, li); err != nil {
		return err
	}
	if err := out.Tail.AppendFrom(right.Tail, ri); err != nil {
		return err
	}
	out.Count++
	return nil
}

// appendMiss appends (left.head[li], nil) for the outer-join miss
// policy.
func appendMiss(out *table.Table, left *table.Table, li int) error {
	if err := out.Head.AppendFrom(left.Head, li); err != nil {
		return err
	}
	appendNilTail(out)
	out.Count++
	out.TailFlags.Nonil = false
	return nil
}

// appendNilTail appends the tag-appropriate nil sentinel to out.Tail.
func appendNilTail(out *table.Table) {
	out.Tail.AppendNil()
}

func checkTailOrder(out *table.Table, stillSorted *bool, prevHash *uint64) {
	if !*stillSorted || out.Count < 2 {
		return
	}
	keyed, ok := out.Tail.(column.Keyed)
	if !ok {
		return
	}
	if keyed.CompareAt(out.Count-2, keyed, out.Count-1) > 0 {
		*stillSorted = false
	}
}

func sampleJoinCount(env *Env, opts MergeOptions) estimate.JoinFunc {
	return func(ctx context.Context, left, right *table.Table) (int, error) {
		sample, err := Merge(env, left, right, MergeOptions{MissValue: opts.MissValue, SizeHint: left.Len() + 1})
		if err != nil {
			return 0, err
		}
		return sample.Output.Len(), nil
	}
}
