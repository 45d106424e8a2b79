// Package property implements the rules of spec §4.2: how sortedness,
// reverse-sortedness, key-ness, density, and nil-freedom propagate from a
// join's inputs to its output. These are contracts the physical joins in
// package join must honor by calling Derive (or, when an operator's
// semantics make the general rule unsound -- the string trick, a void
// right tail -- by re-deriving from scratch after construction, as spec
// §4.2 requires).
package property

import "github.com/colbat/batjoin/table"

// Input bundles the facts Derive needs about an equi-style join's
// inputs and the join itself. Every physical join fills in the subset of
// fields relevant to it; the zero value of a field means "does not
// apply" for that operator.
type Input struct {
	Left, Right table.Flags

	// RightHeadUnique is true when no left row can match more than one
	// right row (right's join-side column is a key).
	RightHeadUnique bool
	// EveryLeftContributes is true when no left row was dropped from
	// the output -- true for outer-join, merge/hash equi-join with a
	// hit on every row, false whenever rows without a match vanish
	// (plain equi-join, semi-join).
	EveryLeftContributes bool
	// LeftTailUniqueAndSorted is true when the left join column
	// (left's tail, in the canonical left.tail == right.head join) is
	// both a key and sorted.
	LeftTailUniqueAndSorted bool
	// EveryRightHitExactlyOnce is true when every right row
	// contributed to exactly one output tuple (so output tail order
	// can inherit right tail order).
	EveryRightHitExactlyOnce bool
	// StringTrick is true when the operator used the string-trick
	// fast path (copy offsets, share heap) on the output's tail.
	StringTrick bool
	// RightTailVoid is true when right's tail column is void-typed.
	RightTailVoid bool
	// BothKeyOnJoinSide is true when both left and right are key on
	// the column being joined.
	BothKeyOnJoinSide bool
	// InjectsNils is true for outer-join's miss handling: a
	// non-matching left row is still emitted, paired with nil.
	InjectsNils bool
}

// Derive computes output's Head and Tail flags from in, per spec §4.2.
// MustRederive reports whether the caller must instead recompute flags
// by scanning the freshly built output (string trick or void right
// tail): in that case Derive still sets the flags it can determine
// safely, but the caller overwrites Tail afterward.
func Derive(output *table.Table, in Input) (mustRederive bool) {
	output.HeadFlags = deriveHead(in)
	output.TailFlags = deriveTail(in)

	mustRederive = in.StringTrick || in.RightTailVoid
	return mustRederive
}

func deriveHead(in Input) table.Flags {
	if in.RightHeadUnique && in.EveryLeftContributes {
		// Output head is aligned with left head: every property
		// carries over verbatim, including density/seqbase (the
		// caller is responsible for actually copying Seqbase since
		// that lives on the column, not the flags).
		f := in.Left
		f.Nonil = in.Left.Nonil
		return f
	}

	// Otherwise only the weaker sorted/rev-sorted inheritance holds:
	// key-ness and density cannot be guaranteed once a left row can
	// fan out to multiple output rows.
	return table.Flags{
		Sorted:    in.Left.Sorted,
		RevSorted: in.Left.RevSorted,
		Nonil:     in.Left.Nonil,
	}
}

func deriveTail(in Input) table.Flags {
	f := table.Flags{}

	if in.LeftTailUniqueAndSorted && in.EveryRightHitExactlyOnce {
		f.Sorted = in.Right.Sorted
		f.RevSorted = in.Right.RevSorted
	}
	// Otherwise tail order is determined on the fly by the physical
	// join itself (optimistic-and-check): callers that discover
	// sortedness empirically overwrite f.Sorted after the fact.

	if in.BothKeyOnJoinSide {
		f.Key = true
	}

	f.Nonil = in.Right.Nonil && !in.InjectsNils

	return f
}

// KeyBothSides reports the spec §4.2 "Key" rule in isolation, without
// the full Derive pipeline. No physical join in package join calls it.
func KeyBothSides(left, right table.Flags) bool {
	return left.Key && right.Key
}
