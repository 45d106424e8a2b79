package join

import (
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/table"
)

// CrossOptions configures a cross-product call.
type CrossOptions struct {
	SizeHint int
}

// Cross runs the cross product: spec §4.4.8. Emits (l.head, r.tail) for
// every (i, j) pair unconditionally, nils included. When either side is
// a single row, that row's value is copied into every output tuple;
// both output columns are materialized and no view is produced.
func Cross(env *Env, left, right *table.Table, opts CrossOptions) (*table.Table, error) {
	if left.Len() == 1 {
		return crossConstantLeft(env, left, right)
	}
	if right.Len() == 1 {
		return crossConstantRight(env, left, right)
	}

	total := left.Len() * right.Len()
	if opts.SizeHint != 0 {
		total = opts.SizeHint
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), total)
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("cross-product output", total)
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	for i := 0; i < left.Len(); i++ {
		for j := 0; j < right.Len(); j++ {
			if err := appendTuple(out, left, i, right, j); err != nil {
				return nil, err
			}
		}
	}

	out.HeadFlags = table.Flags{}
	out.TailFlags = table.Flags{}
	if left.Len() > 0 && right.Len() > 0 {
		out.HeadFlags.Sorted = left.HeadFlags.Sorted && right.Len() == 1
		out.TailFlags.Sorted = right.TailFlags.Sorted && left.Len() == 1
	}

	return guard.Commit(), nil
}

// crossConstantLeft replicates the single left row against every right
// row: head repeats left's one head value, tail is a materialized copy
// of right's tail.
func crossConstantLeft(env *Env, left, right *table.Table) (*table.Table, error) {
	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), right.Len())
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("cross-product output", right.Len())
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	for j := 0; j < right.Len(); j++ {
		if err := out.Head.AppendFrom(left.Head, 0); err != nil {
			return nil, err
		}
		if err := out.Tail.AppendFrom(right.Tail, j); err != nil {
			return nil, err
		}
		out.Count++
	}

	out.HeadFlags = table.Flags{Sorted: true, RevSorted: true, Key: right.Len() <= 1, Nonil: !left.Head.IsNil(0)}
	out.TailFlags = right.TailFlags

	return guard.Commit(), nil
}

// crossConstantRight replicates the single right row against every left
// row: head is left's head unchanged, tail is a constant column.
func crossConstantRight(env *Env, left, right *table.Table) (*table.Table, error) {
	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), left.Len())
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("cross-product output", left.Len())
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	for i := 0; i < left.Len(); i++ {
		if err := out.Head.AppendFrom(left.Head, i); err != nil {
			return nil, err
		}
		if err := out.Tail.AppendFrom(right.Tail, 0); err != nil {
			return nil, err
		}
		out.Count++
	}

	out.HeadFlags = left.HeadFlags
	out.TailFlags = table.Flags{Sorted: true, RevSorted: true, Key: left.Len() <= 1, Nonil: !right.Tail.IsNil(0)}

	return guard.Commit(), nil
}
