package join

import (
	"context"

	"github.com/colbat/batjoin/estimate"
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/table"
)

// HashOptions configures a hash-join call.
type HashOptions struct {
	SizeHint int
}

// Hash runs hash-join: spec §4.4.2. Builds (or reuses) a hash index on
// right.Head, then for each non-nil left.Tail value walks the matching
// chain and emits (left.head, right.tail) for every hit.
func Hash(env *Env, left, right *table.Table, opts HashOptions) (*table.Table, error) {
	if err := env.Svc.HashBuild(right, table.Head); err != nil {
		return nil, err
	}

	sizeHint := opts.SizeHint
	if sizeHint == 0 {
		n, err := estimate.Estimate(env.Ctx, left, right, estimate.Params{T: env.Cfg.SamplingExponent, RightHeadKey: right.HeadFlags.Key}, sampleHashJoinCount(env), env.Svc.(estimate.Sampler), env.logger())
		if err != nil {
			return nil, err
		}
		sizeHint = n
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), sizeHint)
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("hash-join output", sizeHint)
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	leftKey := left.Keyed(table.Tail)
	rightKey := right.Keyed(table.Head)

	hits := 0
	for i := 0; i < left.Len(); i++ {
		if left.Tail.IsNil(i) {
			continue
		}
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

	property.Derive(out, property.Input{
		Left:                 left.Flags(table.Head),
		Right:                right.Flags(table.Tail),
		RightHeadUnique:      right.HeadFlags.Key,
		EveryLeftContributes: hits == left.Len(),
		BothKeyOnJoinSide:    left.TailFlags.Key && right.HeadFlags.Key && hits == left.Len(),
	})
	// Head order always inherits left's scan order for hash-join (spec
	// §4.4.2 rule 3), regardless of what the general Derive rule
	// concluded about sortedness carrying over -- hash-join never
	// reorders its left scan.
	out.HeadFlags.Sorted = left.HeadFlags.Sorted
	out.HeadFlags.RevSorted = left.HeadFlags.RevSorted
	if right.HeadFlags.Key && hits == left.Len() {
		out.HeadFlags.Key = left.HeadFlags.Key
	}

	return guard.Commit(), nil
}

func sampleHashJoinCount(env *Env) estimate.JoinFunc {
	return func(ctx context.Context, left, right *table.Table) (int, error) {
		sample, err := Hash(env, left, right, HashOptions{SizeHint: left.Len() + 1})
		if err != nil {
			return 0, err
		}
		return sample.Len(), nil
	}
}
