package join

import (
	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/jointypes"
	"github.com/colbat/batjoin/property"
	"github.com/colbat/batjoin/rowid"
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

// FetchOptions configures a fetch-join call.
type FetchOptions struct {
	// HitAlways asserts that every left row must find a right match;
	// a miss then fails the whole operation with ErrMissInFetch
	// instead of being silently dropped.
	HitAlways bool
	SizeHint  int
}

// fetchAlgo names the three sub-algorithms of spec §4.4.3, chosen
// statically from the inputs' properties.
type fetchAlgo int

const (
	fetchDense fetchAlgo = iota
	fetchOrdered
	fetchDefault
)

// voidHeadWriter accumulates a left void head into the output, switching
// from "still void" to a materialized oid column the moment a row is
// skipped mid-stream -- spec §4.4.3's "void propagation" -- while
// preserving every tuple already emitted.
type voidHeadWriter struct {
	src          *column.Void
	materialized *column.Numeric[uint64]
}

func newVoidHeadWriter(src *column.Void) *voidHeadWriter {
	return &voidHeadWriter{src: src}
}

func (w *voidHeadWriter) isMaterialized() bool { return w.materialized != nil }

func (w *voidHeadWriter) materialize(emittedSoFar int) {
	if w.materialized != nil {
		return
	}
	col, _ := column.New(typetag.OID, emittedSoFar+1).(*column.Numeric[uint64])
	for i := 0; i < emittedSoFar; i++ {
		col.Append(uint64(w.src.At(i)))
	}
	w.materialized = col
}

// appendEmitted records that left row i was emitted at output position
// emittedSoFar. Once skip() has materialized the head, this just
// appends to the materialized column; until then the row is still
// void-contiguous and nothing needs to be stored.
func (w *voidHeadWriter) appendEmitted(i, emittedSoFar int) {
	if w.materialized != nil {
		w.materialized.Append(uint64(w.src.At(i)))
	}
}

// skip records that left row i was dropped (no match, hit_always not
// set), which always breaks density, so it always triggers
// materialization.
func (w *voidHeadWriter) skip(emittedSoFar int) {
	w.materialize(emittedSoFar)
}

func (w *voidHeadWriter) finish(emittedSoFar int) column.Column {
	if w.materialized != nil {
		return w.materialized
	}
	return &column.Void{Seqbase: w.src.Seqbase, Count: emittedSoFar}
}

// Fetch runs fetch-join (positional semi-join): spec §4.4.3.
// Precondition: right.Head is void (a dense identity column) and
// left.Tail holds oids indexing into it.
func Fetch(env *Env, left, right *table.Table, opts FetchOptions) (*table.Table, error) {
	rightHeadVoid, ok := right.Head.(*column.Void)
	if !ok {
		return nil, jointypes.ErrWrongShape.New()
	}

	algo := chooseFetchAlgo(left, right)
	if algo == fetchDense {
		if out := denseFetchView(left, right); out != nil {
			return out, nil
		}
		algo = fetchOrdered
	}

	out, err := env.Svc.TableNew(left.Head.Tag(), right.Tail.Tag(), left.Len())
	if err != nil {
		return nil, jointypes.ErrOutOfMemory.New("fetch-join output", left.Len())
	}
	guard := table.NewGuard(out)
	defer guard.Release()

	offset := right.First - int(rightHeadVoid.Seqbase)

	useStringTrick := false
	if rts, isStr := right.Tail.(*column.Strings); isStr {
		if os, isStrOut := out.Tail.(*column.Strings); isStrOut {
			os.Heap = rts.Heap.Share()
			useStringTrick = true
		}
	}

	leftHeadVoid, leftHeadIsVoid := left.Head.(*column.Void)
	var headWriter *voidHeadWriter
	if leftHeadIsVoid {
		headWriter = newVoidHeadWriter(leftHeadVoid)
	}

	tailSortedSoFar := true
	emitted := 0

	for i := 0; i < left.Len(); i++ {
		if left.Tail.IsNil(i) {
			if opts.HitAlways {
				return nil, jointypes.ErrMissInFetch.New(i)
			}
			if headWriter != nil {
				headWriter.skip(emitted)
			}
			continue
		}

		v := int(leftOIDAt(left.Tail, i))
		rpos := v + offset
		if algo == fetchDefault && (rpos < 0 || rpos >= right.Len()) {
			if opts.HitAlways {
				return nil, jointypes.ErrMissInFetch.New(i)
			}
			if headWriter != nil {
				headWriter.skip(emitted)
			}
			continue
		}

		if headWriter != nil {
			headWriter.appendEmitted(i, emitted)
		} else if err := out.Head.AppendFrom(left.Head, i); err != nil {
			return nil, err
		}

		if useStringTrick {
			src := right.Tail.(*column.Strings)
			out.Tail.(*column.Strings).AppendOffset(src.Offsets[rpos])
		} else if err := out.Tail.AppendFrom(right.Tail, rpos); err != nil {
			return nil, err
		}

		if tailSortedSoFar && emitted > 0 && compareTailValues(out.Tail, emitted-1, emitted) > 0 {
			tailSortedSoFar = false
		}
		emitted++
		out.Count++
	}

	if headWriter != nil {
		out.Head = headWriter.finish(emitted)
	}

	property.Derive(out, property.Input{
		Left:                 left.Flags(table.Head),
		Right:                right.Flags(table.Tail),
		EveryLeftContributes: emitted == left.Len(),
		StringTrick:          useStringTrick,
	})
	out.TailFlags.Sorted = tailSortedSoFar
	if headWriter != nil && !headWriter.isMaterialized() {
		out.HeadFlags = table.Flags{Sorted: true, RevSorted: false, Key: true, Dense: true, Nonil: true}
	}

	return guard.Commit(), nil
}

func chooseFetchAlgo(left, right *table.Table) fetchAlgo {
	rightHeadVoid, _ := right.Head.(*column.Void)
	if left.TailFlags.Dense && rightHeadVoid != nil && rightHeadVoid.Dense() {
		return fetchDense
	}
	if left.TailFlags.Sorted {
		return fetchOrdered
	}
	return fetchDefault
}

// denseFetchView implements the zero-copy view path: left.Tail is dense
// and aligned with right's head seqbase, so the result is exactly a
// slice of right, relabeled with left's head.
func denseFetchView(left, right *table.Table) *table.Table {
	leftTailVoid, ok := left.Tail.(*column.Void)
	if !ok || !leftTailVoid.Dense() {
		return nil
	}
	rightHeadVoid, ok := right.Head.(*column.Void)
	if !ok {
		return nil
	}
	lo := int(leftTailVoid.Seqbase) - int(rightHeadVoid.Seqbase) + right.First
	hi := lo + left.Len()
	if lo < 0 || hi > right.Len() {
		return nil
	}
	view := right.Slice(lo, hi)
	view.Head = left.Head
	view.HeadFlags = left.HeadFlags
	return view
}

func leftOIDAt(c column.Column, i int) rowid.ID {
	switch v := c.(type) {
	case *column.Void:
		return v.At(i)
	case *column.Numeric[uint64]:
		return rowid.ID(v.At(i))
	default:
		return rowid.Nil
	}
}

func compareTailValues(c column.Column, i, j int) int {
	keyed, ok := c.(column.Keyed)
	if !ok {
		return 0
	}
	return keyed.CompareAt(i, keyed, j)
}
