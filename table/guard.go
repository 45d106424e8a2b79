package table

// Guard owns an in-construction Table and releases it unless the
// operation that built it explicitly commits. This replaces the
// original's goto-based `bunins_failed:` error unwinding (spec §9) with
// Go's natural idiom: `defer guard.Release()` immediately after
// allocating the output, then `return guard.Commit(), nil` on every
// success path. Any return before Commit releases the partial output, so
// a failing physical join can simply `return nil, err` and rely on the
// deferred Release.
type Guard struct {
	t         *Table
	committed bool
}

// NewGuard wraps t in a Guard that owns it until Commit is called.
func NewGuard(t *Table) *Guard {
	return &Guard{t: t}
}

// Commit transfers ownership of the guarded table to the caller. The
// table survives the subsequent Release.
func (g *Guard) Commit() *Table {
	g.committed = true
	return g.t
}

// Release reclaims the guarded table unless it has been committed. Safe
// to call multiple times and safe to defer unconditionally.
func (g *Guard) Release() {
	if g == nil || g.committed || g.t == nil {
		return
	}
	g.t.Release()
}
