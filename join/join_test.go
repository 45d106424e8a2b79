package join

import (
	"context"
	"testing"

	"github.com/colbat/batjoin/column"
	"github.com/colbat/batjoin/engineopts"
	"github.com/colbat/batjoin/memtable"
	"github.com/colbat/batjoin/rowid"
	"github.com/colbat/batjoin/table"
	"github.com/colbat/batjoin/typetag"
)

func testEnv(t *testing.T) *Env {
	t.Helper()
	return &Env{
		Ctx: context.Background(),
		Svc: memtable.New(1),
		Cfg: engineopts.Default(),
	}
}

// i64Table builds a Table with both sides tagged I64 from parallel slices.
func i64Table(t *testing.T, heads, tails []int64) *table.Table {
	t.Helper()
	tab := table.New(typetag.I64, typetag.I64, len(heads))
	h := tab.Head.(*column.Numeric[int64])
	tl := tab.Tail.(*column.Numeric[int64])
	for i := range heads {
		h.Append(heads[i])
		tl.Append(tails[i])
	}
	tab.Count = len(heads)
	return tab
}

// denseVoidTable builds a Table whose Head is a dense void column
// starting at seqbase, with the given tail values.
func denseVoidTable(t *testing.T, seqbase rowid.ID, tails []int64) *table.Table {
	t.Helper()
	head := &column.Void{Seqbase: seqbase, Count: len(tails)}
	tl := column.New(typetag.I64, len(tails)).(*column.Numeric[int64])
	for _, v := range tails {
		tl.Append(v)
	}
	tab := table.NewFrom(head, tl)
	tab.HeadFlags = table.Flags{Sorted: true, RevSorted: true, Key: true, Dense: true, Nonil: true}
	return tab
}

// oidTable builds a Table whose Tail holds oids (typetag.OID) for use
// with fetch-join and fetch-backed semi-join, whose Head holds plain
// I64 values.
func oidTable(t *testing.T, heads []int64, oids []uint64) *table.Table {
	t.Helper()
	tab := table.New(typetag.I64, typetag.OID, len(heads))
	h := tab.Head.(*column.Numeric[int64])
	tl := tab.Tail.(*column.Numeric[uint64])
	for i := range heads {
		h.Append(heads[i])
		tl.Append(oids[i])
	}
	tab.Count = len(heads)
	return tab
}

func i64Values(t *testing.T, c column.Column) []int64 {
	t.Helper()
	n := c.(*column.Numeric[int64])
	out := make([]int64, n.Len())
	for i := range out {
		out[i] = n.At(i)
	}
	return out
}
