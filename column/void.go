package column

import (
	"github.com/colbat/batjoin/rowid"
	"github.com/colbat/batjoin/typetag"
)

// Void is the implicit column of spec §3: when Seqbase is defined,
// element i has value Seqbase+i and no storage is materialized at all.
// Seqbase == rowid.Nil means the whole column is logically nil.
type Void struct {
	Seqbase rowid.ID
	Count   int
}

func (v *Void) Tag() typetag.Tag { return typetag.Void }
func (v *Void) Len() int         { return v.Count }

func (v *Void) IsNil(i int) bool {
	return v.Seqbase == rowid.Nil
}

func (v *Void) At(i int) rowid.ID {
	if v.Seqbase == rowid.Nil {
		return rowid.Nil
	}
	return rowid.Seq(v.Seqbase, i)
}

func (v *Void) Slice(lo, hi int) Column {
	sb := v.Seqbase
	if sb != rowid.Nil {
		sb = rowid.Seq(sb, lo)
	}
	return &Void{Seqbase: sb, Count: hi - lo}
}

func (v *Void) Grow(int) {}

func (v *Void) AppendNil() {
	v.Count++
}

func (v *Void) AppendFrom(src Column, i int) error {
	o, ok := src.(*Void)
	if !ok {
		return errTypeMismatch(v.Tag(), src.Tag())
	}
	// A void column can only grow by appending the next value in its
	// own sequence; appending an arbitrary source index only makes
	// sense when it continues the run, which the caller (fetch-join's
	// void-propagation path) is responsible for guaranteeing by
	// switching to a materialized head the moment it doesn't.
	_ = o
	v.Count++
	return nil
}

func (v *Void) CompareAt(i int, other Keyed, j int) int {
	switch o := other.(type) {
	case *Void:
		return typetag.Compare(uint64(v.At(i)), uint64(o.At(j)))
	case *Numeric[uint64]:
		return typetag.Compare(uint64(v.At(i)), o.At(j))
	default:
		return 0
	}
}

func (v *Void) EqualAt(i int, other Keyed, j int) bool {
	switch o := other.(type) {
	case *Void:
		return v.At(i) == o.At(j)
	case *Numeric[uint64]:
		return uint64(v.At(i)) == o.At(j)
	default:
		return false
	}
}

func (v *Void) HashAt(i int) uint64 {
	return hashNumeric(uint64(v.At(i)))
}

// Dense reports whether this void column is a legal "dense" column in
// the spec §3 sense: a defined seqbase makes it strictly increasing by
// one, hence sorted, key, and nonil all at once.
func (v *Void) Dense() bool {
	return v.Seqbase != rowid.Nil
}
