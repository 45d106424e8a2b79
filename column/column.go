// Package column implements the concrete column storage behind a
// table.Table: fixed-width numeric vectors, the implicit void column, and
// variable-width string columns backed by an atomheap.Heap. Each concrete
// type is a generic instantiation dispatched by typetag.Tag (spec §4.1,
// "Type dispatch"): the switch in New is the single place a runtime tag
// picks a monomorphized implementation.
package column

import (
	"fmt"

	"github.com/colbat/batjoin/atomheap"
	"github.com/colbat/batjoin/rowid"
	"github.com/colbat/batjoin/typetag"
)

// Column is implemented by every concrete column storage type.
type Column interface {
	Tag() typetag.Tag
	Len() int
	IsNil(i int) bool
	// Slice returns a zero-copy view over [lo, hi).
	Slice(lo, hi int) Column
	// AppendFrom appends element i of src, which must share this
	// column's tag, growing storage as needed.
	AppendFrom(src Column, i int) error
	// AppendNil appends this column's tag-appropriate nil sentinel,
	// used by outer-join's miss policy (spec §4.4.1, §4.4.5) where
	// there is no source tuple to copy from.
	AppendNil()
	// Grow ensures capacity for at least n elements without changing
	// Len.
	Grow(n int)
}

// Keyed is implemented by columns whose values can be compared, hashed,
// and tested for equality -- i.e. every column that can be the key side
// of a join. Void and Str both implement it.
type Keyed interface {
	Column
	CompareAt(i int, other Keyed, j int) int
	EqualAt(i int, other Keyed, j int) bool
	HashAt(i int) uint64
}

// New constructs an empty column of the given tag and initial capacity.
// This is the type-dispatch point: every fixed-width tag maps to a
// distinct Numeric[T] instantiation.
func New(tag typetag.Tag, capacity int) Column {
	switch tag {
	case typetag.I8:
		return newNumeric[int8](tag, capacity)
	case typetag.I16:
		return newNumeric[int16](tag, capacity)
	case typetag.I32:
		return newNumeric[int32](tag, capacity)
	case typetag.I64:
		return newNumeric[int64](tag, capacity)
	case typetag.F32:
		return newNumeric[float32](tag, capacity)
	case typetag.F64:
		return newNumeric[float64](tag, capacity)
	case typetag.OID:
		return newNumeric[uint64](tag, capacity)
	case typetag.Str:
		return NewStrings(atomheap.New())
	case typetag.Void:
		return &Void{Seqbase: rowid.Nil}
	default:
		panic(fmt.Sprintf("column: unknown tag %v", tag))
	}
}
