// Package rowid defines the logical row identifier used as the storage
// representation of void-typed columns and of the oid type.
package rowid

import "math"

// ID is a logical row identifier, platform word size. It backs both the
// oid type and the implicit values of a void column.
type ID uint64

// Nil is the sentinel identifying an undefined or absent oid. A void
// column whose seqbase is Nil is logically nil in its entirety.
const Nil ID = math.MaxUint64

// Defined reports whether id is not the nil sentinel.
func (id ID) Defined() bool {
	return id != Nil
}

// Seq returns the id that a void column with the given seqbase holds at
// position i.
func Seq(seqbase ID, i int) ID {
	return seqbase + ID(i)
}
