package column

import (
	"github.com/OneOfOne/xxhash"

	"github.com/colbat/batjoin/atomheap"
	"github.com/colbat/batjoin/typetag"
)

// nilOffset marks a nil string value; atomheap.Heap never hands out this
// offset since Intern always appends before returning a valid index.
const nilOffset = int32(-1)

// Strings is the variable-width column storage of spec §3: a vector of
// integer offsets into a shared atomheap.Heap. The "string trick" (spec
// §4.1, §4.4.3) is exactly copying the Offsets slice and calling
// Heap.Share instead of re-interning every value.
type Strings struct {
	Offsets []int32
	Heap    *atomheap.Heap
}

// NewStrings returns an empty string column over the given heap. Passing
// an existing, shared heap (rather than atomheap.New()) is how an output
// participates in the string trick.
func NewStrings(heap *atomheap.Heap) *Strings {
	return &Strings{Heap: heap}
}

func (s *Strings) Tag() typetag.Tag { return typetag.Str }
func (s *Strings) Len() int         { return len(s.Offsets) }

func (s *Strings) IsNil(i int) bool {
	return s.Offsets[i] == nilOffset
}

func (s *Strings) At(i int) string {
	if s.Offsets[i] == nilOffset {
		return ""
	}
	return s.Heap.At(s.Offsets[i])
}

// AppendValue interns v in this column's heap and appends the resulting
// offset.
func (s *Strings) AppendValue(v string) {
	s.Offsets = append(s.Offsets, s.Heap.Intern(v))
}

// AppendOffset appends a raw offset without touching the heap -- the
// string-trick fast path, valid only when off was produced by (or is
// otherwise valid in) s.Heap.
func (s *Strings) AppendOffset(off int32) {
	s.Offsets = append(s.Offsets, off)
}

func (s *Strings) Slice(lo, hi int) Column {
	return &Strings{Offsets: s.Offsets[lo:hi], Heap: s.Heap}
}

func (s *Strings) Grow(cap int) {
	if cap <= len(s.Offsets) {
		return
	}
	grown := make([]int32, len(s.Offsets), cap)
	copy(grown, s.Offsets)
	s.Offsets = grown
}

func (s *Strings) AppendNil() {
	s.Offsets = append(s.Offsets, nilOffset)
}

func (s *Strings) AppendFrom(src Column, i int) error {
	o, ok := src.(*Strings)
	if !ok {
		return errTypeMismatch(s.Tag(), src.Tag())
	}
	if o.Heap == s.Heap {
		s.AppendOffset(o.Offsets[i])
		return nil
	}
	s.AppendValue(o.At(i))
	return nil
}

// ShareHeap replaces this column's offsets and heap with a shared
// reference to src's, the copy-offsets-share-heap path of the string
// trick. Used when the whole column (not element-by-element) can be
// reused verbatim, e.g. a right tail passed through unchanged by
// fetch-join.
func (s *Strings) ShareHeap(src *Strings) {
	s.Offsets = append([]int32(nil), src.Offsets...)
	s.Heap = src.Heap.Share()
}

func (s *Strings) CompareAt(i int, other Keyed, j int) int {
	o := other.(*Strings)
	a, b := s.At(i), o.At(j)
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func (s *Strings) EqualAt(i int, other Keyed, j int) bool {
	o := other.(*Strings)
	if s.Heap == o.Heap && s.Offsets[i] != nilOffset && o.Offsets[j] != nilOffset {
		return s.Offsets[i] == o.Offsets[j]
	}
	return s.At(i) == o.At(j)
}

func (s *Strings) HashAt(i int) uint64 {
	return xxhash.ChecksumString64(s.At(i))
}
