package column

import (
	"math"

	"github.com/colbat/batjoin/typetag"
)

// Numeric is the fixed-width column storage for every Ordered type:
// int8/16/32/64, float32/64, and uint64 (the oid tag). One instantiation
// per typetag.Tag is monomorphized by the compiler; New picks the right
// one at construction time.
type Numeric[T typetag.Ordered] struct {
	tag    typetag.Tag
	nilVal T
	data   []T
}

func newNumeric[T typetag.Ordered](tag typetag.Tag, capacity int) *Numeric[T] {
	n := &Numeric[T]{
		tag:  tag,
		data: make([]T, 0, capacity),
	}
	n.nilVal = sentinelAs[T](tag)
	return n
}

// sentinelAs reinterprets the tag's nil bit pattern as T.
func sentinelAs[T typetag.Ordered](tag typetag.Tag) T {
	bits := typetag.NilSentinel(tag)
	var zero T
	switch any(zero).(type) {
	case float32:
		return any(math.Float32frombits(uint32(bits))).(T)
	case float64:
		return any(math.Float64frombits(bits)).(T)
	default:
		return T(bits)
	}
}

// NewNumericFrom wraps an existing slice without copying, used by tests
// and by zero-copy view construction.
func NewNumericFrom[T typetag.Ordered](tag typetag.Tag, data []T) *Numeric[T] {
	n := &Numeric[T]{tag: tag, data: data}
	n.nilVal = sentinelAs[T](tag)
	return n
}

func (n *Numeric[T]) Tag() typetag.Tag { return n.tag }
func (n *Numeric[T]) Len() int         { return len(n.data) }

func (n *Numeric[T]) IsNil(i int) bool {
	v := n.data[i]
	if n.tag == typetag.F32 || n.tag == typetag.F64 {
		return isNaN(v)
	}
	return v == n.nilVal
}

func isNaN[T typetag.Ordered](v T) bool {
	switch x := any(v).(type) {
	case float32:
		return math.IsNaN(float64(x))
	case float64:
		return math.IsNaN(x)
	default:
		return false
	}
}

func (n *Numeric[T]) At(i int) T { return n.data[i] }

func (n *Numeric[T]) Append(v T) {
	n.data = append(n.data, v)
}

func (n *Numeric[T]) Slice(lo, hi int) Column {
	return &Numeric[T]{tag: n.tag, nilVal: n.nilVal, data: n.data[lo:hi]}
}

func (n *Numeric[T]) Grow(cap int) {
	if cap <= len(n.data) {
		return
	}
	grown := make([]T, len(n.data), cap)
	copy(grown, n.data)
	n.data = grown
}

func (n *Numeric[T]) AppendNil() {
	n.data = append(n.data, n.nilVal)
}

func (n *Numeric[T]) AppendFrom(src Column, i int) error {
	other, ok := src.(*Numeric[T])
	if !ok {
		return errTypeMismatch(n.Tag(), src.Tag())
	}
	n.data = append(n.data, other.data[i])
	return nil
}

func (n *Numeric[T]) CompareAt(i int, other Keyed, j int) int {
	o := other.(*Numeric[T])
	return typetag.Compare(n.data[i], o.data[j])
}

func (n *Numeric[T]) EqualAt(i int, other Keyed, j int) bool {
	o := other.(*Numeric[T])
	return n.data[i] == o.data[j]
}

func (n *Numeric[T]) HashAt(i int) uint64 {
	return hashNumeric(n.data[i])
}

func hashNumeric[T typetag.Ordered](v T) uint64 {
	switch x := any(v).(type) {
	case int8:
		return fnv1a(uint64(uint8(x)))
	case int16:
		return fnv1a(uint64(uint16(x)))
	case int32:
		return fnv1a(uint64(uint32(x)))
	case int64:
		return fnv1a(uint64(x))
	case uint64:
		return fnv1a(x)
	case float32:
		return fnv1a(uint64(math.Float32bits(x)))
	case float64:
		return fnv1a(math.Float64bits(x))
	default:
		return 0
	}
}

// fnv1a is used for fixed-width columns; variable-width columns hash
// through the atom heap's xxhash-based interning instead (see Strings).
func fnv1a(v uint64) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	h := uint64(offset)
	for i := 0; i < 8; i++ {
		h ^= v & 0xff
		h *= prime
		v >>= 8
	}
	return h
}
