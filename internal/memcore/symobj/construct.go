package symobj

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
)

// allocBytes boxes n fresh bytes in r's arena. A nil r falls back to the
// calling thread's lazily created global region (§5/§9's
// get_or_create_global_region()) rather than a bare Go allocation, so a
// constructor called with no explicit destination region still places its
// payload under region-owned memory. If even that arena is exhausted, the
// same plain Go allocation transmigrate's copyBytes falls back to keeps the
// object usable.
func allocBytes(r *region.Region, n uintptr) []byte {
	if n == 0 {
		return nil
	}

	if r == nil {
		r = region.GetOrCreateGlobalRegion()
	}

	if ptr := r.Alloc(n); ptr != nil {
		return unsafe.Slice((*byte)(ptr), n)
	}

	return make([]byte, n)
}

func copyString(r *region.Region, s string) []byte {
	buf := allocBytes(r, uintptr(len(s)))
	copy(buf, s)

	return buf
}

// NewInt implements mk_int_region(r, i): boxes a 64-bit integer in r.
func NewInt(r *region.Region, i int64) *SymObj {
	buf := allocBytes(r, 8)
	binary.LittleEndian.PutUint64(buf, uint64(i))

	o := New(TagInt)
	o.SetBoxedValue(buf)

	return o
}

// NewFloat implements mk_float_region(r, f).
func NewFloat(r *region.Region, f float64) *SymObj {
	buf := allocBytes(r, 8)
	binary.LittleEndian.PutUint64(buf, math.Float64bits(f))

	o := New(TagFloat)
	o.SetBoxedValue(buf)

	return o
}

// NewChar implements mk_char_region(r, c).
func NewChar(r *region.Region, c rune) *SymObj {
	buf := allocBytes(r, 4)
	binary.LittleEndian.PutUint32(buf, uint32(c))

	o := New(TagChar)
	o.SetBoxedValue(buf)

	return o
}

// NewNothing implements mk_nothing(): the unique "no value" immediate,
// boxed for symmetry with the other scalar constructors even though it
// carries no payload bytes.
func NewNothing() *SymObj {
	return New(TagNothing)
}

// NewPair implements mk_pair_region(r, car, cdr). The region argument
// exists for symmetry with the other constructors (a pair's own storage is
// two edges, not boxed bytes) and is accepted but unused here, the same
// way a C allocator's mk_pair would take a region purely for the eventual
// node header allocation.
func NewPair(_ *region.Region, car, cdr *SymObj) *SymObj {
	o := New(TagPair)
	o.AddEdge(car)
	o.AddEdge(cdr)

	return o
}

// NewSymbol implements mk_sym_region(r, cstr).
func NewSymbol(r *region.Region, name string) *SymObj {
	o := New(TagSymbol)
	o.SetBoxedValue(copyString(r, name))

	return o
}

// NewString implements the string counterpart of mk_sym_region.
func NewString(r *region.Region, s string) *SymObj {
	o := New(TagString)
	o.SetBoxedValue(copyString(r, s))

	return o
}

// NewKeyword implements the keyword counterpart of mk_sym_region.
func NewKeyword(r *region.Region, name string) *SymObj {
	o := New(TagKeyword)
	o.SetBoxedValue(copyString(r, name))

	return o
}

// NewError implements the condition-object constructor implied by the
// error tag: a boxed message with no outgoing edges.
func NewError(r *region.Region, message string) *SymObj {
	o := New(TagError)
	o.SetBoxedValue(copyString(r, message))

	return o
}

// NewBox implements a single-slot mutable cell: one outgoing edge to the
// boxed value, whatever its tag.
func NewBox(value *SymObj) *SymObj {
	o := New(TagBox)
	o.AddEdge(value)

	return o
}

// NewArray implements mk_array_region(r, capacity): an empty array object.
// capacity only sizes the overflow edge storage ahead of time to avoid
// repeated reallocation as elements are appended via AddEdge; it imposes
// no upper bound.
func NewArray(_ *region.Region, capacity int) *SymObj {
	o := New(TagArray)
	if capacity > inlineEdgeCapacity {
		o.migrateToOverflow()
		o.overflow = make([]*SymObj, 0, capacity)
	}

	return o
}

// NewDict implements mk_dict_region(r): an empty dictionary. Entries are
// represented as TagPair(key, value) objects added as edges, so the
// transmigration engine's existing pair-wiring clause handles them without
// a dedicated dict visitor.
func NewDict(r *region.Region) *SymObj {
	return New(TagDict)
}

// DictSet appends a key/value entry to a dict built with NewDict.
func DictSet(d *SymObj, r *region.Region, key, value *SymObj) {
	d.AddEdge(NewPair(r, key, value))
}

// NewTuple implements mk_tuple_region(r, items, n): a fixed-arity object
// whose edges are its elements in order.
func NewTuple(_ *region.Region, items []*SymObj) *SymObj {
	o := New(TagTuple)
	for _, it := range items {
		o.AddEdge(it)
	}

	return o
}

// NewClosure implements mk_closure_region(r, params, body, env): params
// and a human-readable body description are boxed as a single descriptor
// string (the actual body graph lives in the caller's compiled code, out
// of scope for the memory core), and env becomes the capture list the
// transmigration engine walks via ClosureCaptures.
func NewClosure(r *region.Region, params []string, bodyDescription string, env []*SymObj) *SymObj {
	o := New(TagClosure)
	o.SetBoxedValue(copyString(r, closureDescriptor(params, bodyDescription)))
	o.SetClosureCaptures(append([]*SymObj(nil), env...))

	return o
}

func closureDescriptor(params []string, body string) string {
	s := "("
	for i, p := range params {
		if i > 0 {
			s += " "
		}

		s += p
	}

	s += ") " + body

	return s
}
