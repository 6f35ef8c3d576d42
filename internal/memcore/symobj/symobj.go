// Package symobj implements the per-object record that participates in a
// component's cyclic island: inline/overflow edge storage, the object tag
// enum shared with the transmigration engine's type dispatch, and the
// object-construction helpers of §6.
package symobj

import (
	"github.com/omnilisp-lang/omnilisp/internal/errors"
)

// Tag enumerates the object shapes the transmigration engine and the
// component dismantler must dispatch on (§6's object layout contract).
type Tag int

const (
	TagInt Tag = iota
	TagFloat
	TagChar
	TagNothing
	TagPair
	TagSymbol
	TagString
	TagKeyword
	TagError
	TagBox
	TagClosure
	TagArray
	TagDict
	TagTuple
	TagUserType
)

func (t Tag) String() string {
	switch t {
	case TagInt:
		return "int"
	case TagFloat:
		return "float"
	case TagChar:
		return "char"
	case TagNothing:
		return "nothing"
	case TagPair:
		return "pair"
	case TagSymbol:
		return "symbol"
	case TagString:
		return "string"
	case TagKeyword:
		return "keyword"
	case TagError:
		return "error"
	case TagBox:
		return "box"
	case TagClosure:
		return "closure"
	case TagArray:
		return "array"
	case TagDict:
		return "dict"
	case TagTuple:
		return "tuple"
	case TagUserType:
		return "user-type"
	default:
		return "unknown"
	}
}

// Scalar reports whether a tag is a shallow-copy leaf for transmigration
// (§4.5 step "Type dispatch").
func (t Tag) Scalar() bool {
	switch t {
	case TagInt, TagFloat, TagChar, TagNothing:
		return true
	default:
		return false
	}
}

const inlineEdgeCapacity = 3

// Component is the narrow interface symobj needs from the component
// package, kept here to avoid a symobj<->component import cycle (component
// also needs to reference SymObj members).
type Component interface {
	// ID returns the identity of the component that currently owns this
	// object.
	ID() uint64
}

// SymObj is a per-object record linking into a component, with inline
// storage for up to 3 outgoing edges and overflow to a heap array on the
// 4th (§3, §4.7).
type SymObj struct {
	Tag       Tag
	Component Component

	inline       [inlineEdgeCapacity]*SymObj
	inlineCount  int
	overflow     []*SymObj
	usesOverflow bool

	refCount    int32 // internal_rc: incoming edges from the same component
	freed       bool
	boxedValue  []byte // scalar/string/symbol payload, copied by region_alloc
	closureCaps []*SymObj
}

// New constructs a fresh, unfreed SymObj of the given tag.
func New(tag Tag) *SymObj {
	return &SymObj{Tag: tag}
}

// Freed reports whether the component dismantler has already reclaimed
// this object.
func (o *SymObj) Freed() bool { return o.freed }

// InternalRC returns the number of incoming edges from objects in the same
// component.
func (o *SymObj) InternalRC() int32 { return o.refCount }

// Edges returns every outgoing edge, inline or overflowed, in addition
// order.
func (o *SymObj) Edges() []*SymObj {
	if !o.usesOverflow {
		return append([]*SymObj(nil), o.inline[:o.inlineCount]...)
	}

	return append([]*SymObj(nil), o.overflow...)
}

// AddEdge adds an outgoing edge to target and increments target's
// internal_rc (§4.7's edge-add semantics). Migrates to overflow storage on
// the 4th edge.
func (o *SymObj) AddEdge(target *SymObj) {
	if target == nil {
		return
	}

	if o.usesOverflow {
		o.overflow = append(o.overflow, target)
	} else if o.inlineCount < inlineEdgeCapacity {
		o.inline[o.inlineCount] = target
		o.inlineCount++
	} else {
		o.migrateToOverflow()
		o.overflow = append(o.overflow, target)
	}

	target.refCount++
}

func (o *SymObj) migrateToOverflow() {
	o.overflow = make([]*SymObj, o.inlineCount, o.inlineCount*2)
	copy(o.overflow, o.inline[:o.inlineCount])
	o.usesOverflow = true
}

// RemoveEdge removes one occurrence of target from this object's outgoing
// edges and decrements target's internal_rc.
func (o *SymObj) RemoveEdge(target *SymObj) {
	if o.usesOverflow {
		for i, e := range o.overflow {
			if e == target {
				o.overflow = append(o.overflow[:i], o.overflow[i+1:]...)

				break
			}
		}
	} else {
		for i := 0; i < o.inlineCount; i++ {
			if o.inline[i] == target {
				copy(o.inline[i:], o.inline[i+1:o.inlineCount])
				o.inlineCount--
				o.inline[o.inlineCount] = nil

				break
			}
		}
	}

	if target != nil && target.refCount > 0 {
		target.refCount--
	}
}

// SetBoxedValue stores the scalar/string payload copied into the
// destination region by region_alloc-style constructors.
func (o *SymObj) SetBoxedValue(b []byte) { o.boxedValue = b }

// BoxedValue returns the scalar/string payload, or nil.
func (o *SymObj) BoxedValue() []byte { return o.boxedValue }

// SetClosureCaptures records the capture array for a TagClosure object.
func (o *SymObj) SetClosureCaptures(caps []*SymObj) { o.closureCaps = caps }

// ClosureCaptures returns the capture array for a TagClosure object.
func (o *SymObj) ClosureCaptures() []*SymObj { return o.closureCaps }

// MarkFreed marks the object as reclaimed by component dismantling. It is
// an invariant violation to call this twice (§3: "freed is set exactly
// once").
func (o *SymObj) MarkFreed() {
	if o.freed {
		panic(errors.InvariantViolation("symobj freed", "double free during dismantle"))
	}

	o.freed = true
	o.inline = [inlineEdgeCapacity]*SymObj{}
	o.overflow = nil
	o.boxedValue = nil
	o.closureCaps = nil
}
