// Package transmigrate implements movement of object graphs between
// regions: an O(1) region-splice fast path for terminal, single-chunk
// source regions, and an iterative graph-copy general path with cycle
// detection (§4.5).
package transmigrate

import (
	"unsafe"

	"github.com/omnilisp-lang/omnilisp/internal/diagnostics"
	"github.com/omnilisp-lang/omnilisp/internal/errors"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/scratch"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/symobj"
)

// Progress is a copied/total counter pair for fractional completion. No
// function in this package fills one in: Transmigrate always copies the
// whole graph in a single call, and there is no chunked, resumable variant.
type Progress struct {
	Copied int
	Total  int
}

// Done reports whether Copied has reached a non-zero Total.
func (p Progress) Done() bool { return p.Total > 0 && p.Copied >= p.Total }

// Sink receives diagnostic warnings emitted on a degraded path, so callers
// can route them to whatever diagnostic stream they use. A nil Sink
// silently drops the warning.
type Sink func(level diagnostics.Level, message string)

// engine holds the state shared across the general-path iterative copy:
// the destination, the remap table that doubles as the visited set, and
// the traversal order. The worklist is a plain Go slice; the scratch frame
// generalCopy opens, when given a pair, holds none of it. A Go map is the idiomatic
// stand-in for an address-range bitmap plus a linear remap table: both
// give O(1) expected visited-tests and dedup-on-revisit, but a map is the
// safe choice for Go-managed pointers. The object graph here is built from
// real *SymObj heap pointers rather than arena byte offsets, so indexing a
// bitmap by raw address would require pointer-to-integer arithmetic that
// defeats the garbage collector's ability to track objects still reachable
// mid-copy.
type engine struct {
	dest     *region.Region
	remap    map[*symobj.SymObj]*symobj.SymObj
	sink     Sink
	order    []*symobj.SymObj // traversal order, for the wiring pass
	failures int              // objects whose payload bytes could not be placed in dest
}

// Transmigrate moves the object graph rooted at root from src to dest,
// preserving internal sharing and cycles, and returns the new root. A nil
// root or nil dest is a no-op that returns nil (§4.5's failure contract).
func Transmigrate(root *symobj.SymObj, src, dest *region.Region, scr *scratch.Pair, sink Sink) *symobj.SymObj {
	if root == nil || dest == nil {
		return nil
	}

	if fast, ok := trySplice(root, src, dest); ok {
		return fast
	}

	return generalCopy(root, dest, scr, sink)
}

// trySplice implements the O(1) region-splice fast path: when src is
// terminal and its arena is a single chunk, the chunk is detached from src
// and attached to dest wholesale. The returned root pointer is unchanged
// and no bytes are copied (§4.5).
func trySplice(root *symobj.SymObj, src, dest *region.Region) (*symobj.SymObj, bool) {
	if src == nil || !src.Terminal() || !src.SingleChunk() {
		return nil, false
	}

	chunks := src.DetachAll()
	dest.AttachAll(chunks)

	return root, true
}

// generalCopy performs the iterative, two-pass graph copy described in
// §4.5: a worklist first allocates an empty destination skeleton for every
// reachable object exactly once (the remap table makes repeat visits,
// including cycles, an O(1) no-op), then a second pass wires each
// skeleton's payload/edges now that every reachable object has a
// destination counterpart.
func generalCopy(root *symobj.SymObj, dest *region.Region, scr *scratch.Pair, sink Sink) *symobj.SymObj {
	var handle *scratch.Handle
	if scr != nil {
		handle = scr.Begin(nil)
		defer handle.End()
	}

	e := &engine{dest: dest, remap: make(map[*symobj.SymObj]*symobj.SymObj), sink: sink}

	worklist := make([]*symobj.SymObj, 0, 16)
	worklist = append(worklist, root)

	for len(worklist) > 0 {
		src := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]

		if _, seen := e.remap[src]; seen {
			continue
		}

		e.remap[src] = symobj.New(src.Tag)
		e.order = append(e.order, src)

		worklist = append(worklist, children(src)...)
	}

	_ = handle

	for _, src := range e.order {
		e.wire(src)
	}

	if e.failures > 0 {
		total := len(e.order)
		copied := total - e.failures
		e.warn(errors.TransmigrationPartialFailure(copied, total).Error())
	}

	return e.remap[root]
}

// children returns src's immediate outgoing references, spanning both
// edge storage and closure captures, so the worklist can enqueue them
// regardless of tag.
func children(src *symobj.SymObj) []*symobj.SymObj {
	if src.Tag.Scalar() {
		return nil
	}

	switch src.Tag {
	case symobj.TagSymbol, symobj.TagString, symobj.TagKeyword, symobj.TagError:
		return nil
	case symobj.TagClosure:
		return src.ClosureCaptures()
	default:
		return src.Edges()
	}
}

// wire fills in dst's payload/edges for the already-allocated skeleton of
// src, now that every reachable object has a remap entry.
func (e *engine) wire(src *symobj.SymObj) {
	dst := e.remap[src]

	if src.Tag.Scalar() {
		dst.SetBoxedValue(append([]byte(nil), src.BoxedValue()...))

		return
	}

	switch src.Tag {
	case symobj.TagSymbol, symobj.TagString, symobj.TagKeyword, symobj.TagError:
		buf, ok := e.copyBytes(src.BoxedValue())
		dst.SetBoxedValue(buf)

		if !ok {
			e.failures++
		}

	case symobj.TagClosure:
		caps := src.ClosureCaptures()
		newCaps := make([]*symobj.SymObj, len(caps))

		for i, c := range caps {
			newCaps[i] = e.remapOf(c)
		}

		dst.SetClosureCaptures(newCaps)

	default:
		for _, edge := range src.Edges() {
			dst.AddEdge(e.remapOf(edge))
		}
	}
}

// remapOf returns the destination counterpart of src, or nil if src is
// nil; every reachable object has already been allocated by the time wire
// runs, so this is a plain lookup.
func (e *engine) remapOf(src *symobj.SymObj) *symobj.SymObj {
	if src == nil {
		return nil
	}

	return e.remap[src]
}

// copyBytes places a copy of b in e.dest's arena and reports true on
// success. When e.dest refuses the allocation (region dead, or a genuine
// backing-store exhaustion), it still returns a usable heap copy so the
// destination object graph stays well-formed, but reports false: that
// object's bytes did not actually make it into the destination region,
// which is the partial-failure condition the caller must be able to
// observe (§7).
func (e *engine) copyBytes(b []byte) ([]byte, bool) {
	if b == nil {
		return nil, true
	}

	if e.dest != nil {
		ptr := e.dest.Alloc(uintptr(len(b)))
		if ptr != nil {
			dst := unsafe.Slice((*byte)(ptr), len(b))
			copy(dst, b)

			return dst, true
		}
	}

	return append([]byte(nil), b...), false
}

func (e *engine) warn(message string) {
	if e.sink != nil {
		e.sink(diagnostics.LevelWarning, message)
	}
}
