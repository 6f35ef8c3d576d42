// Package component implements the union-find "island" mechanism that
// reclaims strongly-connected object graphs as a single unit
// (Component-Level Scope Tethering, §4.6).
package component

import (
	"sync"
	"sync/atomic"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/symobj"
)

// packState/unpackState pack (handle_count, tether_count) into one 64-bit
// word so the dismantle condition `state == 0` is a single compare, per
// §3/§4.6.
func packState(handles, tethers uint32) uint64 {
	return uint64(handles)<<32 | uint64(tethers)
}

func unpackState(s uint64) (handles, tethers uint32) {
	return uint32(s >> 32), uint32(s)
}

var nextID uint64

// Component is a root or forwarding header for an SCC island. Non-root
// headers are opaque forwarding records: they must not be freed while any
// pointer to them exists, because outstanding edges or stale Find results
// may still address them (§3).
type Component struct {
	id     uint64
	state  uint64 // atomic, packed handle_count/tether_count
	parent atomic.Pointer[Component]
	mu     sync.Mutex // guards members during non-hot-path mutation

	members            []*symobj.SymObj
	dismantleScheduled int32 // atomic bool
	dismantled         bool
}

// New allocates a fresh root component with no members.
func New() *Component {
	return &Component{id: atomic.AddUint64(&nextID, 1)}
}

// ID returns the component's identity, stable across union (the id is that
// of whichever header is currently the object's immediate owner, not
// necessarily the forest root — callers that need the canonical root
// identity should call Find(c).ID()).
func (c *Component) ID() uint64 { return c.id }

// Find performs union-find find with path compression and returns the
// current root. Path compression here is single-threaded by contract
// (§4.6's "Union correctness under concurrency" note, and Open Question
// (a) in §9): callers that traverse the same chain from multiple threads
// must confine that traversal to one thread per island, which is exactly
// how the runtime's "caller holds strong references to both roots" union
// contract is meant to be used.
func Find(c *Component) *Component {
	root := c

	for {
		p := root.parent.Load()
		if p == nil {
			break
		}

		root = p
	}

	// Path compression: point every visited node directly at root.
	cur := c
	for cur != root {
		next := cur.parent.Load()
		if next == nil {
			break
		}

		cur.parent.Store(root)
		cur = next
	}

	return root
}

// AddMember appends obj to c's member list and sets obj's owning component
// to c's current root.
func AddMember(c *Component, obj *symobj.SymObj) {
	root := Find(c)

	root.mu.Lock()
	root.members = append(root.members, obj)
	root.mu.Unlock()

	obj.Component = root
}

// Members returns a copy of the root's current member list.
func (c *Component) Members() []*symobj.SymObj {
	root := Find(c)

	root.mu.Lock()
	defer root.mu.Unlock()

	return append([]*symobj.SymObj(nil), root.members...)
}

// Union merges the smaller island into the larger one, per member count,
// transferring counters and members and updating each moved member's
// back-pointer. The emptied child remains allocated as a forwarding
// record — it is reclaimed only when its new root is dismantled (§4.6).
//
// The caller must hold strong references to both a and b (handles or
// tethers) for the duration of the call; Union is not safe to race against
// a concurrent dismantle of either island (§4.6, §9 Open Question (a)).
func Union(a, b *Component) *Component {
	ra := Find(a)
	rb := Find(b)

	if ra == rb {
		return ra
	}

	big, small := ra, rb
	if len(small.members) > len(big.members) {
		big, small = small, big
	}

	small.mu.Lock()
	movedMembers := small.members
	small.members = nil
	small.mu.Unlock()

	big.mu.Lock()
	big.members = append(big.members, movedMembers...)
	big.mu.Unlock()

	for _, m := range movedMembers {
		m.Component = big
	}

	sh, st := unpackState(atomic.LoadUint64(&small.state))
	atomic.StoreUint64(&small.state, 0)
	addState(big, int64(sh), int64(st))

	small.parent.Store(big)

	return big
}

func addState(c *Component, dh, dt int64) {
	for {
		old := atomic.LoadUint64(&c.state)
		h, t := unpackState(old)
		nh := uint32(int64(h) + dh)
		nt := uint32(int64(t) + dt)
		neu := packState(nh, nt)

		if atomic.CompareAndSwapUint64(&c.state, old, neu) {
			return
		}
	}
}

// HandleCount returns the root's current strong-handle count.
func (c *Component) HandleCount() uint32 {
	root := Find(c)
	h, _ := unpackState(atomic.LoadUint64(&root.state))

	return h
}

// TetherCount returns the root's current scoped-borrow count.
func (c *Component) TetherCount() uint32 {
	root := Find(c)
	_, t := unpackState(atomic.LoadUint64(&root.state))

	return t
}

// reset clears a recycled header's fields in place without copying the
// embedded mutex, for reuse from the pool's free list.
func (c *Component) reset() {
	c.state = 0
	c.parent.Store(nil)
	c.mu.Lock()
	c.members = nil
	c.dismantleScheduled = 0
	c.dismantled = false
	c.mu.Unlock()
}

// Dismantled reports whether process_dismantle has already reclaimed this
// component's root.
func (c *Component) Dismantled() bool {
	root := Find(c)

	root.mu.Lock()
	defer root.mu.Unlock()

	return root.dismantled
}
