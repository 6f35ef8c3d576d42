package component

import (
	"sync/atomic"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/symobj"
)

// Config tunes a Pool's slab size.
type Config struct {
	SlabSize int
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{SlabSize: 128}
}

func WithSlabSize(n int) Option { return func(c *Config) { c.SlabSize = n } }

// Pool is the thread-local slab allocator and deferred dismantle queue for
// component headers (§3, §4.6). One Pool per OS thread.
type Pool struct {
	cfg      *Config
	freeList []*Component
	queue    []*Component // dismantle_queue, FIFO
}

// NewPool constructs a thread-local component pool.
func NewPool(opts ...Option) *Pool {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Pool{cfg: cfg}
}

// NewComponent implements component_new(): a fresh root header drawn from
// the slab free list, or a fresh allocation if the list is empty.
func (p *Pool) NewComponent() *Component {
	if n := len(p.freeList); n > 0 {
		c := p.freeList[n-1]
		p.freeList = p.freeList[:n-1]
		c.reset()

		return c
	}

	return New()
}

func (p *Pool) recycle(c *Component) {
	if len(p.freeList) >= p.cfg.SlabSize {
		return // let the GC reclaim it; the slab has a bounded size
	}

	p.freeList = append(p.freeList, c)
}

// AcquireHandle implements acquire_handle(c): root.handle_count += 1.
func AcquireHandle(c *Component) {
	root := Find(c)
	addState(root, 1, 0)
}

// ReleaseHandle implements release_handle(c): root.handle_count -= 1; if
// state == 0 and dismantling isn't already scheduled, enqueue the root on
// p's dismantle queue.
func (p *Pool) ReleaseHandle(c *Component) {
	root := Find(c)
	addState(root, -1, 0)
	p.maybeSchedule(root)
}

// Token identifies an outstanding tether on a component, returned by
// TetherBegin and consumed by TetherEnd.
type Token struct {
	c *Component
}

// TetherBegin implements tether_begin(c) -> token.
func (p *Pool) TetherBegin(c *Component) Token {
	root := Find(c)
	addState(root, 0, 1)

	return Token{c: root}
}

// TetherEnd implements tether_end(token).
func (p *Pool) TetherEnd(tok Token) {
	addState(tok.c, 0, -1)
	p.maybeSchedule(tok.c)
}

func (p *Pool) maybeSchedule(root *Component) bool {
	if atomic.LoadUint64(&root.state) != 0 {
		return false
	}

	if !atomic.CompareAndSwapInt32(&root.dismantleScheduled, 0, 1) {
		return false
	}

	p.queue = append(p.queue, root)

	return true
}

// QueueDepth reports how many components are currently pending dismantling
// on this pool, for the introspection endpoint and tests.
func (p *Pool) QueueDepth() int { return len(p.queue) }

// ProcessDismantle pops up to batch components from the dismantle queue
// (0 means "drain everything currently queued") and dismantles each: for
// every member, cancels outgoing internal edges, frees the payload, marks
// it freed, and releases overflow refs; then frees the member list and
// returns the header to the pool (§4.6).
func (p *Pool) ProcessDismantle(batch int) int {
	n := batch
	if n <= 0 || n > len(p.queue) {
		n = len(p.queue)
	}

	dismantled := 0

	for i := 0; i < n; i++ {
		root := p.queue[0]
		p.queue = p.queue[1:]

		// A component can be re-acquired between scheduling and draining;
		// re-check before actually dismantling it.
		if atomic.LoadUint64(&root.state) != 0 {
			atomic.StoreInt32(&root.dismantleScheduled, 0)

			continue
		}

		p.dismantleOne(root)
		dismantled++
	}

	return dismantled
}

// Cleanup implements component_cleanup(): the thread-teardown safe point
// (§4.6) where no further acquire_handle/tether_begin calls for this pool
// are coming. It first drains whatever is already queued via
// ProcessDismantle, then forcibly dismantles every component in live
// regardless of its outstanding handle_count/tether_count — a live island
// a thread still held handles to when it exited has no other thread left
// to release them, so its members would otherwise leak. Callers are
// responsible for passing every component this pool's thread still holds a
// handle or tether on; Cleanup does not discover them on its own. Returns
// the total number of components dismantled.
func (p *Pool) Cleanup(live ...*Component) int {
	dismantled := p.ProcessDismantle(0)

	for _, c := range live {
		root := Find(c)

		root.mu.Lock()
		already := root.dismantled
		root.mu.Unlock()

		if already {
			continue
		}

		atomic.StoreUint64(&root.state, 0)
		atomic.StoreInt32(&root.dismantleScheduled, 1)

		p.dismantleOne(root)
		dismantled++
	}

	return dismantled
}

func (p *Pool) dismantleOne(root *Component) {
	root.mu.Lock()
	members := root.members
	root.members = nil
	root.dismantled = true
	root.mu.Unlock()

	for _, m := range members {
		cancelInternalEdges(m)
		m.MarkFreed()
	}

	p.recycle(root)
}

// cancelInternalEdges decrements internal_rc on every object m points to.
// Per §9 Open Question (b), a target may now live in a different component
// than m after a prior merge (via forwarding). No Find() is needed: the
// decrement is applied directly to the edge's recorded target object
// (internal_rc lives on the object, not the component).
func cancelInternalEdges(m *symobj.SymObj) {
	for _, e := range m.Edges() {
		m.RemoveEdge(e)
	}
}
