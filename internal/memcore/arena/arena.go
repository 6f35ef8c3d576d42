// Package arena implements the chunked bump-pointer allocator that backs
// every region, scratch frame, and component slab in the OmniLisp memory
// substrate. Allocation is O(1); bulk reclamation is O(1) per chunk.
package arena

import (
	"fmt"
	"sync"
	"unsafe"
)

// Config tunes chunk growth for an Arena. Mirrors the functional-options
// shape used throughout the memory core.
type Config struct {
	InitialChunkSize uintptr
	GrowthFactor     float64
	MaxChunkSize     uintptr
	Alignment        uintptr
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		InitialChunkSize: 4 * 1024,
		GrowthFactor:     1.5,
		MaxChunkSize:     4 * 1024 * 1024,
		Alignment:        unsafe.Alignof(uintptr(0)),
	}
}

func WithInitialChunkSize(n uintptr) Option { return func(c *Config) { c.InitialChunkSize = n } }
func WithGrowthFactor(f float64) Option     { return func(c *Config) { c.GrowthFactor = f } }
func WithMaxChunkSize(n uintptr) Option     { return func(c *Config) { c.MaxChunkSize = n } }
func WithAlignment(n uintptr) Option        { return func(c *Config) { c.Alignment = n } }

// chunk is a contiguous byte buffer with a monotonically advancing offset.
type chunk struct {
	buf     []byte
	offset  uintptr
	next    *chunk
	prev    *chunk
	mmapped bool // backing buf came from allocChunkBuffer's mmap path
}

func (c *chunk) release() { freeChunkBuffer(c.buf, c.mmapped) }

func (c *chunk) cap() uintptr { return uintptr(len(c.buf)) }

// Mark is a snapshot of an arena's allocation frontier, suitable for
// rewind. It names the chunk by pointer identity and the offset within it.
type Mark struct {
	c      *chunk
	offset uintptr
}

// Valid always reports true: a Mark holds no reference to its arena, so it
// cannot tell whether its chunk has since been released. A zero-value Mark
// (from an arena with no chunks) rewinds to empty.
func (m Mark) Valid() bool { return true }

// Arena is a thread-owned chunked bump allocator. Per §5 of the memory
// substrate design, arenas are thread-local and coordination happens only
// at the region/component boundary; every method still takes the arena's
// mutex, so concurrent calls do not corrupt the chunk chain.
type Arena struct {
	cfg  *Config
	head *chunk // oldest chunk
	tail *chunk // current (bump) chunk
	mu   sync.Mutex
}

// New creates an empty arena. No chunk is allocated until the first Alloc.
func New(opts ...Option) *Arena {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Arena{cfg: cfg}
}

func alignUp(n, alignment uintptr) uintptr {
	if alignment == 0 {
		return n
	}

	return (n + alignment - 1) &^ (alignment - 1)
}

func (a *Arena) nextChunkSize(want uintptr) uintptr {
	size := a.cfg.InitialChunkSize
	if a.tail != nil {
		size = uintptr(float64(a.tail.cap()) * a.cfg.GrowthFactor)
	}

	if size > a.cfg.MaxChunkSize {
		size = a.cfg.MaxChunkSize
	}

	if size < want {
		size = want
	}

	return size
}

func (a *Arena) growLocked(want uintptr) bool {
	size := a.nextChunkSize(want)

	buf, mmapped := allocChunkBuffer(size)
	if len(buf) == 0 {
		return false
	}

	c := &chunk{buf: buf, mmapped: mmapped}
	if a.tail == nil {
		a.head = c
		a.tail = c
	} else {
		c.prev = a.tail
		a.tail.next = c
		a.tail = c
	}

	return true
}

// Alloc returns a word-aligned pointer to size bytes, or nil on failure.
// It never panics: out-of-memory is a nil return, per the memory core's
// error taxonomy (§7).
func (a *Arena) Alloc(size uintptr) unsafe.Pointer {
	return a.AllocAligned(size, a.cfg.Alignment)
}

// AllocAligned is Alloc with an explicit alignment requirement.
func (a *Arena) AllocAligned(size, align uintptr) unsafe.Pointer {
	if size == 0 {
		return nil
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tail != nil {
		aligned := alignUp(a.tail.offset, align)
		if aligned+size <= a.tail.cap() {
			a.tail.offset = aligned + size

			return unsafe.Pointer(&a.tail.buf[aligned])
		}
	}

	if !a.growLocked(alignUp(size, align)) {
		return nil
	}

	aligned := alignUp(a.tail.offset, align)
	if aligned+size > a.tail.cap() {
		return nil
	}

	a.tail.offset = aligned + size

	return unsafe.Pointer(&a.tail.buf[aligned])
}

// Snapshot captures the current allocation frontier.
func (a *Arena) Snapshot() Mark {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tail == nil {
		return Mark{}
	}

	return Mark{c: a.tail, offset: a.tail.offset}
}

// Rewind releases every chunk allocated after mark and resets the marked
// chunk's offset. Calling it while a scratch frame opened before mark is
// still live corrupts that frame's view of the arena; callers must respect
// LIFO discipline (§4.4).
func (a *Arena) Rewind(m Mark) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if m.c == nil {
		// Rewinding to "empty" drops everything.
		releaseChain(a.head)
		a.head = nil
		a.tail = nil

		return
	}

	releaseChain(m.c.next)
	m.c.offset = m.offset
	m.c.next = nil
	a.tail = m.c
}

// releaseChain returns every chunk's backing buffer starting at c, walking
// forward. Used when a chunk chain is dropped outright (Rewind, Free).
func releaseChain(c *chunk) {
	for c != nil {
		next := c.next
		c.release()
		c = next
	}
}

// Trim releases chunks after the current tail (there are none once Rewind
// has run) and, when the arena sits empty, drops its sole chunk so the
// backing buffer can be collected.
func (a *Arena) Trim() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tail != nil && a.tail.offset == 0 && a.tail == a.head {
		a.tail.release()
		a.head = nil
		a.tail = nil
	}
}

// Free releases the arena's entire chunk chain, returning any mmap'd
// chunk buffers to the OS.
func (a *Arena) Free() {
	a.mu.Lock()
	defer a.mu.Unlock()

	releaseChain(a.head)
	a.head = nil
	a.tail = nil
}

// ChunkCount returns the number of chunks currently chained in the arena.
// Exposed for tests that assert splice/O(1) behavior (§8 scenario 6).
func (a *Arena) ChunkCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for c := a.head; c != nil; c = c.next {
		n++
	}

	return n
}

// Bytes returns the total capacity of all chunks, used by scratch trimming
// to decide whether the high-water mark exceeds its threshold.
func (a *Arena) Bytes() uintptr {
	a.mu.Lock()
	defer a.mu.Unlock()

	var total uintptr
	for c := a.head; c != nil; c = c.next {
		total += c.cap()
	}

	return total
}

// Chunks is an opaque, detached chain of one or more arena chunks. It is
// produced by DetachBlocks and consumed by AttachBlocks; the zero value
// holds nothing.
type Chunks struct {
	head, tail *chunk
}

// Empty reports whether the chain holds no chunks.
func (c Chunks) Empty() bool { return c.head == nil }

// DetachBlocks detaches the contiguous sub-chain of chunks between the two
// chunks that own start and end (inclusive), for use by region_splice.
// Finding the two boundary chunks walks the chain; the unlink itself is
// O(1), and links beyond the boundary are not touched. The moved chunks retain their
// addresses, so embedded pointers stay valid.
func (a *Arena) DetachBlocks(start, end unsafe.Pointer) (Chunks, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	sc := a.chunkOwning(start)
	ec := a.chunkOwning(end)

	if sc == nil || ec == nil {
		return Chunks{}, false
	}

	before := sc.prev
	after := ec.next

	if before != nil {
		before.next = after
	} else {
		a.head = after
	}

	if after != nil {
		after.prev = before
	} else {
		a.tail = before
	}

	sc.prev = nil
	ec.next = nil

	return Chunks{head: sc, tail: ec}, true
}

// DetachAll detaches this arena's entire chunk chain in O(1), leaving the
// arena empty. This is the path used by the transmigration engine's region
// splice fast path (§4.5), which moves a terminal region's single chunk
// wholesale.
func (a *Arena) DetachAll() Chunks {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunks := Chunks{head: a.head, tail: a.tail}
	a.head = nil
	a.tail = nil

	return chunks
}

// AttachBlocks appends a previously detached chunk chain to this arena in
// O(1), preserving the chunks' addresses (and therefore any embedded
// pointers into them).
func (a *Arena) AttachBlocks(chunks Chunks) {
	if chunks.head == nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.tail == nil {
		a.head = chunks.head
		a.tail = chunks.tail
		chunks.head.prev = nil

		return
	}

	a.tail.next = chunks.head
	chunks.head.prev = a.tail
	a.tail = chunks.tail
}

func (a *Arena) chunkOwning(p unsafe.Pointer) *chunk {
	addr := uintptr(p)
	for c := a.head; c != nil; c = c.next {
		if len(c.buf) == 0 {
			continue
		}

		base := uintptr(unsafe.Pointer(&c.buf[0]))
		if addr >= base && addr < base+c.cap() {
			return c
		}
	}

	return nil
}

// SingleChunk reports whether the arena's whole contents fit in one chunk,
// the precondition for the transmigration engine's O(1) splice fast path
// (§4.5).
func (a *Arena) SingleChunk() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.head != nil && a.head == a.tail
}

// String renders a short diagnostic summary, in the teacher's style of
// giving stat-bearing types a String() method for ad-hoc debugging.
func (a *Arena) String() string {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	var used, total uintptr

	for c := a.head; c != nil; c = c.next {
		n++
		used += c.offset
		total += c.cap()
	}

	return fmt.Sprintf("arena{chunks=%d used=%d/%d}", n, used, total)
}
