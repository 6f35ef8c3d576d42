// Package region implements the logical owner of an arena: a Region holds
// an inline small-object buffer plus liveness counters, and is the unit
// that RegionRef retains and releases.
package region

import (
	"sync/atomic"
	"unsafe"

	"golang.org/x/crypto/blake2b"

	"github.com/omnilisp-lang/omnilisp/internal/errors"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/arena"
)

// Config tunes a Region's inline buffer and small-object routing.
type Config struct {
	InlineBufferSize   uintptr
	SmallObjectThresh  uintptr
	ArenaOptions       []arena.Option
	EnableIntegrityLog bool
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		InlineBufferSize:  512,
		SmallObjectThresh: 64,
	}
}

func WithInlineBufferSize(n uintptr) Option  { return func(c *Config) { c.InlineBufferSize = n } }
func WithSmallObjectThresh(n uintptr) Option { return func(c *Config) { c.SmallObjectThresh = n } }
func WithArenaOptions(opts ...arena.Option) Option {
	return func(c *Config) { c.ArenaOptions = opts }
}

func WithIntegrityLog(enabled bool) Option {
	return func(c *Config) { c.EnableIntegrityLog = enabled }
}

// state bits for the lifecycle state machine (§4.2).
type state int32

const (
	stateAlive state = iota
	stateDraining
	stateDead
)

// Region owns exactly one arena plus a fixed-size inline buffer. Fields
// mirror §3 exactly: external_rc, tether_count, and scope_alive.
type Region struct {
	arena *arena.Arena

	inline       []byte
	inlineOffset uintptr

	externalRC  int64 // atomic
	tetherCount int64 // atomic
	scopeAlive  int32 // atomic bool: 1 alive, 0 dead
	dead        int32 // atomic bool: 1 once die() has run

	cfg *Config

	// onDead is invoked exactly once, when the region transitions to Dead.
	// Used by tests and by the debug inspector; never required for
	// correctness.
	onDead func(*Region)

	// integrityHash is the blake2b-256 digest of the inline buffer's live
	// bytes, computed just before die() frees it when cfg.EnableIntegrityLog
	// is set. Debug-only: a mismatch against a previously captured value
	// would indicate something wrote past its allocation into the inline
	// buffer, which the substrate otherwise has no way to detect.
	integrityHash [32]byte
	hasIntegrity  bool
}

// Create allocates a fresh, alive region with zero outstanding references.
func Create(opts ...Option) *Region {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Region{
		arena:      arena.New(cfg.ArenaOptions...),
		inline:     make([]byte, cfg.InlineBufferSize),
		scopeAlive: 1,
		cfg:        cfg,
	}
}

// Arena exposes the backing arena, e.g. for the transmigration engine's
// splice fast path which needs to detach/attach whole chunk chains.
func (r *Region) Arena() *arena.Arena { return r.arena }

// Alive reports whether the region currently accepts allocations.
func (r *Region) Alive() bool { return atomic.LoadInt32(&r.scopeAlive) == 1 }

// ExternalRC returns the current external strong-reference count.
func (r *Region) ExternalRC() int64 { return atomic.LoadInt64(&r.externalRC) }

// TetherCount returns the current count of active scoped borrows.
func (r *Region) TetherCount() int64 { return atomic.LoadInt64(&r.tetherCount) }

// Alloc routes a request through the inline buffer for small sizes,
// falling back to the arena on inline exhaustion or oversize (§4.2's
// allocation policy). Allocation is forbidden once the region is draining
// or dead.
func (r *Region) Alloc(size uintptr) unsafe.Pointer {
	if !r.Alive() {
		return nil
	}

	if size == 0 {
		return nil
	}

	if size <= r.cfg.SmallObjectThresh {
		if ptr := r.allocInline(size); ptr != nil {
			return ptr
		}
	}

	return r.arena.Alloc(size)
}

func (r *Region) allocInline(size uintptr) unsafe.Pointer {
	aligned := alignUp(r.inlineOffset, unsafe.Alignof(uintptr(0)))
	if aligned+size > uintptr(len(r.inline)) {
		return nil
	}

	r.inlineOffset = aligned + size

	return unsafe.Pointer(&r.inline[aligned])
}

func alignUp(n, alignment uintptr) uintptr {
	if alignment == 0 {
		return n
	}

	return (n + alignment - 1) &^ (alignment - 1)
}

// RetainInternal bumps the external reference count. Called by
// RegionRef construction.
func (r *Region) RetainInternal() {
	atomic.AddInt64(&r.externalRC, 1)
}

// ReleaseInternal drops the external reference count and, if the region is
// draining and both counters have reached zero, finalizes it to Dead.
// ReleaseInternal must never be called more times than RetainInternal for
// a given region; debug builds should pair every RegionRef drop with
// exactly one call.
func (r *Region) ReleaseInternal() {
	v := atomic.AddInt64(&r.externalRC, -1)
	if v < 0 {
		panic(errors.InvariantViolation("region external_rc", "went negative"))
	}

	r.maybeDie()
}

// TetherStart increments the tether count directly (uncoalesced path; the
// tether cache package is the coalescing front-end most callers should
// use).
func (r *Region) TetherStart() {
	atomic.AddInt64(&r.tetherCount, 1)
}

// TetherEnd decrements the tether count and re-checks liveness.
func (r *Region) TetherEnd() {
	v := atomic.AddInt64(&r.tetherCount, -1)
	if v < 0 {
		panic(errors.InvariantViolation("region tether_count", "went negative"))
	}

	r.maybeDie()
}

// Exit marks the region's scope as ended. Only the thread that calls Exit
// may perform this transition (§4.2's concurrency note); other threads
// observe it only through subsequent counter loads. Allocation is
// forbidden from this point on (Draining state), and the region dies as
// soon as both counters read zero.
func (r *Region) Exit() {
	atomic.StoreInt32(&r.scopeAlive, 0)
	r.maybeDie()
}

// maybeDie implements the Draining -> Dead transition: it is the single
// compare that decides whether the region can be torn down right now. The
// liveness check uses acquire loads on both counters, and is always
// performed after whichever decrement crossed a threshold, per §4.2.
func (r *Region) maybeDie() {
	if atomic.LoadInt32(&r.scopeAlive) == 1 {
		return
	}

	if atomic.LoadInt64(&r.externalRC) != 0 {
		return
	}

	if atomic.LoadInt64(&r.tetherCount) != 0 {
		return
	}

	r.die()
}

func (r *Region) die() {
	if !atomic.CompareAndSwapInt32(&r.dead, 0, 1) {
		return
	}

	if r.cfg.EnableIntegrityLog && r.inline != nil {
		r.integrityHash = blake2b.Sum256(r.inline[:r.inlineOffset])
		r.hasIntegrity = true
	}

	r.arena.Free()
	r.inline = nil

	if r.onDead != nil {
		r.onDead(r)
	}
}

// Destroyable reports whether the region currently satisfies the dead
// condition of §3: !scope_alive && external_rc == 0 && tether_count == 0.
// Exposed for tests of §8's "no premature free" property.
func (r *Region) Destroyable() bool {
	return !r.Alive() && r.ExternalRC() == 0 && r.TetherCount() == 0
}

// Dead reports whether the region has actually been finalized (its arena
// freed). Distinct from Destroyable only in that Dead additionally reports
// that die() has already run.
func (r *Region) Dead() bool {
	return atomic.LoadInt32(&r.dead) == 1
}

// OnDead registers a callback invoked exactly once when the region
// transitions to Dead. Intended for tests and the debug inspector.
func (r *Region) OnDead(fn func(*Region)) {
	r.onDead = fn
}

// IntegrityChecksum returns the blake2b-256 digest captured at die() time
// when Config.EnableIntegrityLog is set, and whether one was captured at
// all (false before death, or if the option was never enabled).
func (r *Region) IntegrityChecksum() ([32]byte, bool) {
	return r.integrityHash, r.hasIntegrity
}

// Terminal reports whether the region is a candidate for the
// transmigration engine's O(1) splice fast path (§4.5): no outstanding
// external references at all. This
// does not require scope_alive to already be false — the canonical
// "result-only" use transmigrates the return value and only then calls
// Exit, as in §8 scenario 1.
func (r *Region) Terminal() bool {
	return r.ExternalRC() == 0
}

// SingleChunk reports whether the region's arena consists of exactly one
// chunk, the other precondition of the splice fast path.
func (r *Region) SingleChunk() bool {
	return r.arena.SingleChunk()
}

// DetachAll hands the region's entire arena chunk chain to the caller in
// O(1), for the transmigration splice fast path. The region's arena is left
// empty; callers must not allocate from it afterward.
func (r *Region) DetachAll() arena.Chunks {
	return r.arena.DetachAll()
}

// AttachAll attaches a previously detached chunk chain to this region's
// arena in O(1).
func (r *Region) AttachAll(chunks arena.Chunks) {
	r.arena.AttachBlocks(chunks)
}

// Splice moves a contiguous run of source-arena chunks into this region's
// arena, for the region_splice operation of §4.2/§6. start/end name the
// boundary pointers within the source arena; locating their chunks walks
// the source chain, and the relink is O(1).
func Splice(dest, src *Region, start, end unsafe.Pointer) bool {
	chunks, ok := src.arena.DetachBlocks(start, end)
	if !ok {
		return false
	}

	dest.arena.AttachBlocks(chunks)

	return true
}
