// Package scratch implements the thread-local, double-buffered scratch
// arenas used for genuinely transient work such as analysis-pass
// scratchpads and string builders (§4.4). The transmigration engine opens
// a frame for the duration of a copy but keeps its worklist and visited
// set on the Go heap.
package scratch

import (
	"unsafe"

	"github.com/omnilisp-lang/omnilisp/internal/errors"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/arena"
)

// Config tunes the scratch pair's trim behavior.
type Config struct {
	TrimThreshold uintptr
	ArenaOptions  []arena.Option
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		TrimThreshold: 1 * 1024 * 1024,
	}
}

func WithTrimThreshold(n uintptr) Option { return func(c *Config) { c.TrimThreshold = n } }

// Pair is the thread-local pair of scratch arenas. Every OS thread or
// green-thread worker that uses scratch frames owns exactly one Pair;
// callers are responsible for not sharing one across threads.
type Pair struct {
	a, b  *arena.Arena
	stack [2][]*Handle
	cfg   *Config
}

func (p *Pair) depth(slot int) int { return len(p.stack[slot]) }

// Depth reports the current nesting depth of scratch frames in the given
// slot (0 or 1), for introspection.
func (p *Pair) Depth(slot int) int { return p.depth(slot) }

// Bytes reports the combined resident capacity of both scratch arenas, for
// tests and introspection asserting the trim threshold bounds growth.
func (p *Pair) Bytes() uintptr { return p.a.Bytes() + p.b.Bytes() }

// NewPair constructs a fresh scratch pair.
func NewPair(opts ...Option) *Pair {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Pair{
		a:   arena.New(cfg.ArenaOptions...),
		b:   arena.New(cfg.ArenaOptions...),
		cfg: cfg,
	}
}

// Handle is a live scratch frame: an arena pointer and the snapshot mark it
// must rewind to on End.
type Handle struct {
	p       *Pair
	slot    int
	mark    arena.Mark
	ended   bool
	started bool
}

// Begin opens a new scratch frame. If conflict is non-nil, the frame uses
// whichever arena conflict is NOT using; otherwise it picks the arena with
// the lower nesting depth (§4.4).
func (p *Pair) Begin(conflict *Handle) *Handle {
	slot := p.pickSlot(conflict)
	arn := p.arenaFor(slot)

	h := &Handle{p: p, slot: slot, mark: arn.Snapshot(), started: true}
	p.stack[slot] = append(p.stack[slot], h)

	return h
}

func (p *Pair) pickSlot(conflict *Handle) int {
	if conflict != nil {
		return 1 - conflict.slot
	}

	if p.depth(0) <= p.depth(1) {
		return 0
	}

	return 1
}

func (p *Pair) arenaFor(slot int) *arena.Arena {
	if slot == 0 {
		return p.a
	}

	return p.b
}

// Alloc allocates from the handle's arena.
func (h *Handle) Alloc(size uintptr) unsafe.Pointer {
	if h.ended {
		panic(errors.InvariantViolation("scratch alloc", "use after scratch_end"))
	}

	return h.p.arenaFor(h.slot).Alloc(size)
}

// AllocAligned allocates with an explicit alignment.
func (h *Handle) AllocAligned(size, align uintptr) unsafe.Pointer {
	if h.ended {
		panic(errors.InvariantViolation("scratch alloc", "use after scratch_end"))
	}

	return h.p.arenaFor(h.slot).AllocAligned(size, align)
}

// End rewinds the handle's arena to its snapshot and, if this was the
// outermost frame on that arena and its footprint now exceeds the trim
// threshold, trims it. End must be called in LIFO order relative to other
// open handles on the same arena (§4.4); violating that is a programming
// error that End reports via panic in every build rather than corrupting
// state silently.
func (h *Handle) End() {
	if h.ended {
		panic(errors.InvariantViolation("scratch_end", "double end of scratch handle"))
	}

	p := h.p
	stack := p.stack[h.slot]

	if len(stack) == 0 || stack[len(stack)-1] != h {
		panic(errors.ScratchLIFOViolation(slotLabel(h.slot)))
	}

	p.stack[h.slot] = stack[:len(stack)-1]

	arn := p.arenaFor(h.slot)
	arn.Rewind(h.mark)
	h.ended = true

	if len(p.stack[h.slot]) == 0 && arn.Bytes() > p.cfg.TrimThreshold {
		arn.Trim()
	}
}

func slotLabel(slot int) string {
	if slot == 0 {
		return "A"
	}

	return "B"
}

// ReleaseAll forcibly ends every outstanding frame on both arenas and frees
// them, for thread teardown.
func (p *Pair) ReleaseAll() {
	p.a.Free()
	p.b.Free()
	p.stack = [2][]*Handle{}
}
