// Package inspect builds read-only diagnostic snapshots of live memory
// substrate state, in the same spirit as the runtime's debug snapshot
// types: a point-in-time copy safe to hand to a caller without holding
// any lock afterward.
package inspect

import (
	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/scratch"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/tether"
)

// RegionSnapshot is a read-only view of one Region's liveness counters.
type RegionSnapshot struct {
	Alive       bool
	Dead        bool
	ExternalRC  int64
	TetherCount int64
	ChunkCount  int
	ArenaBytes  uintptr
	SingleChunk bool
	TerminalNow bool
}

// Region builds a RegionSnapshot of r.
func Region(r *region.Region) RegionSnapshot {
	return RegionSnapshot{
		Alive:       r.Alive(),
		Dead:        r.Dead(),
		ExternalRC:  r.ExternalRC(),
		TetherCount: r.TetherCount(),
		ChunkCount:  r.Arena().ChunkCount(),
		ArenaBytes:  r.Arena().Bytes(),
		SingleChunk: r.SingleChunk(),
		TerminalNow: r.Terminal(),
	}
}

// PoolSnapshot is a read-only view of a component Pool's dismantle queue.
type PoolSnapshot struct {
	QueueDepth int
}

// Pool builds a PoolSnapshot of p.
func Pool(p *component.Pool) PoolSnapshot {
	return PoolSnapshot{QueueDepth: p.QueueDepth()}
}

// ScratchSnapshot is a read-only view of a scratch Pair's two arenas.
type ScratchSnapshot struct {
	SlotADepth int
	SlotBDepth int
}

// Scratch builds a ScratchSnapshot of pair.
func Scratch(pair *scratch.Pair) ScratchSnapshot {
	return ScratchSnapshot{
		SlotADepth: pair.Depth(0),
		SlotBDepth: pair.Depth(1),
	}
}

// TetherSnapshot is a read-only view of a thread-local tether cache.
type TetherSnapshot struct {
	CachedRegions int
}

// Tether builds a TetherSnapshot of c.
func Tether(c *tether.Cache) TetherSnapshot {
	return TetherSnapshot{CachedRegions: c.Len()}
}
