package inspect

import (
	"testing"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/scratch"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/tether"
)

func TestRegionSnapshotReflectsLiveCounters(t *testing.T) {
	r := region.Create()
	ref := region.NewRef(nil, r)

	snap := Region(r)
	if !snap.Alive || snap.ExternalRC != 1 {
		t.Fatalf("expected alive region with externalRC=1, got %+v", snap)
	}

	ref.Release()
	r.Exit()

	snap = Region(r)
	if !snap.Dead {
		t.Fatalf("expected dead region after exit with no outstanding refs, got %+v", snap)
	}
}

func TestPoolSnapshotReflectsQueueDepth(t *testing.T) {
	pool := component.NewPool()
	c := pool.NewComponent()

	component.AcquireHandle(c)
	pool.ReleaseHandle(c)

	if Pool(pool).QueueDepth != 1 {
		t.Fatalf("expected queue depth 1, got %+v", Pool(pool))
	}
}

func TestScratchSnapshotReflectsDepth(t *testing.T) {
	pair := scratch.NewPair()
	h := pair.Begin(nil)

	snap := Scratch(pair)
	if snap.SlotADepth+snap.SlotBDepth != 1 {
		t.Fatalf("expected exactly one open frame across both slots, got %+v", snap)
	}

	h.End()
}

func TestTetherSnapshotReflectsCacheSize(t *testing.T) {
	c := tether.New()
	r := region.Create()

	c.Start(r)

	if Tether(c).CachedRegions != 1 {
		t.Fatalf("expected 1 cached region, got %+v", Tether(c))
	}

	c.End(r)
}
