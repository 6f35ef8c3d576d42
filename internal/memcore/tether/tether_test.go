package tether

import (
	"testing"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/region"
)

func TestTetherCoalescesRepeatedStarts(t *testing.T) {
	r := region.Create()
	c := New()

	c.Start(r)
	c.Start(r)
	c.Start(r)

	if got := r.TetherCount(); got != 1 {
		t.Fatalf("expected coalesced tether_count=1, got %d", got)
	}

	c.End(r)
	if got := r.TetherCount(); got != 1 {
		t.Fatalf("tether_count should still be 1 after one of three ends, got %d", got)
	}

	c.End(r)
	c.End(r)

	if got := r.TetherCount(); got != 0 {
		t.Fatalf("expected tether_count=0 after matching ends, got %d", got)
	}
}

func TestTetherCacheOverflowFallsBackUncoalesced(t *testing.T) {
	c := NewWithCapacity(2)

	r1 := region.Create()
	r2 := region.Create()
	r3 := region.Create()

	c.Start(r1)
	c.Start(r2)
	c.Start(r3) // overflow: uncoalesced

	if c.Len() != 2 {
		t.Fatalf("expected cache to hold only 2 entries, got %d", c.Len())
	}

	if r3.TetherCount() != 1 {
		t.Fatalf("overflowed region should still get a real tether, got %d", r3.TetherCount())
	}

	c.End(r1)
	c.End(r2)
	c.End(r3)

	for i, r := range []*region.Region{r1, r2, r3} {
		if r.TetherCount() != 0 {
			t.Errorf("region %d: expected tether_count=0, got %d", i, r.TetherCount())
		}
	}
}

func TestTetherIndependentPerRegion(t *testing.T) {
	c := New()

	r1 := region.Create()
	r2 := region.Create()

	c.Start(r1)
	c.Start(r1)
	c.Start(r2)

	if r1.TetherCount() != 1 || r2.TetherCount() != 1 {
		t.Fatalf("expected both regions tethered once, got r1=%d r2=%d", r1.TetherCount(), r2.TetherCount())
	}

	c.End(r1)
	c.End(r1)
	c.End(r2)

	if r1.TetherCount() != 0 || r2.TetherCount() != 0 {
		t.Fatalf("expected both regions untethered, got r1=%d r2=%d", r1.TetherCount(), r2.TetherCount())
	}
}
