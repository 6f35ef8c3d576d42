package region

import (
	"sync"
	"testing"
)

func TestRegionAllocInlineThenArena(t *testing.T) {
	r := Create(WithInlineBufferSize(64), WithSmallObjectThresh(32))
	defer r.Exit()

	t.Run("InlineFastPath", func(t *testing.T) {
		ptr := r.Alloc(16)
		if ptr == nil {
			t.Fatal("inline allocation failed")
		}
	})

	t.Run("OversizeFallsBackToArena", func(t *testing.T) {
		ptr := r.Alloc(128)
		if ptr == nil {
			t.Fatal("oversize allocation should fall back to the arena")
		}
	})

	t.Run("InlineExhaustionFallsBack", func(t *testing.T) {
		// Drain the remaining inline capacity, then confirm a small
		// request still succeeds via the arena.
		for i := 0; i < 8; i++ {
			r.Alloc(16)
		}

		if ptr := r.Alloc(16); ptr == nil {
			t.Fatal("allocation should still succeed from the arena once inline is exhausted")
		}
	})
}

func TestRegionNoPrematureFree(t *testing.T) {
	r := Create()

	died := false
	r.OnDead(func(*Region) { died = true })

	ref := NewRef(r.Alloc(16), r)

	r.Exit() // scope ends, but external_rc is still 1

	if died {
		t.Fatal("region died while a RegionRef was still outstanding")
	}

	if r.Alive() {
		t.Fatal("region should report not-alive after Exit")
	}

	ref.Release()

	if !died {
		t.Fatal("region should die once the last RegionRef is released after exit")
	}

	if !r.Destroyable() {
		t.Fatal("region should satisfy the dead condition")
	}
}

func TestRegionConservation(t *testing.T) {
	r := Create()
	defer r.Exit()

	var refs []Ref
	for i := 0; i < 5; i++ {
		refs = append(refs, NewRef(r.Alloc(8), r))
	}

	if r.ExternalRC() != 5 {
		t.Fatalf("expected external_rc=5, got %d", r.ExternalRC())
	}

	for _, ref := range refs {
		ref.Release()
	}

	if r.ExternalRC() != 0 {
		t.Fatalf("expected external_rc=0 after releasing all refs, got %d", r.ExternalRC())
	}
}

func TestRegionTetherBlocksDeath(t *testing.T) {
	r := Create()

	r.TetherStart()
	r.Exit()

	if r.Destroyable() {
		t.Fatal("region should not be destroyable while tethered")
	}

	r.TetherEnd()

	if !r.Destroyable() {
		t.Fatal("region should become destroyable once the tether ends")
	}
}

func TestRegionConcurrentRetainRelease(t *testing.T) {
	r := Create()

	const n = 200

	var wg sync.WaitGroup

	refs := make(chan Ref, n)

	for i := 0; i < n; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			refs <- NewRef(nil, r)
		}()
	}

	wg.Wait()
	close(refs)

	if r.ExternalRC() != n {
		t.Fatalf("expected external_rc=%d, got %d", n, r.ExternalRC())
	}

	for ref := range refs {
		ref.Release()
	}

	r.Exit()

	if !r.Destroyable() {
		t.Fatal("region should be destroyable once all concurrent refs are released")
	}
}

func TestRegionSplice(t *testing.T) {
	src := Create()
	dst := Create()

	p := src.Alloc(128)

	if !src.Terminal() {
		t.Fatal("region with no outstanding refs should be splice-terminal")
	}

	// §8 scenario 1's documented order: transmigrate (here, splice) before
	// exit.
	if !Splice(dst, src, p, p) {
		t.Fatal("splice failed")
	}

	src.Exit()

	if !src.Destroyable() {
		t.Fatal("source region should be destroyable after its chunk was spliced away")
	}

	if dst.Arena().ChunkCount() == 0 {
		t.Fatal("expected destination arena to receive the spliced chunk")
	}
}

func TestRegionIntegrityChecksumCapturedOnDeath(t *testing.T) {
	r := Create(WithIntegrityLog(true), WithInlineBufferSize(64), WithSmallObjectThresh(32))

	if _, ok := r.IntegrityChecksum(); ok {
		t.Fatal("expected no checksum before death")
	}

	ptr := r.Alloc(8)
	if ptr == nil {
		t.Fatal("allocation failed")
	}

	r.Exit()

	sum, ok := r.IntegrityChecksum()
	if !ok {
		t.Fatal("expected a checksum to be captured at death")
	}

	var zero [32]byte
	if sum == zero {
		t.Fatal("expected a non-zero digest for a region with live inline bytes")
	}
}

func TestRegionIntegrityChecksumDisabledByDefault(t *testing.T) {
	r := Create()
	r.Alloc(8)
	r.Exit()

	if _, ok := r.IntegrityChecksum(); ok {
		t.Fatal("expected no checksum captured without WithIntegrityLog")
	}
}
