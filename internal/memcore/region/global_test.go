package region

import (
	"sync"
	"testing"
)

func withThreadID(id int, fn func()) {
	prev := currentThreadID
	currentThreadID = func() int { return id }

	defer func() { currentThreadID = prev }()

	fn()
}

func TestGetOrCreateGlobalRegionIsStablePerThread(t *testing.T) {
	withThreadID(101, func() {
		defer ReleaseGlobalRegion()

		first := GetOrCreateGlobalRegion()
		second := GetOrCreateGlobalRegion()

		if first != second {
			t.Fatal("expected repeated calls on the same thread to return the same global region")
		}
	})
}

func TestGetOrCreateGlobalRegionIsolatesDistinctThreads(t *testing.T) {
	var a, b *Region

	withThreadID(201, func() {
		defer ReleaseGlobalRegion()
		a = GetOrCreateGlobalRegion()
	})

	withThreadID(202, func() {
		defer ReleaseGlobalRegion()
		b = GetOrCreateGlobalRegion()
	})

	if a == b {
		t.Fatal("expected distinct thread identities to get distinct global regions")
	}
}

func TestGetOrCreateGlobalRegionCoalescesConcurrentFirstUse(t *testing.T) {
	withThreadID(301, func() {
		defer ReleaseGlobalRegion()

		const n = 32

		results := make(chan *Region, n)

		var start sync.WaitGroup
		start.Add(1)

		var done sync.WaitGroup
		done.Add(n)

		for i := 0; i < n; i++ {
			go func() {
				defer done.Done()
				start.Wait()
				results <- GetOrCreateGlobalRegion()
			}()
		}

		start.Done()
		done.Wait()
		close(results)

		var first *Region
		for r := range results {
			if first == nil {
				first = r

				continue
			}

			if r != first {
				t.Fatal("expected every concurrent caller racing on the same thread identity to observe the same singleflight-coalesced region")
			}
		}
	})
}

func TestReleaseGlobalRegionAllowsRecreation(t *testing.T) {
	withThreadID(401, func() {
		first := GetOrCreateGlobalRegion()
		ReleaseGlobalRegion()

		if !first.Dead() {
			t.Fatal("expected ReleaseGlobalRegion to tear down the prior global region")
		}

		second := GetOrCreateGlobalRegion()
		defer ReleaseGlobalRegion()

		if second == first {
			t.Fatal("expected a fresh region after ReleaseGlobalRegion")
		}
	})
}
