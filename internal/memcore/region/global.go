package region

import (
	"strconv"
	"sync"

	"golang.org/x/sync/singleflight"
)

// globalRegions maps a thread identity (threadID) to its lazily created
// global region (§5's "one per-thread global region handle"). A sync.Map
// fits the access pattern: reads vastly outnumber the one write each thread
// ever performs.
var globalRegions sync.Map // map[threadID]*Region

// globalSF collapses concurrent first-use calls for the same thread
// identity into a single Create, the same way the package manager's HTTP
// registry uses singleflight.Group to collapse duplicate concurrent
// fetches for the same key.
var globalSF singleflight.Group

// currentThreadID resolves the calling thread's identity. It is a package
// variable rather than a direct call to platformThreadID so tests can
// substitute a controlled thread-identity function to exercise the
// singleflight coalescing path deterministically.
var currentThreadID = platformThreadID

// GetOrCreateGlobalRegion implements get_or_create_global_region() (§9): it
// returns the calling OS thread's global region, creating one with opts on
// first use. Concurrent callers racing on the same thread identity observe
// exactly one Create call; all of them receive the same *Region.
//
// opts is only consulted on the call that actually creates the region;
// later callers on an already-initialized thread get the existing region
// regardless of what they pass.
func GetOrCreateGlobalRegion(opts ...Option) *Region {
	tid := currentThreadID()

	if v, ok := globalRegions.Load(tid); ok {
		return v.(*Region)
	}

	v, _, _ := globalSF.Do(strconv.FormatInt(int64(tid), 10), func() (any, error) {
		if v, ok := globalRegions.Load(tid); ok {
			return v, nil
		}

		r := Create(opts...)
		globalRegions.Store(tid, r)

		return r, nil
	})

	return v.(*Region)
}

// ReleaseGlobalRegion tears down and forgets the calling thread's global
// region, if one was ever created. Intended for the thread-teardown safe
// point alongside component_cleanup(); safe to call on a thread that never
// touched its global region.
func ReleaseGlobalRegion() {
	tid := currentThreadID()

	if v, ok := globalRegions.LoadAndDelete(tid); ok {
		v.(*Region).Exit()
	}
}
