//go:build linux

package numa

import (
	"golang.org/x/sys/unix"
)

// linuxAdvisor derives a placement hint from the calling thread's CPU
// affinity mask via sched_getaffinity: two advisory "nodes" when at least
// four CPUs are allowed (otherwise one), and the thread's node is its
// lowest allowed CPU index modulo that node count. This is a
// heuristic stand-in for real NUMA distance-matrix placement: it captures
// the common case (affinity already pins a thread to one package) without
// parsing /sys/devices/system/node topology.
type linuxAdvisor struct {
	nodeCount int
}

func platformAdvisor() Advisor {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return singleNodeAdvisor{}
	}

	count := set.Count()
	if count <= 0 {
		return singleNodeAdvisor{}
	}

	nodeCount := 1
	if count >= 4 {
		nodeCount = 2
	}

	return linuxAdvisor{nodeCount: nodeCount}
}

func (a linuxAdvisor) Place() Placement {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return Placement{Node: 0, NodeCount: 1}
	}

	for cpu := 0; cpu < len(set)*64; cpu++ {
		if set.IsSet(cpu) {
			return Placement{Node: cpu % a.nodeCount, NodeCount: a.nodeCount}
		}
	}

	return Placement{Node: 0, NodeCount: a.nodeCount}
}
