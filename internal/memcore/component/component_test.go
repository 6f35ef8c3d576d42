package component

import (
	"testing"

	"github.com/omnilisp-lang/omnilisp/internal/memcore/symobj"
)

func TestCycleDismantle(t *testing.T) {
	pool := NewPool()

	c := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	b := symobj.New(symobj.TagPair)

	AddMember(c, a)
	AddMember(c, b)

	a.AddEdge(b)
	b.AddEdge(a)

	AcquireHandle(c)
	pool.ReleaseHandle(c)

	if n := pool.ProcessDismantle(0); n != 1 {
		t.Fatalf("expected 1 component dismantled, got %d", n)
	}

	if !a.Freed() || !b.Freed() {
		t.Fatal("expected both cyclic members freed")
	}
}

func TestDynamicCycleMerge(t *testing.T) {
	pool := NewPool()

	c1 := pool.NewComponent()
	c2 := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	b := symobj.New(symobj.TagPair)

	AddMember(c1, a)
	AddMember(c2, b)

	AcquireHandle(c1)
	AcquireHandle(c2)

	a.AddEdge(b)
	b.AddEdge(a)

	merged := Union(c1, c2)

	if Find(c1) != Find(c2) {
		t.Fatal("expected c1 and c2 to share a root after union")
	}

	if len(merged.Members()) != 2 {
		t.Fatalf("expected merged island to have 2 members, got %d", len(merged.Members()))
	}

	if merged.HandleCount() != 2 {
		t.Fatalf("expected summed handle_count=2, got %d", merged.HandleCount())
	}

	pool.ReleaseHandle(c1)
	pool.ReleaseHandle(c2)

	if n := pool.ProcessDismantle(0); n != 1 {
		t.Fatalf("expected 1 merged component dismantled, got %d", n)
	}

	if !a.Freed() || !b.Freed() {
		t.Fatal("expected both members of the merged island freed")
	}
}

func TestHandleAndTetherCounterMonotonicity(t *testing.T) {
	pool := NewPool()
	c := pool.NewComponent()

	AcquireHandle(c)
	AcquireHandle(c)

	if c.HandleCount() != 2 {
		t.Fatalf("expected handle_count=2, got %d", c.HandleCount())
	}

	tok := pool.TetherBegin(c)
	if c.TetherCount() != 1 {
		t.Fatalf("expected tether_count=1, got %d", c.TetherCount())
	}

	pool.ReleaseHandle(c)
	pool.ReleaseHandle(c)

	if pool.QueueDepth() != 0 {
		t.Fatal("component should not be queued for dismantle while a tether is held")
	}

	pool.TetherEnd(tok)

	if pool.QueueDepth() != 1 {
		t.Fatal("component should be queued for dismantle once state reaches zero")
	}
}

func TestTetherKeepsIslandAlive(t *testing.T) {
	pool := NewPool()
	c := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	AddMember(c, a)

	AcquireHandle(c)
	tok := pool.TetherBegin(c)
	pool.ReleaseHandle(c)

	if pool.ProcessDismantle(0) != 0 {
		t.Fatal("component should survive dismantle while tethered")
	}

	if a.Freed() {
		t.Fatal("member should not be freed while the island is tethered")
	}

	pool.TetherEnd(tok)

	if pool.ProcessDismantle(0) != 1 {
		t.Fatal("component should dismantle once the tether is released")
	}
}

func TestCleanupDrainsAlreadyQueuedComponents(t *testing.T) {
	pool := NewPool()
	c := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	AddMember(c, a)

	AcquireHandle(c)
	pool.ReleaseHandle(c)

	if n := pool.Cleanup(); n != 1 {
		t.Fatalf("expected Cleanup to drain the 1 already-queued component, got %d", n)
	}

	if !a.Freed() {
		t.Fatal("expected the queued component's member freed by Cleanup")
	}
}

func TestCleanupForciblyDismantlesLiveComponents(t *testing.T) {
	pool := NewPool()
	c := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	AddMember(c, a)

	AcquireHandle(c)
	tok := pool.TetherBegin(c)

	if pool.ProcessDismantle(0) != 0 {
		t.Fatal("component should not drain normally while a handle and tether are outstanding")
	}

	if n := pool.Cleanup(c); n != 1 {
		t.Fatalf("expected Cleanup to forcibly dismantle the live component, got %d", n)
	}

	if !a.Freed() {
		t.Fatal("expected the live component's member freed once Cleanup force-dismantled it")
	}

	_ = tok // the tether token is moot once Cleanup has torn the island down
}

func TestCleanupSkipsAlreadyDismantledComponents(t *testing.T) {
	pool := NewPool()
	c := pool.NewComponent()

	AcquireHandle(c)
	pool.ReleaseHandle(c)
	pool.ProcessDismantle(0)

	if n := pool.Cleanup(c); n != 0 {
		t.Fatalf("expected Cleanup to skip an already-dismantled component, got %d", n)
	}
}

func TestInlineToOverflowEdgeMigration(t *testing.T) {
	o := symobj.New(symobj.TagArray)

	targets := make([]*symobj.SymObj, 5)
	for i := range targets {
		targets[i] = symobj.New(symobj.TagInt)
		o.AddEdge(targets[i])
	}

	edges := o.Edges()
	if len(edges) != 5 {
		t.Fatalf("expected 5 edges after overflow migration, got %d", len(edges))
	}

	for i, target := range targets {
		if target.InternalRC() != 1 {
			t.Errorf("target %d: expected internal_rc=1, got %d", i, target.InternalRC())
		}
	}
}
