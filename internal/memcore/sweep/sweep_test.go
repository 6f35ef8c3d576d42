package sweep

import (
	"context"
	"testing"

	"github.com/omnilisp-lang/omnilisp/internal/diagnostics"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/symobj"
)

func cyclicPool(t *testing.T) *component.Pool {
	t.Helper()

	pool := component.NewPool()
	c := pool.NewComponent()

	a := symobj.New(symobj.TagPair)
	b := symobj.New(symobj.TagPair)
	component.AddMember(c, a)
	component.AddMember(c, b)

	a.AddEdge(b)
	b.AddEdge(a)

	component.AcquireHandle(c)
	pool.ReleaseHandle(c)

	return pool
}

func TestSweeperDrainsEveryPool(t *testing.T) {
	pools := []*component.Pool{cyclicPool(t), cyclicPool(t), cyclicPool(t)}

	s := New(pools, nil, WithMaxConcurrency(2))

	result, err := s.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Total != len(pools) {
		t.Fatalf("expected %d components dismantled, got %d", len(pools), result.Total)
	}

	for i, n := range result.Dismantled {
		if n != 1 {
			t.Errorf("pool %d: expected 1 dismantled component, got %d", i, n)
		}
	}
}

func TestSweeperRespectsContextCancellation(t *testing.T) {
	pools := []*component.Pool{cyclicPool(t)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(pools, nil, WithMaxConcurrency(1))

	if _, err := s.Run(ctx); err == nil {
		t.Fatal("expected a cancelled context to surface an error")
	}
}

func TestSweeperEmitsDiagnosticsWhenSinkProvided(t *testing.T) {
	sink := diagnostics.NewSink(8)
	pools := []*component.Pool{cyclicPool(t)}

	s := New(pools, sink, WithMaxConcurrency(1))

	if _, err := s.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.Events()) == 0 {
		t.Fatal("expected at least one diagnostic event from the sweep")
	}
}
