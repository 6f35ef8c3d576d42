package metrics

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
)

func TestRenderSortsCollectorsAndKeys(t *testing.T) {
	r := NewRegistry()
	r.Register("region", func() map[string]float64 {
		return map[string]float64{"bytes": 4096, "chunks": 1}
	})
	r.Register("arena", func() map[string]float64 {
		return map[string]float64{"allocs": 3}
	})

	got := r.Render()

	wantOrder := []string{"arena_allocs", "region_bytes", "region_chunks"}

	idx := 0

	for _, name := range wantOrder {
		pos := strings.Index(got[idx:], name)
		if pos < 0 {
			t.Fatalf("expected %q to appear in order in:\n%s", name, got)
		}

		idx += pos
	}
}

func TestSanitizeTokenReplacesInvalidCharacters(t *testing.T) {
	if got := sanitizeToken("region.bytes-free"); got != "region_bytes_free" {
		t.Fatalf("expected sanitized token, got %q", got)
	}
}

func TestServeExposesMetricsEndpoint(t *testing.T) {
	r := NewRegistry()
	r.Register("component", func() map[string]float64 {
		return map[string]float64{"queue_depth": 2}
	})

	addr, stop, err := Serve("127.0.0.1:0", r)
	if err != nil {
		t.Fatalf("Serve: %v", err)
	}
	defer stop(context.Background())

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "component_queue_depth 2") {
		t.Fatalf("expected component_queue_depth metric in body, got:\n%s", body)
	}
}
