// Package metrics exposes a minimal Prometheus-text endpoint over the
// memory substrate's collectors, in the same style the runtime's own
// metrics exporter uses: named collector functions aggregated under
// "/metrics" with deterministic, sorted output.
package metrics

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"sort"
	"strings"
	"time"
)

// CollectorFunc returns a snapshot of metric name -> value. Names should
// be simple tokens using [a-zA-Z0-9_:].
type CollectorFunc func() map[string]float64

// Registry aggregates named collectors and renders them as Prometheus
// text exposition format.
type Registry struct {
	collectors map[string]CollectorFunc
}

// NewRegistry constructs an empty registry.
func NewRegistry() *Registry {
	return &Registry{collectors: make(map[string]CollectorFunc)}
}

// Register adds or replaces the collector under name.
func (r *Registry) Register(name string, fn CollectorFunc) {
	r.collectors[name] = fn
}

// Render produces the full text exposition for the current collector set.
func (r *Registry) Render() string {
	var b strings.Builder

	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}

	sort.Strings(names)

	for _, name := range names {
		fn := r.collectors[name]
		if fn == nil {
			continue
		}

		snapshot := fn()

		keys := make([]string, 0, len(snapshot))
		for k := range snapshot {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for _, k := range keys {
			fmt.Fprintf(&b, "%s %g\n", sanitizeToken(name+"_"+k), snapshot[k])
		}
	}

	return b.String()
}

func sanitizeToken(s string) string {
	var b strings.Builder

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == ':':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	return b.String()
}

// Serve starts a minimal HTTP server exposing r at "/metrics" on addr, and
// returns the bound address plus a shutdown function.
func Serve(addr string, r *Registry) (string, func(ctx context.Context) error, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, r.Render())
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 3 * time.Second}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, err
	}

	bound := ln.Addr().String()

	go func() {
		_ = srv.Serve(ln)
	}()

	stop := func(ctx context.Context) error {
		return srv.Shutdown(ctx)
	}

	return bound, stop, nil
}
