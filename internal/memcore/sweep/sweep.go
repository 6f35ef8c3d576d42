// Package sweep runs process_dismantle across a fleet of thread-local
// component pools concurrently, the maintenance-time counterpart to the
// hot-path dismantling each pool already does for itself (§4.6).
package sweep

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/omnilisp-lang/omnilisp/internal/diagnostics"
	"github.com/omnilisp-lang/omnilisp/internal/memcore/component"
)

// Config tunes a Sweeper's concurrency and per-pool batch size.
type Config struct {
	MaxConcurrency int
	BatchSize      int
}

type Option func(*Config)

func defaultConfig() *Config {
	return &Config{MaxConcurrency: 8, BatchSize: 0}
}

func WithMaxConcurrency(n int) Option { return func(c *Config) { c.MaxConcurrency = n } }
func WithBatchSize(n int) Option      { return func(c *Config) { c.BatchSize = n } }

// Sweeper drains the dismantle queue of a registered set of pools, one
// goroutine per pool bounded by MaxConcurrency, fanning out with an
// errgroup the way the package manager's resolver parallelizes independent
// per-dependency work.
type Sweeper struct {
	cfg   *Config
	pools []*component.Pool
	sink  *diagnostics.Sink
}

// New constructs a Sweeper over the given pools.
func New(pools []*component.Pool, sink *diagnostics.Sink, opts ...Option) *Sweeper {
	cfg := defaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	return &Sweeper{cfg: cfg, pools: pools, sink: sink}
}

// Result reports how many components were dismantled per pool, indexed the
// same as the Sweeper's pool slice.
type Result struct {
	Dismantled []int
	Total      int
}

// Run drains every registered pool's dismantle queue, respecting ctx
// cancellation between pools. A semaphore channel caps the number of pools
// processed at once; an error from any pool's drain cancels the rest via
// the errgroup's derived context.
func (s *Sweeper) Run(ctx context.Context) (Result, error) {
	g, gctx := errgroup.WithContext(ctx)

	limit := s.cfg.MaxConcurrency
	if limit <= 0 {
		limit = 1
	}

	sem := make(chan struct{}, limit)

	counts := make([]int, len(s.pools))

	for i, p := range s.pools {
		i, p := i, p

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			select {
			case sem <- struct{}{}:
			case <-gctx.Done():
				return gctx.Err()
			}
			defer func() { <-sem }()

			n := p.ProcessDismantle(s.cfg.BatchSize)
			counts[i] = n

			s.info("pool drained")

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	return Result{Dismantled: counts, Total: total}, nil
}

func (s *Sweeper) info(msg string) {
	if s.sink == nil {
		return
	}

	s.sink.Emit(diagnostics.New().Info().Component().Message(msg).Build())
}
