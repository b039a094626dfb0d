package cli

import (
	"context"
	"sync/atomic"

	"github.com/matzehuels/prunepack/pkg/observability"
)

// runStats counts pipeline and cache events for the end-of-run summary.
type runStats struct {
	units     atomic.Int64
	failed    atomic.Int64
	fallbacks atomic.Int64
	hits      atomic.Int64
	misses    atomic.Int64
	bytes     atomic.Int64
}

var (
	_ observability.PipelineHooks = (*runStats)(nil)
	_ observability.CacheHooks    = (*runStats)(nil)
)

func (s *runStats) OnUnitStart(context.Context, string, string) {}

func (s *runStats) OnUnitComplete(_ context.Context, _, _ string, stats observability.UnitStats, err error) {
	s.units.Add(1)
	if err != nil {
		s.failed.Add(1)
	}
	s.bytes.Add(stats.Bytes)
}

func (s *runStats) OnFallback(context.Context, string, string, error) { s.fallbacks.Add(1) }

func (s *runStats) OnCacheHit(context.Context, string)  { s.hits.Add(1) }
func (s *runStats) OnCacheMiss(context.Context, string) { s.misses.Add(1) }

func (s *runStats) reset() {
	s.units.Store(0)
	s.failed.Store(0)
	s.fallbacks.Store(0)
	s.hits.Store(0)
	s.misses.Store(0)
	s.bytes.Store(0)
}
