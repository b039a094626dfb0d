// Package pipeline runs the per-unit packaging pipeline for prunepack.
//
// Each unit flows through four stages:
//
//  1. Extract: collect the unit's raw references to shared code
//  2. Resolve: map references to registry modules and close over depends_on
//  3. Materialize: expand modules into the shared paths to stage
//  4. Build: stage the unit and write a deterministic <unit>.zip
//
// Units run concurrently on a bounded worker pool. A unit-scoped failure
// (staging I/O, a dependency cycle) is recorded on that unit's [UnitResult]
// and never cancels its siblings. Any other error aborts the run. An extraction
// failure is not a unit failure: the unit is packaged with the full shared
// tree and the fallback is reported.
//
// # Usage
//
//	runner := pipeline.NewRunner(archive.NewBuilder(outDir, logger), logger)
//	summary := runner.Build(ctx, eco, units, pipeline.Options{Workers: 8})
//	if err := summary.Err(); err != nil {
//	    return err
//	}
//
// [Runner.Analyze] runs the first three stages only.
package pipeline

import (
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/materialize"
	"github.com/matzehuels/prunepack/pkg/project"
	"github.com/matzehuels/prunepack/pkg/registry"
	"github.com/matzehuels/prunepack/pkg/resolve"
)

// DefaultWorkers is the default size of the unit worker pool.
const DefaultWorkers = 8

// Options control a pipeline run.
type Options struct {
	// Workers bounds concurrent units. Zero uses DefaultWorkers.
	Workers int
	// NoPrune packages every unit with the full shared tree.
	NoPrune bool
}

// Ecosystem bundles everything the pipeline needs for one ecosystem. The
// registry and resolver are shared read-only by all unit tasks.
type Ecosystem struct {
	Descriptor *project.Descriptor
	Registry   *registry.Registry
	Extractor  extract.Extractor
	Resolver   *resolve.Resolver
}

// Name returns the ecosystem identifier.
func (e *Ecosystem) Name() string { return string(e.Descriptor.Ecosystem) }

// UnitResult is the outcome of one unit.
type UnitResult struct {
	Unit      project.Unit
	Modules   []string
	Paths     materialize.PathSet
	FullTree  bool
	Reason    string // why FullTree is set
	Unmatched []string
	Artifact  *archive.Artifact // nil for analyze runs and failures
	Duration  time.Duration
	Err       error
}

// Failed reports whether the unit failed.
func (r *UnitResult) Failed() bool { return r.Err != nil }

// Summary holds the results of a run in unit order.
type Summary struct {
	Ecosystem string
	Results   []*UnitResult
	Duration  time.Duration
	// Abort is the run-scoped error that cancelled the run, if any.
	Abort error
}

// Failed returns the failed unit results.
func (s *Summary) Failed() []*UnitResult {
	var out []*UnitResult
	for _, r := range s.Results {
		if r.Failed() {
			out = append(out, r)
		}
	}
	return out
}

// Err returns the abort error, an error naming the failed units, or nil
// when all succeeded.
func (s *Summary) Err() error {
	if s.Abort != nil {
		return fmt.Errorf("%s run aborted: %w", s.Ecosystem, s.Abort)
	}
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, r := range failed {
		names[i] = r.Unit.Name
	}
	return fmt.Errorf("%d of %d %s unit(s) failed: %v", len(failed), len(s.Results), s.Ecosystem, names)
}

// ModuleUsage counts how many successful units include each module.
func (s *Summary) ModuleUsage() map[string]int {
	usage := make(map[string]int)
	for _, r := range s.Results {
		if r.Failed() {
			continue
		}
		for _, id := range r.Modules {
			usage[id]++
		}
	}
	return usage
}

// UsageRanking returns module IDs by descending usage, ties broken by ID.
func (s *Summary) UsageRanking() []string {
	usage := s.ModuleUsage()
	ids := slices.Sorted(maps.Keys(usage))
	slices.SortStableFunc(ids, func(a, b string) int { return usage[b] - usage[a] })
	return ids
}
