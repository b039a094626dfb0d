package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/extract"
	"github.com/matzehuels/prunepack/pkg/materialize"
	"github.com/matzehuels/prunepack/pkg/observability"
	"github.com/matzehuels/prunepack/pkg/project"
	"github.com/matzehuels/prunepack/pkg/resolve"
)

// Runner executes the pipeline over a set of units.
//
// The Runner holds no per-run state, so one Runner can serve several
// ecosystems or runs, including concurrently.
type Runner struct {
	Builder *archive.Builder
	Logger  *log.Logger
}

// NewRunner creates a runner. The builder may be nil for analyze-only use.
func NewRunner(builder *archive.Builder, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Runner{Builder: builder, Logger: logger}
}

// Build runs all four stages for every unit. A unit error that is not
// unit-scoped cancels the remaining units and is recorded as [Summary.Abort].
func (r *Runner) Build(ctx context.Context, eco *Ecosystem, units []project.Unit, opts Options) *Summary {
	return r.run(ctx, eco, units, opts, true)
}

// Analyze extracts, resolves and materializes every unit without packaging.
func (r *Runner) Analyze(ctx context.Context, eco *Ecosystem, units []project.Unit, opts Options) *Summary {
	return r.run(ctx, eco, units, opts, false)
}

func (r *Runner) run(ctx context.Context, eco *Ecosystem, units []project.Unit, opts Options, pack bool) *Summary {
	start := time.Now()
	summary := &Summary{Ecosystem: eco.Name(), Results: make([]*UnitResult, len(units))}

	workers := opts.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}
	workers = min(workers, max(len(units), 1))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, u := range units {
		g.Go(func() error {
			res := r.unit(gctx, eco, u, opts, pack)
			summary.Results[i] = res
			if res.Err == nil || gctx.Err() != nil || errors.IsUnitScoped(res.Err) {
				return nil
			}
			r.Logger.Error("aborting run", "ecosystem", eco.Name(), "unit", u.Name, "error", res.Err)
			return res.Err
		})
	}
	summary.Abort = g.Wait()

	summary.Duration = time.Since(start)
	return summary
}

// Unit runs the pipeline for a single unit.
func (r *Runner) Unit(ctx context.Context, eco *Ecosystem, u project.Unit, opts Options) *UnitResult {
	return r.unit(ctx, eco, u, opts, true)
}

func (r *Runner) unit(ctx context.Context, eco *Ecosystem, u project.Unit, opts Options, pack bool) *UnitResult {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnUnitStart(ctx, eco.Name(), u.Name)

	res := &UnitResult{Unit: u}
	logger := r.Logger.With("ecosystem", eco.Name(), "unit", u.Name)

	finish := func(err error) *UnitResult {
		res.Err = err
		res.Duration = time.Since(start)
		stats := observability.UnitStats{
			Modules:  len(res.Modules),
			Paths:    len(res.Paths),
			FullTree: res.FullTree,
			Duration: res.Duration,
		}
		if res.Artifact != nil {
			stats.Entries = res.Artifact.Entries
			stats.Bytes = res.Artifact.Size
		}
		hooks.OnUnitComplete(ctx, eco.Name(), u.Name, stats, err)
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}

	resolved, err := r.resolve(ctx, eco, u, opts, logger)
	if err != nil {
		logger.Error("resolution failed", "error", err)
		return finish(err)
	}
	res.Modules = resolved.Modules
	res.FullTree = resolved.FullTree
	res.Reason = resolved.Reason
	res.Unmatched = resolved.Unmatched

	if !res.FullTree {
		res.Paths = materialize.Materialize(res.Modules, eco.Registry)
	}
	logger.Debug("resolved unit", "modules", len(res.Modules), "paths", len(res.Paths), "full_tree", res.FullTree)

	if !pack {
		return finish(nil)
	}

	spec, err := eco.Descriptor.Spec(u, res.Paths, res.FullTree)
	if err != nil {
		logger.Error("cannot assemble archive spec", "error", err)
		return finish(err)
	}
	artifact, err := r.Builder.Build(ctx, spec)
	if err != nil {
		logger.Error("packaging failed", "error", err)
		return finish(err)
	}
	res.Artifact = artifact
	logger.Info("packaged unit",
		"modules", len(res.Modules),
		"paths", len(res.Paths),
		"entries", artifact.Entries,
		"size", artifact.Size,
		"full_tree", res.FullTree)
	return finish(nil)
}

// resolve runs extraction and resolution. An extraction error becomes the
// full-tree fail-safe rather than a unit failure.
func (r *Runner) resolve(ctx context.Context, eco *Ecosystem, u project.Unit, opts Options, logger *log.Logger) (*resolve.Result, error) {
	if opts.NoPrune {
		return eco.Resolver.ResolveAll(), nil
	}

	refs, err := eco.Extractor.Extract(ctx, u)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !errors.Is(err, errors.ErrCodeExtraction) {
			err = errors.Wrap(errors.ErrCodeExtraction, err, "extract %s", u.Name)
		}
		logger.Warn("extraction failed, packaging full shared tree", "error", err)
		observability.Pipeline().OnFallback(ctx, eco.Name(), u.Name, err)
		refs = extract.Failure(err)
	} else if refs.Empty() {
		logger.Debug("unit references no shared code")
	}
	return eco.Resolver.Resolve(refs)
}
