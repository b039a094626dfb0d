package cli

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/internal/config"
	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/pipeline"
)

// buildOpts holds the command-line flags for the build command.
type buildOpts struct {
	noPrune   bool
	noCache   bool
	units     []string
	ecosystem string
	workers   int
	output    string
}

// apply overrides configuration values with explicitly set flags.
func (o *buildOpts) apply(cfg *config.Config) {
	if o.output != "" {
		cfg.OutputDir = o.output
	}
	if o.workers > 0 {
		cfg.Workers = o.workers
	}
	if o.noCache {
		cfg.NoCache = true
	}
}

// buildCommand creates the build command.
func (c *CLI) buildCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Package every unit into a pruned deployment archive",
		Long: `Build writes <output>/<unit>.zip for every configured unit.

Each archive holds the unit's own sources plus the shared paths of the
registry modules it transitively depends on. Units whose dependencies
cannot be determined are packaged with the full shared tree.`,
		Example: `  prunepack build
  prunepack build --unit api --unit worker
  prunepack build --ecosystem typescript --no-prune -o dist/`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBuild(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolVar(&opts.noPrune, "no-prune", false, "package the full shared tree for every unit")
	cmd.Flags().StringSliceVarP(&opts.units, "unit", "u", nil, "build only these units (repeatable)")
	cmd.Flags().StringVarP(&opts.ecosystem, "ecosystem", "e", "", "restrict to one ecosystem: go or typescript")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "concurrent units (default from config)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the extraction cache")

	return cmd
}

// runBuild builds the selected units of every selected ecosystem. It returns
// an error when any unit failed.
func (c *CLI) runBuild(ctx context.Context, opts buildOpts) error {
	cfg, err := c.projectConfig()
	if err != nil {
		return err
	}
	opts.apply(cfg)

	store := c.newCache(cfg)
	defer store.Close()

	targets, err := c.targets(ctx, cfg, opts.ecosystem, opts.units, store)
	if err != nil {
		return err
	}

	logger := loggerFromContext(ctx)
	c.stats.reset()
	prog := newProgress(logger, "Processed")
	runner := pipeline.NewRunner(archive.NewBuilder(cfg.OutputDir, logger), logger)
	runOpts := pipeline.Options{Workers: cfg.Workers, NoPrune: opts.noPrune}

	var errs []error
	for _, t := range targets {
		spin := c.spinner(ctx, fmt.Sprintf("Packaging %d %s unit(s)...", len(t.units), t.eco.Name()))
		spin.Start()
		summary := runner.Build(ctx, t.eco, t.units, runOpts)
		spin.Stop()

		printSummary(summary, true)
		if err := summary.Err(); err != nil {
			errs = append(errs, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	prog.done(c.stats.units.Load(), c.stats.failed.Load())
	c.printRunStats(cfg)
	return stderrors.Join(errs...)
}

// printRunStats prints the totals gathered by the observability hooks.
func (c *CLI) printRunStats(cfg *config.Config) {
	printNewline()
	units, failed := c.stats.units.Load(), c.stats.failed.Load()
	if failed == 0 {
		printSuccess("Packaged %s unit(s), %s", StyleNumber.Render(fmt.Sprint(units)), formatBytes(c.stats.bytes.Load()))
	} else {
		printError("%s of %d unit(s) failed", StyleError.Render(fmt.Sprint(failed)), units)
	}
	if n := c.stats.fallbacks.Load(); n > 0 {
		printWarning("%d unit(s) packaged with the full shared tree after extraction failed", n)
	}
	if hits, misses := c.stats.hits.Load(), c.stats.misses.Load(); hits+misses > 0 {
		printDetail("extraction cache: %d hit(s), %d miss(es)", hits, misses)
	}
	abs, err := filepath.Abs(cfg.OutputDir)
	if err != nil {
		abs = cfg.OutputDir
	}
	printFile(abs)
}
