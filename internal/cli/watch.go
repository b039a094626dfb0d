package cli

import (
	"context"
	stderrors "errors"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/internal/config"
	"github.com/matzehuels/prunepack/internal/watch"
	"github.com/matzehuels/prunepack/pkg/archive"
	"github.com/matzehuels/prunepack/pkg/pipeline"
)

// watchCommand creates the watch command.
func (c *CLI) watchCommand() *cobra.Command {
	var opts buildOpts

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Rebuild affected archives when sources change",
		Long: `Watch builds the selected units once, then watches the ecosystem roots.
A change inside a unit rebuilds that unit; a change in the shared tree or a
copied root file rebuilds every unit of the ecosystem.

The registry and the unit list are read at startup. Restart watch after
editing the registry or adding a unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runWatch(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringSliceVarP(&opts.units, "unit", "u", nil, "watch only these units (repeatable)")
	cmd.Flags().StringVarP(&opts.ecosystem, "ecosystem", "e", "", "restrict to one ecosystem: go or typescript")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default from config)")
	cmd.Flags().BoolVar(&opts.noPrune, "no-prune", false, "package the full shared tree for every unit")

	return cmd
}

func (c *CLI) runWatch(ctx context.Context, opts buildOpts) error {
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
	runner := pipeline.NewRunner(archive.NewBuilder(cfg.OutputDir, logger), logger)
	runOpts := pipeline.Options{Workers: cfg.Workers, NoPrune: opts.noPrune}
	for _, t := range targets {
		printSummary(runner.Build(ctx, t.eco, t.units, runOpts), true)
	}

	var roots []string
	for _, t := range targets {
		roots = append(roots, watch.Roots(t.eco.Descriptor)...)
	}
	slices.Sort(roots)
	roots = slices.Compact(roots)

	w, err := watch.New(watch.Config{
		Roots:  roots,
		Logger: logger,
		OnChange: func(ctx context.Context, changed []string) error {
			return c.rebuild(ctx, cfg, runner, runOpts, targets, changed)
		},
	})
	if err != nil {
		return err
	}

	printNewline()
	printInfo("Watching %d root(s) for changes. Press Ctrl+C to stop.", len(roots))
	for _, r := range roots {
		printDetail("%s", r)
	}
	return w.Run(ctx)
}

// rebuild packages the units affected by changed.
func (c *CLI) rebuild(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, opts pipeline.Options, targets []target, changed []string) error {
	for _, p := range changed {
		if registryFile(cfg, p) {
			printWarning("Registry %s changed; restart watch to reload it", filepath.Base(p))
		}
	}

	var errs []error
	for _, t := range targets {
		units := watch.Affected(t.eco.Descriptor, t.units, changed)
		if len(units) == 0 {
			continue
		}
		loggerFromContext(ctx).Info("rebuilding", "ecosystem", t.eco.Name(), "units", len(units), "changes", len(changed))
		summary := runner.Build(ctx, t.eco, units, opts)
		printSummary(summary, true)
		errs = append(errs, summary.Err())
	}
	return stderrors.Join(errs...)
}

func registryFile(cfg *config.Config, path string) bool {
	for _, reg := range []string{cfg.Go.Registry, cfg.TypeScript.Registry} {
		if reg != "" && filepath.Clean(reg) == filepath.Clean(path) {
			return true
		}
	}
	return false
}
