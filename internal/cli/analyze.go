package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/pipeline"
)

// analyzeOpts holds the command-line flags for the analyze command.
type analyzeOpts struct {
	ecosystem string
	json      bool
	noCache   bool
}

// unitReport is the JSON shape of one analyzed unit.
type unitReport struct {
	Unit      string   `json:"unit"`
	Modules   []string `json:"modules"`
	Paths     []string `json:"paths"`
	FullTree  bool     `json:"full_tree"`
	Reason    string   `json:"reason,omitempty"`
	Unmatched []string `json:"unmatched,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// usageEntry counts the units that include a module.
type usageEntry struct {
	Module string `json:"module"`
	Units  int    `json:"units"`
}

// ecosystemReport is the JSON shape of one analyzed ecosystem.
type ecosystemReport struct {
	Ecosystem string       `json:"ecosystem"`
	Units     []unitReport `json:"units"`
	Usage     []usageEntry `json:"usage"`
}

func newEcosystemReport(s *pipeline.Summary) ecosystemReport {
	rep := ecosystemReport{Ecosystem: s.Ecosystem, Units: make([]unitReport, 0, len(s.Results))}
	for _, r := range s.Results {
		u := unitReport{
			Unit:      r.Unit.Name,
			Modules:   r.Modules,
			Paths:     r.Paths.Paths(),
			FullTree:  r.FullTree,
			Reason:    r.Reason,
			Unmatched: r.Unmatched,
		}
		if u.Modules == nil {
			u.Modules = []string{}
		}
		if u.Paths == nil {
			u.Paths = []string{}
		}
		if r.Err != nil {
			u.Error = errors.UserMessage(r.Err)
		}
		rep.Units = append(rep.Units, u)
	}
	usage := s.ModuleUsage()
	for _, id := range s.UsageRanking() {
		rep.Usage = append(rep.Usage, usageEntry{Module: id, Units: usage[id]})
	}
	if rep.Usage == nil {
		rep.Usage = []usageEntry{}
	}
	return rep
}

// analyzeCommand creates the analyze command.
func (c *CLI) analyzeCommand() *cobra.Command {
	var opts analyzeOpts

	cmd := &cobra.Command{
		Use:   "analyze [UNIT...]",
		Short: "Show the modules and paths each unit would package",
		Long: `Analyze runs extraction, resolution and path materialization without
writing archives. It prints each unit's modules and paths, then ranks the
registry modules by how many units include them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runAnalyze(cmd.Context(), cmd.OutOrStdout(), args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ecosystem, "ecosystem", "e", "", "restrict to one ecosystem: go or typescript")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print a JSON report")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "disable the extraction cache")

	return cmd
}

// analyze runs the analysis and returns one summary per ecosystem.
func (c *CLI) analyze(ctx context.Context, ecosystem string, units []string, noCache bool) ([]*pipeline.Summary, error) {
	cfg, err := c.projectConfig()
	if err != nil {
		return nil, err
	}
	if noCache {
		cfg.NoCache = true
	}
	store := c.newCache(cfg)
	defer store.Close()

	targets, err := c.targets(ctx, cfg, ecosystem, units, store)
	if err != nil {
		return nil, err
	}

	runner := pipeline.NewRunner(nil, loggerFromContext(ctx))
	summaries := make([]*pipeline.Summary, 0, len(targets))
	for _, t := range targets {
		s := runner.Analyze(ctx, t.eco, t.units, pipeline.Options{Workers: cfg.Workers})
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if s.Abort != nil {
			return nil, s.Err()
		}
		summaries = append(summaries, s)
	}
	return summaries, nil
}

func (c *CLI) runAnalyze(ctx context.Context, w io.Writer, units []string, opts analyzeOpts) error {
	spin := c.spinner(ctx, "Analyzing units...")
	spin.Start()
	summaries, err := c.analyze(ctx, opts.ecosystem, units, opts.noCache)
	spin.Stop()
	if err != nil {
		return err
	}

	if opts.json {
		reports := make([]ecosystemReport, len(summaries))
		for i, s := range summaries {
			reports[i] = newEcosystemReport(s)
		}
		return writeJSON(w, reports)
	}

	for _, s := range summaries {
		printSummary(s, false)
		for _, r := range s.Results {
			if r.Failed() || r.FullTree {
				continue
			}
			printInfo("%s", StyleHighlight.Render(r.Unit.Name))
			printKeyValue("  modules", strings.Join(r.Modules, ", "))
			printKeyValue("  paths", strings.Join(r.Paths.Paths(), ", "))
			if len(r.Unmatched) > 0 {
				printWarning("  unmatched: %s", strings.Join(r.Unmatched, ", "))
			}
		}
		printUsage(s)
	}
	return nil
}

// printUsage prints modules ranked by the number of units including them.
func printUsage(s *pipeline.Summary) {
	ranking := s.UsageRanking()
	if len(ranking) == 0 {
		return
	}
	usage := s.ModuleUsage()
	printNewline()
	fmt.Println(StyleTitle.Render("Module usage"))
	for _, id := range ranking {
		printKeyValue(id, fmt.Sprintf("%d unit(s)", usage[id]))
	}
}
