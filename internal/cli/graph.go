package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/pkg/errors"
	"github.com/matzehuels/prunepack/pkg/render"
)

// graphOpts holds the command-line flags for the graph command.
type graphOpts struct {
	ecosystem string
	unit      string
	format    string
	output    string
	detailed  bool
}

// graphCommand creates the graph command.
func (c *CLI) graphCommand() *cobra.Command {
	opts := graphOpts{format: render.FormatDOT}

	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Render the registry dependency graph",
		Long: `Graph renders the module registry as a Graphviz diagram. With --unit the
modules resolved for that unit are highlighted.`,
		Example: `  prunepack graph -e typescript -o modules.dot
  prunepack graph -e typescript --unit ingest --format svg -o ingest.svg`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch opts.format {
			case render.FormatDOT, render.FormatSVG:
			default:
				return errors.New(errors.ErrCodeInvalidInput, "unknown format %q (want dot or svg)", opts.format)
			}
			return c.runGraph(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ecosystem, "ecosystem", "e", "", "ecosystem to render (default: first configured)")
	cmd.Flags().StringVarP(&opts.unit, "unit", "u", "", "highlight the modules resolved for this unit")
	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format: dot or svg")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().BoolVar(&opts.detailed, "detailed", false, "list each module's paths in its node")

	return cmd
}

func (c *CLI) runGraph(ctx context.Context, stdout io.Writer, opts graphOpts) error {
	cfg, err := c.projectConfig()
	if err != nil {
		return err
	}
	ecos, err := ecosystems(cfg, opts.ecosystem)
	if err != nil {
		return err
	}
	eco := ecos[0]
	_, reg, err := openRegistry(cfg, eco)
	if err != nil {
		return err
	}

	ropts := render.Options{
		Title:    fmt.Sprintf("%s modules", eco),
		Detailed: opts.detailed,
	}
	if opts.unit != "" {
		summaries, err := c.analyze(ctx, string(eco), []string{opts.unit}, false)
		if err != nil {
			return err
		}
		r := summaries[0].Results[0]
		if r.Failed() {
			return r.Err
		}
		if r.FullTree {
			printWarning("%s resolves to the full shared tree (%s)", opts.unit, r.Reason)
		}
		ropts.Title = fmt.Sprintf("%s modules used by %s", eco, opts.unit)
		ropts.Highlight = r.Modules
	}

	data, err := render.Render(ctx, reg.Graph(), opts.format, ropts)
	if err != nil {
		return err
	}

	if opts.output == "" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(opts.output, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", opts.output, err)
	}
	printSuccess("Rendered %d module(s)", reg.Len())
	printFile(opts.output)
	return nil
}
