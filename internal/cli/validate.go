package cli

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/internal/config"
	"github.com/matzehuels/prunepack/pkg/project"
	"github.com/matzehuels/prunepack/pkg/validate"
)

// validateCommand creates the validate command.
func (c *CLI) validateCommand() *cobra.Command {
	var (
		ecosystem string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check the module registry against the shared tree",
		Long: `Validate reports registry paths that do not exist, dependencies and
import pattern targets naming undefined modules, dependency cycles, and
package exports without a barrel module. Shared directories that no module
covers are reported as warnings.

The command exits non-zero when any error is found.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.projectConfig()
			if err != nil {
				return err
			}
			ecos, err := ecosystems(cfg, ecosystem)
			if err != nil {
				return err
			}

			reports := make(map[project.Ecosystem]*validate.Report, len(ecos))
			var errs []error
			for _, eco := range ecos {
				d, reg, err := openRegistry(cfg, eco)
				if err != nil {
					return err
				}
				rep := validate.Validate(reg, validateOptions(cfg, eco, d))
				reports[eco] = rep
				if err := rep.Err(); err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", eco, err))
				}
			}

			if asJSON {
				if err := writeJSON(cmd.OutOrStdout(), reports); err != nil {
					return err
				}
			} else {
				for _, eco := range ecos {
					printReport(eco, reports[eco])
				}
			}
			return stderrors.Join(errs...)
		},
	}

	cmd.Flags().StringVarP(&ecosystem, "ecosystem", "e", "", "restrict to one ecosystem: go or typescript")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print findings as JSON")

	return cmd
}

func validateOptions(cfg *config.Config, eco project.Ecosystem, d *project.Descriptor) validate.Options {
	opts := validate.Options{SharedDir: d.SharedDir}
	if eco == project.TypeScript {
		opts.SourceDir = cfg.TypeScript.SourceDir
		opts.LeafParents = cfg.TypeScript.LeafParents
	}
	return opts
}

func printReport(eco project.Ecosystem, rep *validate.Report) {
	printNewline()
	fmt.Println(StyleTitle.Render(fmt.Sprintf("%s registry", eco)))
	for _, f := range rep.Errors {
		printError("%s %s", StyleDim.Render("["+string(f.Kind)+"]"), f.Message)
	}
	for _, f := range rep.Warnings {
		printWarning("[%s] %s", f.Kind, f.Message)
	}
	if rep.OK() {
		printSuccess("No errors, %d warning(s)", len(rep.Warnings))
		return
	}
	printDetail("%d error(s), %d warning(s)", len(rep.Errors), len(rep.Warnings))
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
