package cli

import (
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/prunepack/pkg/errors"
)

// inspectCommand creates the interactive unit browser.
func (c *CLI) inspectCommand() *cobra.Command {
	var ecosystem string

	cmd := &cobra.Command{
		Use:   "inspect [UNIT...]",
		Short: "Browse units and their resolved modules interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !isTerminal(os.Stdin) || !isTerminal(os.Stdout) {
				printNextStep("inspect needs a terminal; for scripts use", "prunepack analyze --json")
				return errors.New(errors.ErrCodeInvalidInput, "inspect requires an interactive terminal")
			}

			ctx := cmd.Context()
			spin := c.spinner(ctx, "Analyzing units...")
			spin.Start()
			summaries, err := c.analyze(ctx, ecosystem, args, false)
			spin.Stop()
			if err != nil {
				return err
			}

			p := tea.NewProgram(NewUnitListModel(summaries), tea.WithContext(ctx))
			_, err = p.Run()
			return err
		},
	}

	cmd.Flags().StringVarP(&ecosystem, "ecosystem", "e", "", "restrict to one ecosystem: go or typescript")

	return cmd
}
