package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/report"
)

// reportOpts holds the command-line flags for the report command.
type reportOpts struct {
	inputFlags
	title string
	table string
}

// reportCommand creates the report command, which prints the report
// tables of every diagram to the terminal.
func (c *CLI) reportCommand() *cobra.Command {
	var opts reportOpts

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print entry point, boundary, asset and threat tables",
		Example: `  stridegraph report -c config.yaml -t threats.yaml -d diagrams/
  stridegraph report --title Checkout --table threats`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReport(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.title, "title", "", "only print the diagram with this title")
	cmd.Flags().StringVar(&opts.table, "table", "", "only print one table: entry-points, trust-boundaries, assets or threats")
	cmd.Flags().MarkHidden("no-cache")
	cmd.RegisterFlagCompletionFunc("title", completeTitles(&opts.inputFlags))
	cmd.RegisterFlagCompletionFunc("table", completeTables)

	return cmd
}

func (c *CLI) runReport(cmd *cobra.Command, opts reportOpts) error {
	popts := opts.options()
	popts.Reports = true
	popts.Logger = c.Logger

	runner, err := c.newRunner(true)
	if err != nil {
		return err
	}
	defer runner.Close()

	result, err := runner.Execute(cmd.Context(), popts)
	if err != nil {
		return err
	}

	printed := 0
	for _, rep := range result.Reports {
		if opts.title != "" && rep.Title != opts.title {
			continue
		}
		printed++
		fmt.Println(StyleTitle.Render(rep.Title))
		printNewline()
		for _, t := range rep.Tables {
			if opts.table != "" && report.Slug(t.Name) != report.Slug(opts.table) {
				continue
			}
			printTable(t)
			printNewline()
		}
	}
	if printed == 0 && opts.title != "" {
		return errors.New(errors.ErrCodeNotFound, "no diagram titled %q", opts.title)
	}
	return nil
}
