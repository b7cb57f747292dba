package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/errors"
	"github.com/matzehuels/stridegraph/pkg/pipeline"
)

// previewOpts holds the command-line flags for the preview command.
type previewOpts struct {
	inputFlags
	title  string
	format string
	output string
}

// previewCommand creates the preview command, which renders a single
// diagram to a file or stdout.
func (c *CLI) previewCommand() *cobra.Command {
	var opts previewOpts

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render one diagram through Graphviz",
		Example: `  stridegraph preview --title Overview -o overview.svg
  stridegraph preview --title Checkout --format dot | dot -Tpdf > checkout.pdf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPreview(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.title, "title", "", "diagram title (required)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", pipeline.DefaultPreviewFormat, "output format: svg, png or dot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (default stdout)")
	cmd.MarkFlagRequired("title")
	cmd.RegisterFlagCompletionFunc("title", completeTitles(&opts.inputFlags))
	cmd.RegisterFlagCompletionFunc("format", completePreviewFormats)

	return cmd
}

func (c *CLI) runPreview(cmd *cobra.Command, opts previewOpts) error {
	ctx := cmd.Context()
	if err := pipeline.ValidatePreviewFormat(opts.format); err != nil {
		return err
	}

	popts := opts.options()
	popts.Logger = c.Logger

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	result, err := runner.Execute(ctx, popts)
	if err != nil {
		return err
	}
	d, ok := result.Document.Diagram(opts.title)
	if !ok {
		return errors.New(errors.ErrCodeNotFound, "no diagram titled %q", opts.title)
	}

	data, cached, err := runner.Preview(ctx, d, opts.format)
	if err != nil {
		return err
	}
	c.Logger.Debug("rendered preview", "title", d.Title, "format", opts.format, "cached", cached)

	if opts.output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := writeFile(opts.output, data); err != nil {
		return err
	}
	printSuccess("Preview of %s", StyleHighlight.Render(d.Title))
	printFile(opts.output)
	return nil
}

func writeFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create dir: %w", err)
		}
	}
	return os.WriteFile(path, data, 0o644)
}
