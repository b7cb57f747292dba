package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/pipeline"
)

// generateOpts holds the command-line flags for the generate command.
type generateOpts struct {
	inputFlags
	output        string
	reports       bool
	preview       bool
	previewFormat string
}

// generateCommand creates the generate command, which writes the Threat
// Dragon document and, on request, report workbooks and previews.
func (c *CLI) generateCommand() *cobra.Command {
	var opts generateOpts

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a Threat Dragon document from diagrams",
		Long: `Generate builds one laid-out diagram per input diagram and per configured
sub-scope, then writes <output>/<basename>.json.

With --reports every diagram's entry points, trust boundaries, assets and
threats are written to <output>/reports/<title>.xlsx, one sheet per table,
and as CSV below <output>/reports/<title>/. With --preview every diagram is
rendered through Graphviz into <output>/preview/.`,
		Example: `  stridegraph generate -c config.yaml -t threats.yaml -d diagrams/ -o out/shop
  stridegraph generate --reports --preview --preview-format png -o out/shop`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runGenerate(cmd, opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory (default $"+pipeline.EnvOutputPath+")")
	cmd.Flags().BoolVar(&opts.reports, "reports", false, "write report workbooks (xlsx and CSV)")
	cmd.Flags().BoolVar(&opts.preview, "preview", false, "render a preview of every diagram")
	cmd.Flags().StringVar(&opts.previewFormat, "preview-format", pipeline.DefaultPreviewFormat, "preview format: svg, png or dot")
	cmd.RegisterFlagCompletionFunc("preview-format", completePreviewFormats)

	return cmd
}

func (c *CLI) runGenerate(cmd *cobra.Command, opts generateOpts) error {
	ctx := cmd.Context()

	popts := opts.options()
	popts.OutputPath = orEnv(opts.output, pipeline.EnvOutputPath)
	popts.Reports = opts.reports
	popts.Preview = opts.preview
	popts.PreviewFormat = strings.ToLower(opts.previewFormat)
	popts.Logger = c.Logger

	if err := popts.ValidateForLoad(); err != nil {
		return err
	}
	if err := popts.ValidateForWrite(); err != nil {
		return err
	}

	runner, err := c.newRunner(opts.noCache)
	if err != nil {
		return fmt.Errorf("open cache: %w", err)
	}
	defer runner.Close()

	prog := newProgress(c.Logger)

	var spin *Spinner
	if popts.Preview {
		spin = newSpinnerWithContext(ctx, "Rendering previews...")
		spin.Start()
	}
	result, err := runner.Execute(ctx, popts)
	if spin != nil {
		spin.Stop()
	}
	if err != nil {
		return err
	}

	paths, err := runner.WriteOutputs(result, popts)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Generated %s", result.Stats))

	printSuccess("Threat model %s", StyleHighlight.Render(result.Document.Summary.Title))
	printStats(result.Stats, result.CacheInfo)
	if result.Stats.Threats == 0 {
		printWarning("No threats resolved; check node threat titles against the catalog")
	}
	printKeyValue("Output", popts.OutputPath)
	for _, p := range paths {
		printFile(p)
	}
	if !popts.Reports {
		printNewline()
		printNextStep("Inspect report tables", appName+" report")
	}
	return nil
}
