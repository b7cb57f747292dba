package cli

import (
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/diagram"
	"github.com/matzehuels/stridegraph/pkg/pipeline"
	"github.com/matzehuels/stridegraph/pkg/report"
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for stridegraph.

To load completions:

Bash:
  $ source <(stridegraph completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ stridegraph completion bash > /etc/bash_completion.d/stridegraph
  # macOS:
  $ stridegraph completion bash > $(brew --prefix)/etc/bash_completion.d/stridegraph

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ stridegraph completion zsh > "${fpath[1]}/_stridegraph"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ stridegraph completion fish | source

  # To load completions for each session, execute once:
  $ stridegraph completion fish > ~/.config/fish/completions/stridegraph.fish

PowerShell:
  PS> stridegraph completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> stridegraph completion powershell > stridegraph.ps1
  # and source this file from your PowerShell profile.

Flag values complete as well. Diagram titles are read from the inputs named
by --config, --threats and --diagrams (or their environment variables):

  $ stridegraph preview --title <TAB>
  $ stridegraph report --table <TAB>
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
			case "zsh":
				return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
			case "fish":
				return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
			}
			return nil
		},
	}

	return cmd
}

// completeTitles offers the titles of every diagram the inputs expand to,
// sub-scopes included. Inputs that fail to load offer nothing.
func completeTitles(flags *inputFlags) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		runner := pipeline.NewRunner(nil, log.New(io.Discard))
		in, err := runner.Load(flags.options())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var titles []string
		for _, d := range diagram.Expand(in.Diagrams, in.Config) {
			if strings.HasPrefix(d.Title, toComplete) {
				titles = append(titles, d.Title)
			}
		}
		return titles, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeTables offers the report table names as accepted by --table.
func completeTables(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	var names []string
	for _, name := range []string{report.EntryPoints, report.TrustBoundaries, report.Assets, report.Threats} {
		names = append(names, report.Slug(name))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}

// completePreviewFormats offers the formats accepted by the preview flags.
func completePreviewFormats(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	formats := make([]string, 0, len(pipeline.ValidPreviewFormats))
	for f := range pipeline.ValidPreviewFormats {
		formats = append(formats, f)
	}
	sort.Strings(formats)
	return formats, cobra.ShellCompDirectiveNoFileComp
}
