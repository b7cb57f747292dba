package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stridegraph/pkg/buildinfo"
	"github.com/matzehuels/stridegraph/pkg/cache"
	"github.com/matzehuels/stridegraph/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "stridegraph"

	// envFile is read on startup when present; real environment variables win.
	envFile = ".env"
)

// LogInfo is the starting level; --verbose lowers it to debug.
const LogInfo = log.InfoLevel

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger  *log.Logger
	verbose bool
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stridegraph builds laid-out STRIDE threat model diagrams",
		Long: `Stridegraph turns a threat model configuration, a threat catalog and a set of
data-flow diagrams into a Threat Dragon document with placed processes, routed
flows and synthesized trust boundaries.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.verbose {
				c.SetLogLevel(log.DebugLevel)
			}
			loadEnv(c.Logger)
			return nil
		},
	}

	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "enable debug logging")
	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.generateCommand())
	root.AddCommand(c.reportCommand())
	root.AddCommand(c.previewCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// loadEnv reads .env from the working directory. A missing file is normal.
func loadEnv(logger *log.Logger) {
	if _, err := os.Stat(envFile); err != nil {
		return
	}
	if err := godotenv.Load(envFile); err != nil {
		logger.Warn("could not read env file", "path", envFile, "error", err)
		return
	}
	logger.Debug("loaded env file", "path", envFile)
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, c.Logger), nil
}

func newCache(noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	dir, err := cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/stridegraph/).
func cacheDir() (string, error) {
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// inputFlags are the path flags shared by generate, report and preview.
type inputFlags struct {
	config   string
	threats  string
	diagrams string
	noCache  bool
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.config, "config", "c", "", "threat model configuration file (default $"+pipeline.EnvConfigPath+")")
	cmd.Flags().StringVarP(&f.threats, "threats", "t", "", "threat catalog file (default $"+pipeline.EnvThreatPath+")")
	cmd.Flags().StringVarP(&f.diagrams, "diagrams", "d", "", "diagram directory or file (default $"+pipeline.EnvDiagramPath+")")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the preview cache")
}

// options builds pipeline options, falling back to the environment for
// paths not given as flags.
func (f *inputFlags) options() pipeline.Options {
	return pipeline.Options{
		ConfigPath:  orEnv(f.config, pipeline.EnvConfigPath),
		ThreatPath:  orEnv(f.threats, pipeline.EnvThreatPath),
		DiagramPath: orEnv(f.diagrams, pipeline.EnvDiagramPath),
	}
}

func orEnv(value, key string) string {
	if value != "" {
		return value
	}
	return os.Getenv(key)
}
