package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/bbflame/internal/config"
	"github.com/matzehuels/bbflame/pkg/buildinfo"
	"github.com/matzehuels/bbflame/pkg/cache"
	"github.com/matzehuels/bbflame/pkg/pipeline"
	"github.com/matzehuels/bbflame/pkg/trace"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for directories and display.
const appName = config.AppName

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
	Config config.Config

	configPath string
	labelsPath string
}

// New creates a new CLI instance with a default logger and default settings.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{
		Logger: newLogger(w, level),
		Config: config.Default(),
	}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "bbflame renders execution traces as scrollable flame graphs",
		Long: `bbflame lays out profiled execution traces (nested call and basic-block
intervals) as flame graphs: one row per call depth, one box per interval,
colored by whether the address has a known symbol.

Browse a trace in the terminal with 'view', serve it to a browser with
'serve', or write a window of it to SVG, PNG or JSON with 'render'.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(c.configPath)
			if err != nil {
				return err
			}
			c.Config = cfg
			if c.labelsPath != "" {
				c.Config.Labels = c.labelsPath
			}
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/bbflame/config.toml)")
	root.PersistentFlags().StringVar(&c.labelsPath, "labels", "", "host label file (TOML)")

	root.AddCommand(c.viewCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.rootsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.labelCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Inputs
// =============================================================================

// loadTrace loads the trace at path and the configured host labels.
func (c *CLI) loadTrace(path string) (*trace.Source, *trace.Labels, error) {
	prog := newProgress(c.Logger)
	src, err := trace.Load(path)
	if err != nil {
		return nil, nil, err
	}
	prog.done(fmt.Sprintf("Loaded %s: %d roots, %d symbols", filepath.Base(path), len(src.Roots()), src.Symbols()))

	labels, err := c.loadLabels()
	if err != nil {
		return nil, nil, err
	}
	return src, labels, nil
}

// loadLabels reads the configured label file. No file configured yields an
// empty set.
func (c *CLI) loadLabels() (*trace.Labels, error) {
	if c.Config.Labels == "" {
		return trace.NewLabels(), nil
	}
	labels, err := trace.LoadLabels(c.Config.Labels)
	if err != nil {
		return nil, fmt.Errorf("load labels: %w", err)
	}
	c.Logger.Debug("loaded host labels", "path", c.Config.Labels, "count", labels.Len())
	return labels, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	cache, err := c.newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(cache, nil, c.Logger), nil
}

func (c *CLI) newCache(noCache bool) (cache.Cache, error) {
	if noCache || c.Config.Cache.Disabled {
		return cache.NewNullCache(), nil
	}
	dir, err := c.cacheDir()
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the configured cache directory or the XDG default.
func (c *CLI) cacheDir() (string, error) {
	if c.Config.Cache.Dir != "" {
		return c.Config.Cache.Dir, nil
	}
	return cacheDir()
}

// cacheDir returns the cache directory using XDG standard (~/.cache/bbflame/).
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

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatSVG}
	}
	parts := strings.Split(s, ",")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
