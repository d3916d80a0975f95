// Package cli implements the zoneforge command-line interface.
//
// This package provides commands for computing reactive zone layouts,
// synthesizing generation masks and prompts, driving image generation
// providers, and compositing final design artifacts. The CLI is built using
// cobra and supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - layout: Compute reactive zone bounds from a template and user data
//   - mask: Rasterize the generation guidance mask
//   - prompt: Compose the generation and compositor prompts
//   - generate: Run the full pipeline against a generation provider
//   - compose: Composite artifacts from precomputed zones and a background
//   - run: End-to-end pipeline from template to artifacts
//   - serve: Expose the pipeline as an HTTP API
//   - cache: Manage the local artifact cache
//   - pushgraph: Debug tool for visualizing push relations
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/dkrolls/zoneforge/pkg/buildinfo"
	"github.com/dkrolls/zoneforge/pkg/cache"
	"github.com/dkrolls/zoneforge/pkg/pipeline"
	"github.com/dkrolls/zoneforge/pkg/provider"
	"github.com/dkrolls/zoneforge/pkg/template"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "zoneforge"

	// apiKeyEnv is the environment variable holding the provider API key.
	apiKeyEnv = "ZONEFORGE_API_KEY"
)

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
		Use:          "zoneforge",
		Short:        "Zoneforge turns design templates into generated artifacts",
		Long:         `Zoneforge is a CLI tool for producing finished design assets from zone templates: it lays out reactive zones around real user data, masks the reserved regions, drives an AI image provider for the open ones, and composites the final files.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.maskCommand())
	root.AddCommand(c.promptCommand())
	root.AddCommand(c.generateCommand())
	root.AddCommand(c.composeCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.pushgraphCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(noCache bool) (*pipeline.Runner, error) {
	store, err := newCache(noCache)
	if err != nil {
		return nil, err
	}
	return pipeline.NewRunner(store, nil, c.Logger), nil
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

// newProvider builds the generation provider from CLI flags. The API key is
// read from the environment rather than a flag so it stays out of shell
// history and process listings.
func newProvider(baseURL, model string) (provider.Provider, error) {
	if baseURL == "" || baseURL == "mock" {
		return provider.NewMock(), nil
	}
	return provider.NewRemote("remote", baseURL, os.Getenv(apiKeyEnv), provider.WithModel(model))
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the cache directory using XDG standard (~/.cache/zoneforge/).
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

// outputBase strips the extension from an input path for derived filenames.
func outputBase(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input))
}

// =============================================================================
// Input Helpers
// =============================================================================

// loadInputs reads the template plus optional user data and style files.
func loadInputs(templatePath, dataPath, stylePath string) (*template.Template, template.UserData, *template.StyleConfig, error) {
	tpl, err := template.Load(templatePath)
	if err != nil {
		return nil, nil, nil, err
	}

	userData := template.UserData{}
	if dataPath != "" {
		if userData, err = template.LoadUserData(dataPath); err != nil {
			return nil, nil, nil, err
		}
	}

	var style *template.StyleConfig
	if stylePath != "" {
		s, err := template.LoadStyle(stylePath)
		if err != nil {
			return nil, nil, nil, err
		}
		style = &s
	}

	return tpl, userData, style, nil
}

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.DefaultFormat}
	}
	return strings.Split(s, ",")
}
