// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"igor-cli/internal/config"
	"igor-cli/internal/issue"

	"github.com/charmbracelet/fang"
	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"

	// verbose enables verbose output
	verbose bool
	// cfgFile allows specifying a custom config file
	cfgFile string
	// projectRoot overrides the consumer project root (default: working directory)
	projectRoot string
	// nichesDir overrides the manifest's niches directory
	nichesDir string

	// userConfig is the loaded user-level configuration. Defaults are used
	// when no config file exists or loading fails.
	userConfig = config.DefaultConfig()

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "igor",
		Short: "A thundercloud-driven file generator",
		Long: TitleStyle.Render("igor") + SubtitleStyle.Render(" - A thundercloud-driven file generator") + `

igor assembles files for a consumer project from shared thundercloud
templates and per-niche invar overrides, splicing generated content
into placeholder-marked regions of existing files.

Niches are defined under the project's niches directory, each with its
own settings file binding it to a thundercloud and selecting options.

` + SubtitleStyle.Render("Quick Start:") + `
  1. Run 'igor init' in your project directory
  2. Add niches under the niches directory
  3. Generate with: igor run

` + SubtitleStyle.Render("Examples:") + `
  igor run                  Generate files for all niches
  igor watch                Re-generate on thundercloud/invar changes
  igor init                 Scaffold a new project manifest
  igor config show          Show current configuration`,
	}
)

func init() {
	cobra.OnInitialize(initRootConfig)

	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/igor/config.cue)")
	rootCmd.PersistentFlags().StringVarP(&projectRoot, "project-root", "C", "", "consumer project root (default is the working directory)")
	rootCmd.PersistentFlags().StringVar(&nichesDir, "niches", "", "override the manifest's niches directory")

	// Add subcommands
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(configCmd)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	// Use fang.Execute for enhanced Cobra styling
	// Pass version via fang.WithVersion() since fang overrides rootCmd.Version
	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// initRootConfig loads the user configuration and wires the logger.
func initRootConfig() {
	opts := config.LoadOptions{}
	if cfgFile != "" {
		opts.ConfigFilePath = cfgFile
	}

	cfg, err := config.NewProvider().Load(context.Background(), opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, verbose))
	}
	if cfg != nil {
		userConfig = cfg
	}

	// Apply verbose from config if not set via flag
	if !verbose {
		verbose = userConfig.UI.Verbose
	}

	setupLogging()
}

// setupLogging installs a charmbracelet logger as the slog default so the
// engine packages' slog calls come out styled and leveled consistently.
func setupLogging() {
	level := charmlog.InfoLevel
	if verbose {
		level = charmlog.DebugLevel
	}
	logger := charmlog.NewWithOptions(os.Stderr, charmlog.Options{
		Level: level,
	})
	slog.SetDefault(slog.New(logger))
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}

// GetVerbose returns the verbose flag value
func GetVerbose() bool {
	return verbose
}
