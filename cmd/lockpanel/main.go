// Package main implements the lockpanel CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lockpanel/internal/anchor"
)

var (
	// Global flags
	verbose       bool
	selectorsFile string
	lockfilePath  string
	timeout       time.Duration

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "lockpanel",
	Short: "lockpanel - durable lockfile diff panels for pull-request pages",
	Long: `lockpanel detects a changed dependency lockfile between the two branches
of a pull request, computes a structured diff of the two snapshots, and keeps
an inline summary panel injected into the live review page even as the host
page re-renders.

The host page's markup is third-party: insertion points are located through a
cascading selector strategy and the panel self-heals through a debounced
mutation watcher.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

// loadSelectorStore builds the selector store, applying the --selectors
// override file and watching it for live edits when given.
func loadSelectorStore() (*anchor.SelectorStore, error) {
	sel := anchor.DefaultSelectors()
	if selectorsFile != "" {
		loaded, err := anchor.LoadSelectors(selectorsFile)
		if err != nil {
			return nil, err
		}
		sel = loaded
	}
	store := anchor.NewSelectorStore(sel, logger)
	if selectorsFile != "" {
		if err := store.WatchFile(selectorsFile); err != nil {
			logger.Warn("selector file watching disabled", zap.Error(err))
		}
	}
	return store, nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&selectorsFile, "selectors", "", "YAML file overriding the anchor selector lists (hot-reloaded)")
	rootCmd.PersistentFlags().StringVar(&lockfilePath, "lockfile", "composer.lock", "Lockfile path within the repository")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 60*time.Second, "Timeout for API and browser operations")

	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(browserCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
