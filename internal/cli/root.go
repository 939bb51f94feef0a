// Package cli implements the Cryptodial command-line interface.
//
// This package uses global variables to manage CLI state, which is the
// standard pattern for Cobra-based CLI applications. The globals are
// initialized in PersistentPreRunE and cleaned up in PersistentPostRun.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level state
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cryptodial/cryptodial/internal/config"
)

var (
	// Global flags
	configPath string
	verbose    bool

	// Global state initialized in PersistentPreRunE
	cfg    *config.Config
	logger *config.Logger
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "cryptodial",
	Short: "A custodial multi-chain wallet served over USSD",
	Long: `Cryptodial is a custodial cryptocurrency wallet reachable from feature
phones. It serves USSD menus for creating wallets, checking balances and
sending value across Electroneum, Binance Smart Chain, Polygon and Solana.

Example:
  cryptodial serve --config /etc/cryptodial/config.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		return initGlobals()
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		cleanup()
	},
}

// Execute runs the root command.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// initGlobals loads configuration and opens the logger.
func initGlobals() error {
	path := configPath
	if path == "" {
		if _, err := os.Stat(config.DefaultPath()); err == nil {
			path = config.DefaultPath()
		}
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	level := config.ParseLogLevel(cfg.Logging.Level)
	if verbose {
		level = config.LogLevelDebug
	}
	logger, err = config.NewLogger(level, cfg.Logging.File)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	return nil
}

func cleanup() {
	if logger != nil {
		_ = logger.Close()
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"config file path (default "+config.DefaultPath()+")")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
