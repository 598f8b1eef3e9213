package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "simcore",
	Short: "Deterministic backtest core with auditable, replayable runs",
	Long: `Simcore simulates a trading strategy against historical bars with an
exact fixed-point ledger and produces a tamper-evident record of the run.

It provides tools for:
  - Running backtests with pluggable strategies
  - Hash-chained trade journals (JSON, CSV, optional SQLite mirror)
  - Sealed run manifests for later integrity verification
  - Bit-exact replay of past runs from their manifests

Complete documentation is available at https://github.com/rustyeddy/simcore`,
	SilenceUsage: true,
}

var verbose bool

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

// newLogger builds the CLI logger. Errors here are unrecoverable
// config problems, so they surface immediately.
func newLogger() (*zap.Logger, error) {
	if verbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return nil, fmt.Errorf("build logger: %w", err)
		}
		return log, nil
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	log, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return log, nil
}
