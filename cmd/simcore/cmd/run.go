package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcore/config"
	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/market"
	"github.com/rustyeddy/simcore/strategies"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a backtest over a bar series",
	Long: `Run simulates a strategy against a historical bar series, writes the
journal and the sealed manifest, and prints a summary.

Examples:
  simcore run --bars data/btc_5m.csv --strategy sma-cross --fast 10 --slow 30
  simcore run --config examples/run.yaml`,
	RunE: runRun,
}

var (
	runConfigPath  string
	runBarsPath    string
	runStrategy    string
	runInitialCash float64
	runFeeBps      float64
	runSlippageBps float64
	runSeed        int64
	runFast        int
	runSlow        int
	runNoJournal   bool
	runStrict      bool
)

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runConfigPath, "config", "f", "", "path to YAML/JSON run config")
	runCmd.Flags().StringVarP(&runBarsPath, "bars", "b", "", "path to bar series (.json/.csv, optionally .xz)")
	runCmd.Flags().StringVarP(&runStrategy, "strategy", "s", "", "strategy name (hold, buy-hold, sma-cross)")
	runCmd.Flags().Float64Var(&runInitialCash, "cash", 0, "starting cash (overrides config)")
	runCmd.Flags().Float64Var(&runFeeBps, "fee", 0, "fee in basis points")
	runCmd.Flags().Float64Var(&runSlippageBps, "slippage", 0, "fixed slippage in basis points")
	runCmd.Flags().Int64Var(&runSeed, "seed", 0, "deterministic RNG seed")
	runCmd.Flags().IntVar(&runFast, "fast", 10, "sma-cross: fast period")
	runCmd.Flags().IntVar(&runSlow, "slow", 30, "sma-cross: slow period")
	runCmd.Flags().BoolVar(&runNoJournal, "no-journal", false, "skip journal files")
	runCmd.Flags().BoolVar(&runStrict, "strict", false, "abort on any data validation error")
}

func runRun(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cfg := config.Default()
	if runConfigPath != "" {
		if cfg, err = config.LoadFromFile(runConfigPath); err != nil {
			return err
		}
	}
	applyRunFlags(cfg)
	if cfg.Data.Path == "" {
		return fmt.Errorf("either --bars or a config with data.path is required")
	}

	bars, err := market.LoadBars(cfg.Data.Path)
	if err != nil {
		return err
	}

	strat, err := strategies.ByName(cfg.Strategy.Name, cfg.Strategy.Params)
	if err != nil {
		return err
	}

	opts := cfg.EngineOptions()
	opts.Logger = log

	start := time.Now()
	res, err := engine.Run(bars, strat, opts)
	if err != nil {
		return err
	}

	printResult(os.Stdout, cfg, res, len(bars), time.Since(start))
	return nil
}

func applyRunFlags(cfg *config.Config) {
	if runBarsPath != "" {
		cfg.Data.Path = runBarsPath
	}
	if runStrategy != "" {
		cfg.Strategy.Name = runStrategy
	}
	if runStrategy == "sma-cross" {
		if cfg.Strategy.Params == nil {
			cfg.Strategy.Params = map[string]float64{}
		}
		cfg.Strategy.Params["fast"] = float64(runFast)
		cfg.Strategy.Params["slow"] = float64(runSlow)
	}
	if runInitialCash > 0 {
		cfg.Engine.InitialCash = runInitialCash
	}
	if runFeeBps > 0 {
		cfg.Engine.FeeBps = runFeeBps
	}
	if runSlippageBps > 0 {
		cfg.Engine.SlippageBps = runSlippageBps
	}
	if runSeed != 0 {
		cfg.Engine.Seed = runSeed
	}
	if runNoJournal {
		cfg.Journal.Enable = false
	}
	if runStrict {
		cfg.Data.Strict = true
	}
}

func printResult(w io.Writer, cfg *config.Config, res *engine.Result, bars int, elapsed time.Duration) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintf(w, "Run ID:        %s\n", res.RunID)
	fmt.Fprintf(w, "Strategy:      %s\n", cfg.Strategy.Name)
	fmt.Fprintf(w, "Dataset:       %s (%d bars)\n", cfg.Data.Path, bars)
	fmt.Fprintf(w, "Elapsed:       %s\n", elapsed.Round(time.Millisecond))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Final Equity:  %s\n", res.Metrics.EquityFinal.String())
	fmt.Fprintf(w, "Return:        %.4f%%\n", res.Metrics.ReturnTotal*100)
	fmt.Fprintf(w, "CAGR:          %.4f%%\n", res.Metrics.CAGR*100)
	fmt.Fprintf(w, "Sharpe:        %.4f\n", res.Metrics.Sharpe)
	fmt.Fprintf(w, "Sortino:       %.4f\n", res.Metrics.Sortino)
	fmt.Fprintf(w, "Max Drawdown:  %.4f%%\n", res.Metrics.MaxDrawdown*100)
	fmt.Fprintf(w, "Trades:        %d\n", len(res.Trades))
	if res.JournalChecksum != "" {
		fmt.Fprintf(w, "Journal:       %s\n", res.JournalChecksum)
	}
	if res.Manifest != nil {
		fmt.Fprintf(w, "Seal:          %s\n", res.Manifest.DigitalSeal)
	}
}
