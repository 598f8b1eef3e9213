package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcore/market"
	"github.com/rustyeddy/simcore/replay"
	"github.com/rustyeddy/simcore/strategies"
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-execute a sealed run and verify it reproduces",
	Long: `Replay loads a run manifest, re-executes the engine with the sealed
seed and options against the given bars, and verifies the metrics agree
to within 1e-12.

Example:
  simcore replay -m reports/manifests/<runId>.manifest.json -b data/btc_5m.csv -s sma-cross`,
	RunE: runReplayCmd,
}

var (
	replayManifestPath string
	replayBarsPath     string
	replayStrategy     string
	replayFast         int
	replaySlow         int
	replayStrict       bool
)

func init() {
	rootCmd.AddCommand(replayCmd)

	replayCmd.Flags().StringVarP(&replayManifestPath, "manifest", "m", "", "path to .manifest.json (required)")
	replayCmd.Flags().StringVarP(&replayBarsPath, "bars", "b", "", "path to the original bar series (required)")
	replayCmd.Flags().StringVarP(&replayStrategy, "strategy", "s", "", "strategy name (required)")
	replayCmd.Flags().IntVar(&replayFast, "fast", 10, "sma-cross: fast period")
	replayCmd.Flags().IntVar(&replaySlow, "slow", 30, "sma-cross: slow period")
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "treat any mismatch as fatal")

	replayCmd.MarkFlagRequired("manifest") //nolint:errcheck
	replayCmd.MarkFlagRequired("bars")     //nolint:errcheck
	replayCmd.MarkFlagRequired("strategy") //nolint:errcheck
}

func runReplayCmd(cmd *cobra.Command, args []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	bars, err := market.LoadBars(replayBarsPath)
	if err != nil {
		return err
	}

	params := strategies.Params{"fast": float64(replayFast), "slow": float64(replaySlow)}
	strat, err := strategies.ByName(replayStrategy, params)
	if err != nil {
		return err
	}

	out, err := replay.Run(replayManifestPath, bars, strat, replay.Options{
		Strict: replayStrict,
		Logger: log,
	})
	if err != nil {
		return err
	}

	fmt.Printf("Run ID:   %s\n", out.Manifest.RunID)
	for _, w := range out.Warnings {
		fmt.Printf("warning:  %s\n", w)
	}
	if out.OK {
		fmt.Println("Replay:   OK (bit-level agreement)")
		return nil
	}
	fmt.Println("Replay:   MISMATCH")
	for _, d := range out.Diffs {
		fmt.Printf("  %-12s manifest=%v replayed=%v\n", d.Metric, d.Want, d.Got)
	}
	os.Exit(1)
	return nil
}
