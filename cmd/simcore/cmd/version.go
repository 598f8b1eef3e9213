package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcore/engine"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  `Display the current version of the simcore CLI and engine.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("simcore version %s\n", engine.Version)
		fmt.Println("Deterministic backtest core with auditable, replayable runs")
		fmt.Println("https://github.com/rustyeddy/simcore")
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
