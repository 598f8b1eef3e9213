package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xyproto/unzip"
)

var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "Prepare datasets (unpack archives, etc.)",
}

var unpackCmd = &cobra.Command{
	Use:   "unpack <archive.zip> [dest]",
	Short: "Extract a zipped dataset for loading",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dest := "."
		if len(args) == 2 {
			dest = args[1]
		}
		if err := unzip.Extract(args[0], dest); err != nil {
			return fmt.Errorf("unpack %s: %w", args[0], err)
		}
		fmt.Printf("extracted %s -> %s\n", args[0], dest)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(dataCmd)
	dataCmd.AddCommand(unpackCmd)
}
