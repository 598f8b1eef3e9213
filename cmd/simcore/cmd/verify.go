package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/simcore/journal"
	"github.com/rustyeddy/simcore/manifest"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a manifest seal and journal hash chain",
	Long: `Verify recomputes a manifest's digital seal and, when given a journal
file, re-derives every trade hash in the chain. Exit status is non-zero
if anything fails to verify.

Examples:
  simcore verify -m reports/manifests/<runId>.manifest.json
  simcore verify -j reports/journals/<runId>_journal.json`,
	RunE: runVerify,
}

var (
	verifyManifestPath string
	verifyJournalPath  string
)

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringVarP(&verifyManifestPath, "manifest", "m", "", "path to .manifest.json")
	verifyCmd.Flags().StringVarP(&verifyJournalPath, "journal", "j", "", "path to _journal.json")
}

func runVerify(cmd *cobra.Command, args []string) error {
	if verifyManifestPath == "" && verifyJournalPath == "" {
		return fmt.Errorf("at least one of --manifest or --journal is required")
	}

	failed := false

	if verifyManifestPath != "" {
		m, err := manifest.Load(verifyManifestPath)
		if err != nil {
			return err
		}
		if manifest.VerifySeal(m) {
			fmt.Printf("manifest %s: seal OK\n", m.RunID)
		} else {
			fmt.Printf("manifest %s: SEAL INVALID\n", m.RunID)
			failed = true
		}
	}

	if verifyJournalPath != "" {
		p, err := journal.Load(verifyJournalPath)
		if err != nil {
			return err
		}
		if bad := journal.VerifyChain(p.Trades); bad >= 0 {
			fmt.Printf("journal %s: CHAIN BROKEN at seq %d\n", p.RunID, p.Trades[bad].Seq)
			failed = true
		} else {
			fmt.Printf("journal %s: chain OK (%d trades)\n", p.RunID, len(p.Trades))
		}
	}

	if failed {
		os.Exit(1)
	}
	return nil
}
