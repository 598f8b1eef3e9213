// engine/options.go
package engine

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/simcore/execution"
)

// Version identifies the simulation core in manifests. Bump it whenever
// a change can alter run output, since replay compares across versions.
const Version = "0.4.0"

// Options configures a single run. The whole struct (minus the logger)
// is hashed into the manifest, so every field here must be plain data.
type Options struct {
	InitialCash decimal.Decimal `json:"initialCash" yaml:"initial_cash"`
	FeeBps      float64         `json:"feeBps" yaml:"fee_bps"`
	TaxBps      float64         `json:"taxBps" yaml:"tax_bps"`

	// SlippageBps is shorthand for a fixed model; Slippage.Mode, when
	// set, takes precedence.
	SlippageBps float64          `json:"slippageBps" yaml:"slippage_bps"`
	Slippage    execution.Config `json:"slippage" yaml:"slippage"`

	Seed int64 `json:"seed" yaml:"seed"`

	// PerturbBps adds a seed-deterministic jitter in [-PerturbBps,
	// +PerturbBps] to each fill's slippage. Used by Monte Carlo style
	// callers; zero disables it and consumes no RNG draws.
	PerturbBps float64 `json:"perturbBps" yaml:"perturb_bps"`

	ValidateData         bool  `json:"validateData" yaml:"validate_data"`
	StrictData           bool  `json:"strictData" yaml:"strict_data"`
	AllowEqualTimestamps bool  `json:"allowEqualTimestamps" yaml:"allow_equal_timestamps"`
	MaxGapMs             int64 `json:"maxGapMs" yaml:"max_gap_ms"`

	EnableJournal bool   `json:"enableJournal" yaml:"enable_journal"`
	JournalDir    string `json:"journalDir" yaml:"journal_dir"`
	JournalDB     string `json:"journalDb" yaml:"journal_db"`

	// ManifestDir, when set, persists the manifest and meta files
	// there. Empty keeps the manifest in memory only (replay does
	// this).
	ManifestDir string `json:"manifestDir" yaml:"manifest_dir"`

	Logger *zap.Logger `json:"-" yaml:"-"`
}

// DefaultJournalDir is used when journaling is enabled without a dir.
const DefaultJournalDir = "reports/journals"

func (o Options) withDefaults() Options {
	if o.InitialCash.IsZero() {
		o.InitialCash = decimal.NewFromInt(10000)
	}
	if o.EnableJournal && o.JournalDir == "" {
		o.JournalDir = DefaultJournalDir
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// slippageConfig resolves the flat SlippageBps shorthand against the
// structured model.
func (o Options) slippageConfig() execution.Config {
	cfg := o.Slippage
	if cfg.Mode == "" && o.SlippageBps != 0 {
		cfg.Mode = execution.ModeFixed
		cfg.FixedBps = o.SlippageBps
	}
	return cfg.WithDefaults()
}
