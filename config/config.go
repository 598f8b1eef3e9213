package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/execution"
)

// Config is the complete run configuration as read from a file.
type Config struct {
	Data     DataConfig       `json:"data" yaml:"data"`
	Engine   EngineConfig     `json:"engine" yaml:"engine"`
	Slippage execution.Config `json:"slippage" yaml:"slippage"`
	Strategy StrategyConfig   `json:"strategy" yaml:"strategy"`
	Journal  JournalConfig    `json:"journal" yaml:"journal"`
	Output   OutputConfig     `json:"output" yaml:"output"`
}

// DataConfig locates and gates the input bar series.
type DataConfig struct {
	Path                 string `json:"path" yaml:"path"`
	Validate             bool   `json:"validate" yaml:"validate"`
	Strict               bool   `json:"strict" yaml:"strict"`
	MaxGapMs             int64  `json:"max_gap_ms" yaml:"max_gap_ms"`
	AllowEqualTimestamps bool   `json:"allow_equal_timestamps" yaml:"allow_equal_timestamps"`
}

// EngineConfig contains the simulation parameters.
type EngineConfig struct {
	InitialCash float64 `json:"initial_cash" yaml:"initial_cash"`
	FeeBps      float64 `json:"fee_bps" yaml:"fee_bps"`
	TaxBps      float64 `json:"tax_bps" yaml:"tax_bps"`
	SlippageBps float64 `json:"slippage_bps" yaml:"slippage_bps"`
	Seed        int64   `json:"seed" yaml:"seed"`
	PerturbBps  float64 `json:"perturb_bps" yaml:"perturb_bps"`
}

// StrategyConfig names the strategy and its parameters.
type StrategyConfig struct {
	Name   string             `json:"name" yaml:"name"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

// JournalConfig controls the audit journal sinks.
type JournalConfig struct {
	Enable bool   `json:"enable" yaml:"enable"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

// OutputConfig controls manifest persistence.
type OutputConfig struct {
	ManifestDir string `json:"manifest_dir,omitempty" yaml:"manifest_dir,omitempty"`
}

// Default returns a runnable configuration.
func Default() *Config {
	return &Config{
		Data:     DataConfig{Validate: true},
		Engine:   EngineConfig{InitialCash: 10000},
		Strategy: StrategyConfig{Name: "hold"},
		Journal:  JournalConfig{Enable: true, Dir: engine.DefaultJournalDir},
		Output:   OutputConfig{ManifestDir: "reports/manifests"},
	}
}

// LoadFromFile loads configuration from a file (YAML first, JSON as
// fallback), layered over Default.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the cross-field constraints the type system cannot.
func (c *Config) Validate() error {
	if c.Engine.InitialCash <= 0 {
		return fmt.Errorf("config: initial_cash must be positive, got %v", c.Engine.InitialCash)
	}
	if c.Engine.FeeBps < 0 || c.Engine.TaxBps < 0 || c.Engine.SlippageBps < 0 {
		return fmt.Errorf("config: fee, tax, and slippage bps must be non-negative")
	}
	if c.Strategy.Name == "" {
		return fmt.Errorf("config: strategy.name is required")
	}
	if m := c.Slippage.Mode; m != "" && m != execution.ModeFixed && m != execution.ModeDynamic {
		return fmt.Errorf("config: unknown slippage mode %q", m)
	}
	return nil
}

// EngineOptions maps the file form onto the engine's options.
func (c *Config) EngineOptions() engine.Options {
	return engine.Options{
		InitialCash:          decimal.NewFromFloat(c.Engine.InitialCash),
		FeeBps:               c.Engine.FeeBps,
		TaxBps:               c.Engine.TaxBps,
		SlippageBps:          c.Engine.SlippageBps,
		Slippage:             c.Slippage,
		Seed:                 c.Engine.Seed,
		PerturbBps:           c.Engine.PerturbBps,
		ValidateData:         c.Data.Validate,
		StrictData:           c.Data.Strict,
		AllowEqualTimestamps: c.Data.AllowEqualTimestamps,
		MaxGapMs:             c.Data.MaxGapMs,
		EnableJournal:        c.Journal.Enable,
		JournalDir:           c.Journal.Dir,
		JournalDB:            c.Journal.DBPath,
		ManifestDir:          c.Output.ManifestDir,
	}
}
