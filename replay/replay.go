// replay/replay.go
//
// Replay re-executes a sealed run and verifies bit-level agreement: a
// manifest, the original bars, and the same strategy must reproduce
// the recorded metrics within 1e-12.
package replay

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/rustyeddy/simcore/dataguard"
	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/manifest"
	"github.com/rustyeddy/simcore/market"
)

// Tolerance is the absolute metric tolerance for a successful replay.
const Tolerance = 1e-12

// Options controls mismatch policy. Strict turns every warning-level
// mismatch into an error and makes a failed comparison fatal.
type Options struct {
	Strict bool
	Logger *zap.Logger
}

// Diff is one metric disagreement.
type Diff struct {
	Metric string  `json:"metric"`
	Want   float64 `json:"want"`
	Got    float64 `json:"got"`
}

// Outcome is the replay verdict.
type Outcome struct {
	Manifest *manifest.Manifest `json:"-"`
	Result   *engine.Result     `json:"-"`
	OK       bool               `json:"ok"`
	Diffs    []Diff             `json:"diffs"`
	Warnings []string           `json:"warnings"`
}

// Run loads the manifest at path, checks the inputs, re-runs the
// engine with the sealed seed and options, and compares metrics.
func Run(manifestPath string, bars []market.Bar, strat engine.Strategy, opts Options) (*Outcome, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, err
	}

	out := &Outcome{Manifest: m}

	if !manifest.VerifySeal(m) {
		if opts.Strict {
			return nil, fmt.Errorf("replay: manifest %s has an invalid seal", m.RunID)
		}
		out.warn(log, fmt.Sprintf("manifest %s has an invalid seal", m.RunID))
	}

	if strat.Name() != m.Strategy {
		msg := fmt.Sprintf("strategy mismatch: manifest has %q, got %q", m.Strategy, strat.Name())
		if opts.Strict {
			return nil, fmt.Errorf("replay: %s", msg)
		}
		out.warn(log, msg)
	}

	// Checksum gate runs before any simulation: replaying against the
	// wrong dataset must fail fast.
	if sum := dataguard.Checksum(bars); sum != m.Data.Checksum {
		msg := fmt.Sprintf("bars checksum mismatch: manifest has %s, got %s", m.Data.Checksum, sum)
		if opts.Strict {
			return nil, fmt.Errorf("replay: %s", msg)
		}
		out.warn(log, msg)
		out.OK = false
		return out, nil
	}

	runOpts, err := decodeOptions(m)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	runOpts.Seed = m.Seed
	runOpts.Logger = log
	// Replay never re-persists artifacts over the original run's.
	runOpts.EnableJournal = false
	runOpts.JournalDB = ""
	runOpts.ManifestDir = ""

	res, err := engine.Run(bars, strat, runOpts)
	if err != nil {
		return nil, fmt.Errorf("replay run: %w", err)
	}
	out.Result = res

	want, err := decodeMetrics(m)
	if err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	out.Diffs = compare(want, res.Metrics)
	out.OK = len(out.Diffs) == 0

	if !out.OK && opts.Strict {
		return out, fmt.Errorf("replay: %d metric(s) diverged beyond %g", len(out.Diffs), Tolerance)
	}
	log.Info("replay done",
		zap.String("runId", m.RunID),
		zap.Bool("ok", out.OK),
		zap.Int("diffs", len(out.Diffs)))
	return out, nil
}

func (o *Outcome) warn(log *zap.Logger, msg string) {
	o.Warnings = append(o.Warnings, msg)
	log.Warn("replay warning", zap.String("msg", msg))
}

// decodeOptions round-trips the manifest's generic options value into
// the engine's typed options.
func decodeOptions(m *manifest.Manifest) (engine.Options, error) {
	var opts engine.Options
	raw, err := json.Marshal(m.Options)
	if err != nil {
		return opts, fmt.Errorf("re-encode options: %w", err)
	}
	if err := json.Unmarshal(raw, &opts); err != nil {
		return opts, fmt.Errorf("decode options: %w", err)
	}
	return opts, nil
}

func decodeMetrics(m *manifest.Manifest) (engine.Metrics, error) {
	var metrics engine.Metrics
	raw, err := json.Marshal(m.Metrics)
	if err != nil {
		return metrics, fmt.Errorf("re-encode metrics: %w", err)
	}
	if err := json.Unmarshal(raw, &metrics); err != nil {
		return metrics, fmt.Errorf("decode metrics: %w", err)
	}
	return metrics, nil
}

func compare(want, got engine.Metrics) []Diff {
	var diffs []Diff
	add := func(name string, w, g float64) {
		if math.Abs(w-g) > Tolerance {
			diffs = append(diffs, Diff{Metric: name, Want: w, Got: g})
		}
	}
	add("equityFinal", want.EquityFinal.InexactFloat64(), got.EquityFinal.InexactFloat64())
	add("returnTotal", want.ReturnTotal, got.ReturnTotal)
	add("cagr", want.CAGR, got.CAGR)
	add("sharpe", want.Sharpe, got.Sharpe)
	add("sortino", want.Sortino, got.Sortino)
	add("mdd", want.MaxDrawdown, got.MaxDrawdown)
	return diffs
}
