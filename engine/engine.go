// engine/engine.go
//
// Run orchestration: INIT -> WARMUP -> per-bar EVALUATE/FILL/MARK ->
// FINALIZE. One run is strictly sequential and single-threaded; all
// determinism flows from the bar order, the seed, and the fixed-point
// ledger.
package engine

import (
	"fmt"
	"math/rand"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rustyeddy/simcore/dataguard"
	"github.com/rustyeddy/simcore/execution"
	"github.com/rustyeddy/simcore/internal/id"
	"github.com/rustyeddy/simcore/journal"
	"github.com/rustyeddy/simcore/ledger"
	"github.com/rustyeddy/simcore/manifest"
	"github.com/rustyeddy/simcore/market"
)

// EquityPoint is one mark-to-market sample of the equity curve.
type EquityPoint struct {
	T      int64           `json:"t"`
	Equity decimal.Decimal `json:"equity"`
}

// Result is the full outcome of one run.
type Result struct {
	RunID           string                `json:"runId"`
	Equity          []EquityPoint         `json:"equity"`
	Trades          []journal.TradeRecord `json:"trades"`
	Metrics         Metrics               `json:"metrics"`
	JournalChecksum string                `json:"journalChecksum"`
	FinalState      ledger.State          `json:"finalState"`
	Manifest        *manifest.Manifest    `json:"-"`
	DataReport      *dataguard.Report     `json:"-"`
}

// NewRNG builds the run's random source. It is a pure function of the
// seed; replay depends on that.
func NewRNG(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Run executes strat over bars. The only error paths are strict data
// validation and file persistence; the simulation itself is total over
// validated input.
func Run(bars []market.Bar, strat Strategy, opts Options) (*Result, error) {
	if strat == nil {
		return nil, fmt.Errorf("engine: nil strategy")
	}
	opts = opts.withDefaults()
	log := opts.Logger

	// INIT
	var report *dataguard.Report
	if opts.ValidateData {
		var err error
		report, err = dataguard.ValidateBars(bars, dataguard.Options{
			ExpectSorted:         true,
			AllowEqualTimestamps: opts.AllowEqualTimestamps,
			MaxGap:               opts.MaxGapMs,
			Strict:               opts.StrictData,
		})
		if err != nil {
			return nil, err
		}
		for _, w := range report.Warnings {
			log.Warn("data warning",
				zap.String("code", w.Code),
				zap.Int("index", w.Index),
				zap.String("msg", w.Msg))
		}
	}

	runID := id.New()
	rng := NewRNG(opts.Seed)
	state := ledger.New(opts.InitialCash)
	slipCfg := opts.slippageConfig()

	jw := journal.Start(runID, opts.JournalDir, log)
	if opts.EnableJournal && opts.JournalDB != "" {
		jw.MirrorSQLite(opts.JournalDB)
	}

	log.Info("run start",
		zap.String("runId", runID),
		zap.String("strategy", strat.Name()),
		zap.Int("bars", len(bars)),
		zap.Int64("seed", opts.Seed))

	// WARMUP
	if w, ok := strat.(Warmuper); ok {
		w.Warmup(bars)
	}

	// Per bar
	equity := make([]EquityPoint, 0, len(bars))
	for i, bar := range bars {
		view := PositionView{Cash: state.Cash, Pos: state.Pos, AvgPrice: state.AvgPrice}
		sig := strat.OnBar(bar, i, view)

		if side, size, ok := sizeOrder(sig, state, bar, i, bars, slipCfg); ok {
			state = fill(&fillCtx{
				state: state, bars: bars, index: i,
				side: side, size: size,
				opts: opts, cfg: slipCfg, rng: rng,
				journal: jw, log: log,
			})
		}

		equity = append(equity, EquityPoint{T: bar.T, Equity: ledger.Equity(state, bar.C)})
	}

	// FINALIZE
	res := &Result{
		RunID:      runID,
		Equity:     equity,
		Trades:     jw.Records(),
		FinalState: state,
		DataReport: report,
	}
	if opts.EnableJournal {
		fin, err := jw.Finalize()
		if err != nil {
			return nil, fmt.Errorf("finalize journal: %w", err)
		}
		res.JournalChecksum = fin.Checksum
	}

	res.Metrics = ComputeMetrics(equity, opts.InitialCash)

	checksum := dataguard.Checksum(bars)
	if report != nil {
		checksum = report.Checksum
	}
	data := manifest.DataInfo{BarCount: len(bars), Checksum: checksum}
	if len(bars) > 0 {
		data.Start = bars[0].T
		data.End = bars[len(bars)-1].T
	}

	m, err := manifest.Build(manifest.Input{
		RunID:           runID,
		EngineVersion:   Version,
		Strategy:        strat.Name(),
		Seed:            opts.Seed,
		Options:         opts,
		Metrics:         res.Metrics,
		Data:            data,
		JournalChecksum: res.JournalChecksum,
		EquityFinal:     res.Metrics.EquityFinal.String(),
		CAGR:            res.Metrics.CAGR,
		Sharpe:          res.Metrics.Sharpe,
		MDD:             res.Metrics.MaxDrawdown,
		Trades:          len(res.Trades),
		Dir:             opts.ManifestDir,
	})
	if err != nil {
		return nil, fmt.Errorf("build manifest: %w", err)
	}
	res.Manifest = m

	log.Info("run done",
		zap.String("runId", runID),
		zap.Int("trades", len(res.Trades)),
		zap.String("equityFinal", res.Metrics.EquityFinal.String()),
		zap.Float64("mdd", res.Metrics.MaxDrawdown))
	return res, nil
}

// sizeOrder turns a signal into a side and an absolute size under the
// all-in sizing policy: a buy covers any short and deploys available
// cash; a sell closes a long, or opens an all-in short from flat.
// Signals that would pyramid an existing same-direction position are
// ignored.
func sizeOrder(sig Signal, st ledger.State, bar market.Bar, index int, bars []market.Bar, cfg execution.Config) (ledger.Side, decimal.Decimal, bool) {
	switch sig {
	case Buy:
		if st.Pos.IsPositive() {
			return "", decimal.Zero, false
		}
		size := cashSize(st, bar, index, bars, ledger.Buy, cfg)
		if st.Pos.IsNegative() {
			size = size.Add(st.Pos.Neg())
		}
		if size.IsPositive() {
			return ledger.Buy, size, true
		}
	case Sell:
		if st.Pos.IsPositive() {
			return ledger.Sell, st.Pos, true
		}
		if st.Pos.IsZero() {
			if size := cashSize(st, bar, index, bars, ledger.Sell, cfg); size.IsPositive() {
				return ledger.Sell, size, true
			}
		}
	}
	return "", decimal.Zero, false
}

// cashSize converts available cash into units at the effective price,
// rounded to size precision. Sizing ignores the fee, matching the
// reference accounting: cash may dip slightly negative after fees.
func cashSize(st ledger.State, bar market.Bar, index int, bars []market.Bar, side ledger.Side, cfg execution.Config) decimal.Decimal {
	if !st.Cash.IsPositive() {
		return decimal.Zero
	}
	bps := execution.SlippageBps(bars, index, side, decimal.Zero, cfg)
	price := ledger.EffectivePrice(bar.C, side, bps)
	if !price.IsPositive() {
		return decimal.Zero
	}
	return st.Cash.Div(price).RoundBank(ledger.SizePrecision)
}

type fillCtx struct {
	state ledger.State
	bars  []market.Bar
	index int
	side  ledger.Side
	size  decimal.Decimal

	opts Options
	cfg  execution.Config
	rng  *rand.Rand

	journal *journal.Writer
	log     *zap.Logger
}

func fill(c *fillCtx) ledger.State {
	bar := c.bars[c.index]
	bps := execution.SlippageBps(c.bars, c.index, c.side, c.size, c.cfg)
	if c.opts.PerturbBps > 0 {
		jitter := decimal.NewFromFloat((2*c.rng.Float64() - 1) * c.opts.PerturbBps)
		bps = bps.Add(jitter)
		if bps.IsNegative() {
			bps = decimal.Zero
		}
	}

	before := c.state
	after, fr := ledger.ApplyFill(before, ledger.Fill{
		Side:        c.side,
		Price:       bar.C,
		Size:        c.size,
		FeeBps:      decimal.NewFromFloat(c.opts.FeeBps),
		SlippageBps: bps,
		TaxBps:      decimal.NewFromFloat(c.opts.TaxBps),
	})

	rec := c.journal.Append(journal.TradeRecord{
		Time:           bar.T,
		Side:           string(c.side),
		Price:          ledger.EffectivePrice(bar.C, c.side, bps),
		Size:           c.size,
		Notional:       fr.Notional,
		Fee:            fr.Fee,
		CashBefore:     before.Cash,
		CashAfter:      after.Cash,
		PosBefore:      before.Pos,
		PosAfter:       after.Pos,
		AvgPriceBefore: before.AvgPrice,
		AvgPriceAfter:  after.AvgPrice,
		EquityBefore:   ledger.Equity(before, bar.C),
		EquityAfter:    ledger.Equity(after, bar.C),
	})

	c.log.Debug("fill",
		zap.Int("bar", c.index),
		zap.String("side", string(c.side)),
		zap.String("size", c.size.String()),
		zap.String("notional", fr.Notional.String()),
		zap.String("tradeId", rec.TradeID))
	return after
}
