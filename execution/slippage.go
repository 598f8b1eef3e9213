// execution/slippage.go
//
// Execution-cost model: effective slippage in basis points for a fill.
// Pure function of the bar history and the configuration; the engine
// relies on that for replayability.
package execution

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/simcore/ledger"
	"github.com/rustyeddy/simcore/market"
)

// Modes.
const (
	ModeFixed   = "fixed"
	ModeDynamic = "dynamic"
)

// Defaults applied by WithDefaults.
const (
	DefaultVolatilityLookback = 20
	DefaultMaxBps             = 200
)

// Config selects and parameterizes the slippage model.
type Config struct {
	Mode               string  `json:"mode" yaml:"mode"`
	FixedBps           float64 `json:"fixedBps" yaml:"fixed_bps"`
	SpreadBps          float64 `json:"spreadBps" yaml:"spread_bps"`
	LiquidityFactor    float64 `json:"liquidityFactor" yaml:"liquidity_factor"`
	VolatilityLookback int     `json:"volatilityLookback" yaml:"volatility_lookback"`
	SizeImpactBps      float64 `json:"sizeImpactBps" yaml:"size_impact_bps"`
	MinBps             float64 `json:"minBps" yaml:"min_bps"`
	MaxBps             float64 `json:"maxBps" yaml:"max_bps"`
}

// WithDefaults fills unset fields. The zero Config is a fixed model
// with zero bps.
func (c Config) WithDefaults() Config {
	if c.Mode == "" {
		c.Mode = ModeFixed
	}
	if c.VolatilityLookback <= 0 {
		c.VolatilityLookback = DefaultVolatilityLookback
	}
	if c.LiquidityFactor == 0 {
		c.LiquidityFactor = 1
	}
	if c.MaxBps == 0 {
		c.MaxBps = DefaultMaxBps
	}
	return c
}

var (
	tenThousand = decimal.NewFromInt(10000)
	volWeight   = decimal.RequireFromString("0.25")
	liqFloor    = decimal.RequireFromString("0.05")
	liqCeil     = decimal.New(1, 0)
)

// SlippageBps computes the slippage for a fill at bars[index]. sizeAbs
// may be zero when the caller has no size-impact term configured. A
// dynamic estimate is always within [MinBps, MaxBps]; fixed mode
// returns the configured value as-is. Never negative.
func SlippageBps(bars []market.Bar, index int, side ledger.Side, sizeAbs decimal.Decimal, cfg Config) decimal.Decimal {
	cfg = cfg.WithDefaults()
	_ = side // both sides pay the same model; direction is applied by the ledger

	if cfg.Mode != ModeDynamic {
		// Fixed mode is the caller's number taken at face value; the
		// [MinBps, MaxBps] band only bounds the dynamic estimate.
		fixed := decimal.NewFromFloat(cfg.FixedBps)
		if fixed.IsNegative() {
			return decimal.Zero
		}
		return fixed
	}

	bps := decimal.NewFromFloat(cfg.SpreadBps).Div(decimal.NewFromInt(2))

	if n := minInt(cfg.VolatilityLookback, index); n > 0 {
		sum := decimal.Zero
		count := 0
		for i := index - n; i < index; i++ {
			b := bars[i]
			if !b.C.IsPositive() {
				continue
			}
			rel := b.H.Sub(b.L).Div(b.C)
			sum = sum.Add(rel)
			count++
		}
		if count > 0 {
			avg := sum.Div(decimal.NewFromInt(int64(count)))
			bps = bps.Add(avg.Mul(tenThousand).Mul(volWeight))
		}
	}

	liq := decimal.NewFromFloat(cfg.LiquidityFactor)
	if liq.LessThan(liqFloor) {
		liq = liqFloor
	} else if liq.GreaterThan(liqCeil) {
		liq = liqCeil
	}
	bps = bps.Div(liq)

	if cfg.SizeImpactBps > 0 && sizeAbs.IsPositive() {
		bps = bps.Add(decimal.NewFromFloat(cfg.SizeImpactBps).Mul(sizeAbs))
	}

	return clamp(bps, cfg)
}

func clamp(bps decimal.Decimal, cfg Config) decimal.Decimal {
	min := decimal.NewFromFloat(cfg.MinBps)
	max := decimal.NewFromFloat(cfg.MaxBps)
	if bps.LessThan(min) {
		bps = min
	}
	if bps.GreaterThan(max) {
		bps = max
	}
	if bps.IsNegative() {
		return decimal.Zero
	}
	return bps
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
