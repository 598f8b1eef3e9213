// engine/metrics.go
package engine

import (
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// Metrics are the summary statistics of an equity curve. EquityFinal
// stays decimal; the ratio statistics are conventionally float.
type Metrics struct {
	EquityFinal decimal.Decimal `json:"equityFinal"`
	ReturnTotal float64         `json:"returnTotal"`
	CAGR        float64         `json:"cagr"`
	Sharpe      float64         `json:"sharpe"`
	Sortino     float64         `json:"sortino"`
	MaxDrawdown float64         `json:"mdd"`
}

const msPerYear = 365.25 * 24 * 3600 * 1000

// ComputeMetrics derives summary metrics from an equity curve. An
// empty curve reports the initial cash unchanged. Degenerate inputs
// (zero variance, sub-bar spans) yield zeros rather than NaN so the
// metrics always canonicalize into a manifest.
func ComputeMetrics(curve []EquityPoint, initialCash decimal.Decimal) Metrics {
	m := Metrics{EquityFinal: initialCash.RoundBank(5)}
	if len(curve) == 0 {
		return m
	}

	m.EquityFinal = curve[len(curve)-1].Equity
	initial := initialCash.InexactFloat64()
	final := m.EquityFinal.InexactFloat64()
	if initial > 0 {
		m.ReturnTotal = final/initial - 1
	}

	years := float64(curve[len(curve)-1].T-curve[0].T) / msPerYear
	if years > 0 && initial > 0 {
		ratio := final / initial
		if ratio > 0 {
			m.CAGR = math.Pow(ratio, 1/years) - 1
		} else {
			m.CAGR = -1
		}
	}

	returns := barReturns(curve)
	ppy := periodsPerYear(curve)
	m.Sharpe = sharpe(returns, ppy)
	m.Sortino = sortino(returns, ppy)
	m.MaxDrawdown = maxDrawdown(curve)
	return m
}

func barReturns(curve []EquityPoint) []float64 {
	var rs []float64
	for i := 1; i < len(curve); i++ {
		prev := curve[i-1].Equity.InexactFloat64()
		if prev == 0 {
			continue
		}
		rs = append(rs, curve[i].Equity.InexactFloat64()/prev-1)
	}
	return rs
}

// periodsPerYear infers the annualization factor from the median bar
// spacing, so daily and minute series both get sane Sharpe numbers.
func periodsPerYear(curve []EquityPoint) float64 {
	if len(curve) < 2 {
		return 0
	}
	gaps := make([]int64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if d := curve[i].T - curve[i-1].T; d > 0 {
			gaps = append(gaps, d)
		}
	}
	if len(gaps) == 0 {
		return 0
	}
	sort.Slice(gaps, func(i, j int) bool { return gaps[i] < gaps[j] })
	median := float64(gaps[len(gaps)/2])
	return msPerYear / median
}

func sharpe(returns []float64, ppy float64) float64 {
	if len(returns) < 2 || ppy <= 0 {
		return 0
	}
	mean, std := meanStd(returns)
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(ppy)
}

func sortino(returns []float64, ppy float64) float64 {
	if len(returns) < 2 || ppy <= 0 {
		return 0
	}
	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	downside := 0.0
	for _, r := range returns {
		if r < 0 {
			downside += r * r
		}
	}
	downside = math.Sqrt(downside / float64(len(returns)))
	if downside == 0 {
		return 0
	}
	return mean / downside * math.Sqrt(ppy)
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	variance := 0.0
	for _, x := range xs {
		d := x - mean
		variance += d * d
	}
	variance /= float64(len(xs) - 1)
	return mean, math.Sqrt(variance)
}

func maxDrawdown(curve []EquityPoint) float64 {
	peak := math.Inf(-1)
	mdd := 0.0
	for _, p := range curve {
		e := p.Equity.InexactFloat64()
		if e > peak {
			peak = e
		}
		if peak > 0 {
			if dd := (peak - e) / peak; dd > mdd {
				mdd = dd
			}
		}
	}
	return mdd
}
