package engine

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func curveFrom(startT, stepMs int64, values ...float64) []EquityPoint {
	pts := make([]EquityPoint, len(values))
	for i, v := range values {
		pts[i] = EquityPoint{T: startT + int64(i)*stepMs, Equity: decimal.NewFromFloat(v)}
	}
	return pts
}

func TestComputeMetricsEmptyCurve(t *testing.T) {
	t.Parallel()

	m := ComputeMetrics(nil, decimal.NewFromInt(10000))
	assert.True(t, m.EquityFinal.Equal(decimal.NewFromInt(10000)))
	assert.Zero(t, m.ReturnTotal)
	assert.Zero(t, m.CAGR)
	assert.Zero(t, m.Sharpe)
	assert.Zero(t, m.Sortino)
	assert.Zero(t, m.MaxDrawdown)
}

func TestComputeMetricsReturnAndDrawdown(t *testing.T) {
	t.Parallel()

	day := int64(86400000)
	curve := curveFrom(1700000000000, day, 10000, 11000, 9900, 10450, 12000)
	m := ComputeMetrics(curve, decimal.NewFromInt(10000))

	assert.True(t, m.EquityFinal.Equal(decimal.NewFromInt(12000)))
	assert.InDelta(t, 0.2, m.ReturnTotal, 1e-12)
	// worst peak-to-trough: 11000 -> 9900
	assert.InDelta(t, 1100.0/11000.0, m.MaxDrawdown, 1e-12)
	assert.Greater(t, m.CAGR, 0.0)
	assert.NotZero(t, m.Sharpe)
}

func TestComputeMetricsDegenerateInputs(t *testing.T) {
	t.Parallel()

	day := int64(86400000)

	t.Run("flat_curve", func(t *testing.T) {
		t.Parallel()
		m := ComputeMetrics(curveFrom(0, day, 10000, 10000, 10000), decimal.NewFromInt(10000))
		assert.Zero(t, m.Sharpe)
		assert.Zero(t, m.Sortino)
		assert.Zero(t, m.MaxDrawdown)
		assert.False(t, math.IsNaN(m.CAGR))
	})

	t.Run("single_point", func(t *testing.T) {
		t.Parallel()
		m := ComputeMetrics(curveFrom(0, day, 10500), decimal.NewFromInt(10000))
		assert.InDelta(t, 0.05, m.ReturnTotal, 1e-12)
		assert.Zero(t, m.Sharpe)
		assert.Zero(t, m.CAGR) // zero time span
	})

	t.Run("monotonic_gain_has_zero_sortino", func(t *testing.T) {
		t.Parallel()
		m := ComputeMetrics(curveFrom(0, day, 10000, 10100, 10200, 10300), decimal.NewFromInt(10000))
		assert.Zero(t, m.Sortino) // no downside returns
		assert.Positive(t, m.Sharpe)
	})

	t.Run("never_nan", func(t *testing.T) {
		t.Parallel()
		m := ComputeMetrics(curveFrom(0, day, 10000, 0, 0), decimal.NewFromInt(10000))
		for name, v := range map[string]float64{
			"returnTotal": m.ReturnTotal,
			"cagr":        m.CAGR,
			"sharpe":      m.Sharpe,
			"sortino":     m.Sortino,
			"mdd":         m.MaxDrawdown,
		} {
			assert.False(t, math.IsNaN(v), name)
			assert.False(t, math.IsInf(v, 0), name)
		}
	})
}

func TestPeriodsPerYearUsesMedianSpacing(t *testing.T) {
	t.Parallel()

	day := int64(86400000)
	curve := curveFrom(0, day, 1, 1, 1, 1, 1)
	// one outlier gap must not skew the annualization
	curve[4].T = curve[3].T + 30*day
	ppy := periodsPerYear(curve)
	assert.InDelta(t, 365.25, ppy, 1e-9)
}

func TestSharpeAnnualizes(t *testing.T) {
	t.Parallel()

	day := int64(86400000)
	daily := ComputeMetrics(curveFrom(0, day, 10000, 10100, 10050, 10200, 10150), decimal.NewFromInt(10000))
	weekly := ComputeMetrics(curveFrom(0, 7*day, 10000, 10100, 10050, 10200, 10150), decimal.NewFromInt(10000))

	// same return series, longer spacing, smaller annualized ratio
	assert.InDelta(t, daily.Sharpe/math.Sqrt(7), weekly.Sharpe, 1e-9)
}
