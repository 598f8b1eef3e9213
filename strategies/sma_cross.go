package strategies

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/market"
)

// SMACrossStrategy goes long when the fast close average crosses above
// the slow one and exits on the cross back down. Averages are computed
// in decimal during Warmup so decisions replay bit-exactly.
type SMACrossStrategy struct {
	Fast int
	Slow int

	fast []decimal.Decimal
	slow []decimal.Decimal
}

// NewSMACross validates the periods.
func NewSMACross(fast, slow int) (*SMACrossStrategy, error) {
	if fast <= 0 || slow <= 0 {
		return nil, fmt.Errorf("sma-cross: periods must be positive, got fast=%d slow=%d", fast, slow)
	}
	if fast >= slow {
		return nil, fmt.Errorf("sma-cross: fast period %d must be below slow %d", fast, slow)
	}
	return &SMACrossStrategy{Fast: fast, Slow: slow}, nil
}

func (s *SMACrossStrategy) Name() string { return "sma-cross" }

// Warmup precomputes both average series over the full bar array.
func (s *SMACrossStrategy) Warmup(bars []market.Bar) {
	s.fast = rollingMean(bars, s.Fast)
	s.slow = rollingMean(bars, s.Slow)
}

func (s *SMACrossStrategy) OnBar(bar market.Bar, index int, pos engine.PositionView) engine.Signal {
	if index < s.Slow || index >= len(s.fast) {
		return engine.Hold
	}
	fastNow, slowNow := s.fast[index], s.slow[index]
	fastPrev, slowPrev := s.fast[index-1], s.slow[index-1]

	crossedUp := fastPrev.LessThanOrEqual(slowPrev) && fastNow.GreaterThan(slowNow)
	crossedDown := fastPrev.GreaterThanOrEqual(slowPrev) && fastNow.LessThan(slowNow)

	switch {
	case crossedUp && !pos.Pos.IsPositive():
		return engine.Buy
	case crossedDown && pos.Pos.IsPositive():
		return engine.Sell
	default:
		return engine.Hold
	}
}

// rollingMean returns the simple average of the trailing period closes
// for every index; entries before a full window are zero.
func rollingMean(bars []market.Bar, period int) []decimal.Decimal {
	out := make([]decimal.Decimal, len(bars))
	if period <= 0 || len(bars) < period {
		return out
	}
	p := decimal.NewFromInt(int64(period))
	sum := decimal.Zero
	for i, b := range bars {
		sum = sum.Add(b.C)
		if i >= period {
			sum = sum.Sub(bars[i-period].C)
		}
		if i >= period-1 {
			out[i] = sum.Div(p)
		}
	}
	return out
}

func init() {
	Register("sma-cross", func(p Params) (engine.Strategy, error) {
		return NewSMACross(int(p.get("fast", 10)), int(p.get("slow", 30)))
	})
}
