// engine/strategy.go
package engine

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/simcore/market"
)

// Signal is a strategy decision for one bar.
type Signal int

const (
	Hold Signal = iota
	Buy
	Sell
)

func (s Signal) String() string {
	switch s {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "hold"
	}
}

// PositionView is the read-only account state handed to a strategy.
type PositionView struct {
	Cash     decimal.Decimal
	Pos      decimal.Decimal
	AvgPrice decimal.Decimal
}

// Strategy is the pluggable decision function. Implementations must be
// deterministic: same bars in, same signals out.
type Strategy interface {
	Name() string
	OnBar(bar market.Bar, index int, pos PositionView) Signal
}

// Warmuper is an optional strategy hook called once with the full bar
// series before the run starts, e.g. to precompute indicators.
type Warmuper interface {
	Warmup(bars []market.Bar)
}
