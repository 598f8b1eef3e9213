package strategies

import (
	"github.com/rustyeddy/simcore/engine"
	"github.com/rustyeddy/simcore/market"
)

// HoldStrategy never trades. Baseline for engine and replay tests.
type HoldStrategy struct{}

func (HoldStrategy) Name() string { return "hold" }

func (HoldStrategy) OnBar(bar market.Bar, index int, pos engine.PositionView) engine.Signal {
	return engine.Hold
}

// BuyHoldStrategy goes all-in on the first bar and never exits.
type BuyHoldStrategy struct{}

func (BuyHoldStrategy) Name() string { return "buy-hold" }

func (BuyHoldStrategy) OnBar(bar market.Bar, index int, pos engine.PositionView) engine.Signal {
	if index == 0 {
		return engine.Buy
	}
	return engine.Hold
}

func init() {
	Register("hold", func(Params) (engine.Strategy, error) { return HoldStrategy{}, nil })
	Register("buy-hold", func(Params) (engine.Strategy, error) { return BuyHoldStrategy{}, nil })
}
