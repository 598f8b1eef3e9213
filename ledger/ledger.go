// ledger/ledger.go
//
// Pure accounting state transitions. Every money quantity is a
// fixed-point decimal re-rounded to its field precision (banker's
// rounding) after each operation, so a run of thousands of fills never
// accumulates representation drift. The ledger itself never errors:
// inputs are pre-validated by the engine.
package ledger

import (
	"github.com/shopspring/decimal"
)

// Field precisions, in decimal places.
const (
	PricePrecision  int32 = 4
	SizePrecision   int32 = 7
	CashPrecision   int32 = 5
	FeePrecision    int32 = 5
	EquityPrecision int32 = 5
)

// Side of a fill.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// State is the account snapshot threaded by value through a run.
// Pos is positive long, negative short, zero flat. AvgPrice is the
// weighted-average cost basis and is meaningful only while Pos != 0.
type State struct {
	Cash     decimal.Decimal `json:"cash"`
	Pos      decimal.Decimal `json:"pos"`
	AvgPrice decimal.Decimal `json:"avgPrice"`
}

// Fill is a single execution event.
type Fill struct {
	Side        Side
	Price       decimal.Decimal
	Size        decimal.Decimal // absolute, > 0
	FeeBps      decimal.Decimal
	SlippageBps decimal.Decimal
	TaxBps      decimal.Decimal
}

// Result carries the cash-relevant figures of an applied fill.
type Result struct {
	Notional decimal.Decimal
	Fee      decimal.Decimal // fee + tax, at fee precision
}

var bpsDivisor = decimal.NewFromInt(10000)

// New returns the opening state for a run.
func New(initialCash decimal.Decimal) State {
	return State{
		Cash:     initialCash.RoundBank(CashPrecision),
		Pos:      decimal.Zero,
		AvgPrice: decimal.Zero,
	}
}

// EffectivePrice applies slippage to the quoted price: buys pay up,
// sells receive less. Rounded to price precision.
func EffectivePrice(price decimal.Decimal, side Side, slippageBps decimal.Decimal) decimal.Decimal {
	frac := slippageBps.Div(bpsDivisor)
	if side == Buy {
		return price.Mul(decimal.New(1, 0).Add(frac)).RoundBank(PricePrecision)
	}
	return price.Mul(decimal.New(1, 0).Sub(frac)).RoundBank(PricePrecision)
}

// ApplyFill transitions st by one fill and reports the notional and
// total fee. st is taken and returned by value; the input is never
// mutated.
func ApplyFill(st State, f Fill) (State, Result) {
	price := EffectivePrice(f.Price, f.Side, f.SlippageBps)
	size := f.Size.RoundBank(SizePrecision)

	notional := price.Mul(size).RoundBank(CashPrecision)
	fee := notional.Mul(f.FeeBps).Div(bpsDivisor).RoundBank(FeePrecision)
	tax := notional.Mul(f.TaxBps).Div(bpsDivisor).RoundBank(FeePrecision)
	totalFee := fee.Add(tax).RoundBank(FeePrecision)

	next := st
	switch f.Side {
	case Buy:
		next.Cash = st.Cash.Sub(notional).Sub(totalFee).RoundBank(CashPrecision)
		newPos := st.Pos.Add(size).RoundBank(SizePrecision)
		switch {
		case st.Pos.IsPositive():
			// accumulate long: weighted-average cost basis
			next.AvgPrice = st.AvgPrice.Mul(st.Pos).Add(notional).
				Div(newPos).RoundBank(PricePrecision)
		case st.Pos.IsZero():
			// open a fresh long
			next.AvgPrice = price
		default:
			// covering a short
			if newPos.IsPositive() {
				// crossed through flat: fresh long at this fill
				next.AvgPrice = price
			} else if newPos.IsZero() {
				next.AvgPrice = decimal.Zero
			}
			// still short: basis unchanged
		}
		next.Pos = newPos

	case Sell:
		next.Cash = st.Cash.Add(notional).Sub(totalFee).RoundBank(CashPrecision)
		newPos := st.Pos.Sub(size).RoundBank(SizePrecision)
		if newPos.IsZero() {
			next.AvgPrice = decimal.Zero
		}
		// Reducing a long or extending a short keeps the existing
		// basis. Opening a short from flat leaves AvgPrice at zero,
		// matching the reference behavior; see DESIGN.md before
		// changing this.
		next.Pos = newPos
	}

	return next, Result{Notional: notional, Fee: totalFee}
}

// Equity marks the state to market at the given price.
func Equity(st State, markPrice decimal.Decimal) decimal.Decimal {
	return st.Cash.Add(st.Pos.Mul(markPrice)).RoundBank(EquityPrecision)
}
