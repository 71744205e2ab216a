package engine

import (
	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

// SizingInput is what a sizing policy may look at when turning a signal into
// a share count.
type SizingInput struct {
	Cash     decimal.Decimal
	Price    decimal.Decimal
	Position decimal.Decimal
}

// SizingPolicy maps a LONG or SHORT signal to an unsigned integer quantity.
// EXIT signals never reach it.
type SizingPolicy interface {
	Size(signal types.SignalEvent, in SizingInput) decimal.Decimal
}

// StrengthWeighted buys Unit shares per unit of signal strength, rounded to a
// whole share.
type StrengthWeighted struct {
	Unit decimal.Decimal
}

func (s StrengthWeighted) Size(signal types.SignalEvent, _ SizingInput) decimal.Decimal {
	return nonNegative(s.Unit.Mul(signal.Strength).Round(0))
}

// FixedQuantity ignores strength.
type FixedQuantity struct {
	Unit decimal.Decimal
}

func (f FixedQuantity) Size(_ types.SignalEvent, _ SizingInput) decimal.Decimal {
	return nonNegative(f.Unit.Round(0))
}

// PercentOfCash commits Fraction of the available cash, scaled by strength,
// at the latest price.
type PercentOfCash struct {
	Fraction decimal.Decimal
}

func (p PercentOfCash) Size(signal types.SignalEvent, in SizingInput) decimal.Decimal {
	capital := in.Cash.Mul(p.Fraction).Mul(signal.Strength)
	return getQuantityForPrice(in.Price, capital)
}

func getQuantityForPrice(stockPrice, capitalToUse decimal.Decimal) decimal.Decimal {
	if !stockPrice.IsPositive() {
		return decimal.Zero
	}
	return nonNegative(capitalToUse.Div(stockPrice).Floor())
}

func nonNegative(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
