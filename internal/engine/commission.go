package engine

import (
	"github.com/shopspring/decimal"
)

// CommissionModel prices a fill. Implementations must return zero for a zero
// quantity so that no-op orders stay free.
type CommissionModel interface {
	Commission(quantity, price decimal.Decimal) decimal.Decimal
}

// FlatFee charges the same amount for every non-empty fill.
type FlatFee struct {
	Fee decimal.Decimal
}

func (f FlatFee) Commission(quantity, _ decimal.Decimal) decimal.Decimal {
	if quantity.IsZero() {
		return decimal.Zero
	}
	return f.Fee
}

// BasisPoints charges Bps / 10000 of the traded notional.
type BasisPoints struct {
	Bps decimal.Decimal
}

func (b BasisPoints) Commission(quantity, price decimal.Decimal) decimal.Decimal {
	notional := quantity.Abs().Mul(price)
	if notional.IsZero() {
		return decimal.Zero
	}
	return notional.Mul(b.Bps).Div(decimal.NewFromInt(10000))
}

// InteractiveBrokers is the US fixed per-share schedule:
//   - 0.013 USD per share up to 500 shares
//   - 0.008 USD per share above 500 shares
//   - minimum 1.30 USD per order
type InteractiveBrokers struct{}

func (InteractiveBrokers) Commission(quantity, _ decimal.Decimal) decimal.Decimal {
	shares := quantity.Abs()
	if shares.IsZero() {
		return decimal.Zero
	}
	minFee := decimal.RequireFromString("1.30")
	rate := decimal.RequireFromString("0.013")
	if shares.GreaterThan(decimal.NewFromInt(500)) {
		rate = decimal.RequireFromString("0.008")
	}
	return decimal.Max(minFee, shares.Mul(rate))
}

// PercentWithBounds charges Rate of trade value clamped to [Min, Max].
// A zero Max means no upper bound. The IBKR Netherlands fixed schedule is
// PercentWithBounds{Rate: 0.0005, Min: 1.70, Max: 39}.
type PercentWithBounds struct {
	Rate decimal.Decimal
	Min  decimal.Decimal
	Max  decimal.Decimal
}

func (p PercentWithBounds) Commission(quantity, price decimal.Decimal) decimal.Decimal {
	tradeValue := quantity.Abs().Mul(price)
	if tradeValue.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	fee := tradeValue.Mul(p.Rate)
	if fee.LessThan(p.Min) {
		fee = p.Min
	}
	if p.Max.IsPositive() && fee.GreaterThan(p.Max) {
		fee = p.Max
	}
	return fee
}
