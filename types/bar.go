package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Bar struct {
	Symbol    string          `json:"symbol"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
	AdjClose  decimal.Decimal `json:"adjClose"`
	Volume    decimal.Decimal `json:"volume"`
	Returns   decimal.Decimal `json:"returns"`
	Interval  Interval        `json:"interval"`
	Timestamp time.Time       `json:"timestamp"`
}

// BarField names a numeric column of a Bar.
type BarField string

const (
	FieldOpen     BarField = "open"
	FieldHigh     BarField = "high"
	FieldLow      BarField = "low"
	FieldClose    BarField = "close"
	FieldAdjClose BarField = "adj_close"
	FieldVolume   BarField = "volume"
	FieldReturns  BarField = "returns"
)

// Value projects the bar onto a single field. ok is false for unknown fields.
func (b Bar) Value(field BarField) (float64, bool) {
	switch field {
	case FieldOpen:
		return b.Open.InexactFloat64(), true
	case FieldHigh:
		return b.High.InexactFloat64(), true
	case FieldLow:
		return b.Low.InexactFloat64(), true
	case FieldClose:
		return b.Close.InexactFloat64(), true
	case FieldAdjClose:
		return b.AdjClose.InexactFloat64(), true
	case FieldVolume:
		return b.Volume.InexactFloat64(), true
	case FieldReturns:
		return b.Returns.InexactFloat64(), true
	}
	return 0, false
}

// PctChange returns (cur - prev) / prev, or zero when prev is zero.
func PctChange(prev, cur decimal.Decimal) decimal.Decimal {
	if prev.IsZero() {
		return decimal.Zero
	}
	return cur.Sub(prev).Div(prev)
}
