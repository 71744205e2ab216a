package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquitySnapshot is one row of the equity curve, taken once per tick.
type EquitySnapshot struct {
	Timestamp   time.Time
	Cash        decimal.Decimal
	MarketValue decimal.Decimal
	// Commission is cumulative since the start of the run.
	Commission decimal.Decimal
	Total      decimal.Decimal
	// Equity is Total normalized by the initial capital.
	Equity           decimal.Decimal
	Returns          decimal.Decimal
	Drawdown         decimal.Decimal
	DrawdownDuration int
}
