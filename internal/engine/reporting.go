package engine

import (
	"eventbacktester/types"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

type Summary struct {
	// Meta / period info
	StartDate time.Time
	EndDate   time.Time
	Ticks     int
	Signals   int
	Orders    int
	Fills     int

	// Absolute performance
	InitialCapital decimal.Decimal
	FinalEquity    decimal.Decimal
	TotalReturn    decimal.Decimal
	CAGR           decimal.Decimal
	RealizedPnL    decimal.Decimal

	// Drawdown
	MaxDrawdown      decimal.Decimal
	DrawdownDuration int

	// Risk-adjusted metrics
	SharpeRatio  float64
	SortinoRatio float64

	// Costs
	TotalCommission decimal.Decimal
}

type realizedPnLReader interface {
	RealizedPnL() decimal.Decimal
}

func newSummary(port Portfolio, counts map[types.EventKind]int, periods int, riskFree decimal.Decimal) Summary {
	curve := port.EquityCurve()
	s := Summary{
		Ticks:          counts[types.KindMarket],
		Signals:        counts[types.KindSignal],
		Orders:         counts[types.KindOrder],
		Fills:          counts[types.KindFill],
		InitialCapital: port.InitialCapital(),
		FinalEquity:    port.InitialCapital(),
	}
	if r, ok := port.(realizedPnLReader); ok {
		s.RealizedPnL = r.RealizedPnL()
	}
	if len(curve) == 0 {
		return s
	}

	last := curve[len(curve)-1]
	s.StartDate = curve[0].Timestamp
	s.EndDate = last.Timestamp
	s.FinalEquity = last.Total
	s.TotalCommission = last.Commission
	s.TotalReturn = TotalReturn(curve)
	s.CAGR = CAGR(curve)

	equity := make([]decimal.Decimal, len(curve))
	for i, snap := range curve {
		equity[i] = snap.Equity
	}
	_, s.MaxDrawdown, s.DrawdownDuration = Drawdowns(equity)

	returns := PeriodReturns(curve)
	rf := riskFree.InexactFloat64()
	s.SharpeRatio = SharpeRatio(returns, periods, rf)
	s.SortinoRatio = SortinoRatio(returns, periods, rf)
	return s
}

func PrintSummary(w io.Writer, s Summary) {
	hundred := decimal.NewFromInt(100)

	fmt.Fprintln(w, "===== Backtest Summary =====")
	fmt.Fprintf(w, "Start Date:            %s\n", s.StartDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "End Date:              %s\n", s.EndDate.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "Ticks:                 %d\n", s.Ticks)
	fmt.Fprintf(w, "Signals/Orders/Fills:  %d/%d/%d\n", s.Signals, s.Orders, s.Fills)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Capital:       %s\n", s.InitialCapital.StringFixed(2))
	fmt.Fprintf(w, "Final Equity:          %s\n", s.FinalEquity.StringFixed(2))
	fmt.Fprintf(w, "Total Return:          %s%%\n", s.TotalReturn.Mul(hundred).StringFixed(2))
	fmt.Fprintf(w, "CAGR:                  %s%%\n", s.CAGR.Mul(hundred).StringFixed(2))
	fmt.Fprintf(w, "Realized PnL:          %s\n", s.RealizedPnL.StringFixed(2))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s%%\n", s.MaxDrawdown.Mul(hundred).StringFixed(2))
	fmt.Fprintf(w, "Drawdown Duration:     %d\n", s.DrawdownDuration)

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %.2f\n", s.SharpeRatio)
	fmt.Fprintf(w, "Sortino Ratio:         %.2f\n", s.SortinoRatio)

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Commission:      %s\n", s.TotalCommission.StringFixed(2))
	fmt.Fprintln(w, "============================")
}
