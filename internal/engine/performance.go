package engine

import (
	"eventbacktester/types"
	"math"

	"github.com/shopspring/decimal"
)

// Deviations below this are treated as a flat series.
const minDeviation = 1e-12

// TotalReturn is the final normalized equity minus one.
func TotalReturn(curve []types.EquitySnapshot) decimal.Decimal {
	if len(curve) == 0 {
		return decimal.Zero
	}
	return curve[len(curve)-1].Equity.Sub(decimal.NewFromInt(1))
}

// PeriodReturns drops the first snapshot, whose return is zero by definition.
func PeriodReturns(curve []types.EquitySnapshot) []float64 {
	if len(curve) < 2 {
		return nil
	}
	out := make([]float64, 0, len(curve)-1)
	for _, snap := range curve[1:] {
		out = append(out, snap.Returns.InexactFloat64())
	}
	return out
}

// SharpeRatio annualizes mean excess return over its population standard
// deviation by sqrt(periods). A flat or too short series yields 0.
func SharpeRatio(returns []float64, periods int, annualRiskFree float64) float64 {
	if len(returns) < 2 || periods <= 0 {
		return 0
	}
	rf := annualRiskFree / float64(periods)
	excess := make([]float64, len(returns))
	for i, r := range returns {
		excess[i] = r - rf
	}
	mean, std := meanStd(excess)
	if std < minDeviation || math.IsNaN(std) {
		return 0
	}
	return finite(math.Sqrt(float64(periods)) * mean / std)
}

// SortinoRatio is SharpeRatio with only the downside deviation in the denominator.
func SortinoRatio(returns []float64, periods int, annualRiskFree float64) float64 {
	if len(returns) < 2 || periods <= 0 {
		return 0
	}
	rf := annualRiskFree / float64(periods)
	var sum, downside float64
	for _, r := range returns {
		x := r - rf
		sum += x
		if x < 0 {
			downside += x * x
		}
	}
	mean := sum / float64(len(returns))
	dd := math.Sqrt(downside / float64(len(returns)))
	if dd < minDeviation {
		return 0
	}
	return finite(math.Sqrt(float64(periods)) * mean / dd)
}

// Drawdowns walks a normalized equity series, returning the per-point
// drawdown from the running high-water mark, the largest drawdown and the
// longest run of consecutive points spent below the mark.
func Drawdowns(equity []decimal.Decimal) ([]decimal.Decimal, decimal.Decimal, int) {
	if len(equity) == 0 {
		return nil, decimal.Zero, 0
	}
	drawdown := make([]decimal.Decimal, len(equity))
	duration := 0
	maxDD := decimal.Zero
	maxDuration := 0
	hwm := equity[0]
	drawdown[0] = decimal.Zero

	for t := 1; t < len(equity); t++ {
		hwm = decimal.Max(hwm, equity[t])
		drawdown[t] = hwm.Sub(equity[t])
		if drawdown[t].IsZero() {
			duration = 0
		} else {
			duration++
		}
		if drawdown[t].GreaterThan(maxDD) {
			maxDD = drawdown[t]
		}
		if duration > maxDuration {
			maxDuration = duration
		}
	}
	return drawdown, maxDD, maxDuration
}

// CAGR annualizes the growth between the first and last snapshot using
// 365.25 day years.
func CAGR(curve []types.EquitySnapshot) decimal.Decimal {
	if len(curve) < 2 {
		return decimal.Zero
	}
	start := curve[0]
	end := curve[len(curve)-1]
	if !start.Total.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	duration := end.Timestamp.Sub(start.Timestamp)
	if duration <= 0 {
		return decimal.Zero
	}
	years := duration.Hours() / (24.0 * 365.25)
	ratio := end.Total.Div(start.Total)
	if !ratio.GreaterThan(decimal.Zero) {
		return decimal.Zero
	}
	cagr := math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0
	return decimal.NewFromFloat(finite(cagr))
}

func meanStd(xs []float64) (float64, float64) {
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean := sum / float64(len(xs))
	var varianceSum float64
	for _, x := range xs {
		diff := x - mean
		varianceSum += diff * diff
	}
	return mean, math.Sqrt(varianceSum / float64(len(xs)))
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
