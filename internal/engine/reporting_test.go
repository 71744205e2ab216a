package engine

import (
	"bytes"
	"eventbacktester/types"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func curveFromTotals(initial string, totals ...string) []types.EquitySnapshot {
	capital := d(initial)
	curve := make([]types.EquitySnapshot, len(totals))
	for i, tot := range totals {
		total := d(tot)
		curve[i] = types.EquitySnapshot{
			Timestamp: day0.AddDate(0, 0, i),
			Cash:      total,
			Total:     total,
			Equity:    total.Div(capital),
		}
		if i > 0 {
			curve[i].Returns = types.PctChange(curve[i-1].Total, total)
		}
	}
	return curve
}

func TestTotalReturn(t *testing.T) {
	tests := []struct {
		name  string
		curve []types.EquitySnapshot
		want  string
	}{
		{"empty", nil, "0"},
		{"flat", curveFromTotals("1000", "1000", "1000"), "0"},
		{"gain", curveFromTotals("1000", "1000", "1250"), "0.25"},
		{"loss", curveFromTotals("1000", "1000", "900"), "-0.1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TotalReturn(tt.curve)
			if !got.Equal(d(tt.want)) {
				t.Errorf("TotalReturn() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSharpeRatio(t *testing.T) {
	tests := []struct {
		name     string
		returns  []float64
		periods  int
		riskFree float64
		want     float64
	}{
		{"too short", []float64{0.01}, 252, 0, 0},
		{"flat", []float64{0, 0, 0, 0}, 252, 0, 0},
		{"constant positive has no deviation", []float64{0.01, 0.01, 0.01}, 252, 0, 0},
		// mean 0.01, population std 0.01
		{"alternating", []float64{0, 0.02, 0, 0.02}, 252, 0, math.Sqrt(252)},
		// excess mean 0.01 - 0.0252/252 = 0.0099
		{"risk free", []float64{0, 0.02, 0, 0.02}, 252, 0.0252, math.Sqrt(252) * 0.0099 / 0.01},
		{"hourly periods", []float64{0, 0.02, 0, 0.02}, 252 * 7, 0, math.Sqrt(252 * 7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SharpeRatio(tt.returns, tt.periods, tt.riskFree)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestSortinoRatio(t *testing.T) {
	// mean 0.0, downside deviation sqrt((0.01^2*2)/4)
	got := SortinoRatio([]float64{0.01, -0.01, 0.01, -0.01}, 252, 0)
	assert.InDelta(t, 0, got, 1e-12)

	got = SortinoRatio([]float64{0.03, -0.01, 0.03, -0.01}, 252, 0)
	want := math.Sqrt(252) * 0.01 / math.Sqrt(0.0002/4)
	assert.InDelta(t, want, got, 1e-9)

	assert.Equal(t, 0.0, SortinoRatio([]float64{0.01, 0.02}, 252, 0), "no downside")
}

func TestDrawdowns(t *testing.T) {
	equity := []decimal.Decimal{d("1"), d("1.1"), d("1.0"), d("0.9"), d("1.1"), d("1.2"), d("1.15")}
	dd, maxDD, maxDur := Drawdowns(equity)

	want := []string{"0", "0", "0.1", "0.2", "0", "0", "0.05"}
	require.Len(t, dd, len(want))
	for i := range want {
		assert.True(t, dd[i].Equal(d(want[i])), "dd[%d] = %s, want %s", i, dd[i], want[i])
	}
	assert.True(t, maxDD.Equal(d("0.2")))
	assert.Equal(t, 2, maxDur)

	_, maxDD, maxDur = Drawdowns(nil)
	assert.True(t, maxDD.IsZero())
	assert.Zero(t, maxDur)

	// Drawdown from the very first point counts.
	_, maxDD, maxDur = Drawdowns([]decimal.Decimal{d("1"), d("0.5"), d("0.4")})
	assert.True(t, maxDD.Equal(d("0.6")))
	assert.Equal(t, 2, maxDur)
}

func TestCAGR(t *testing.T) {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	curve := []types.EquitySnapshot{
		{Timestamp: start, Total: d("1000")},
		{Timestamp: start.Add(time.Duration(2 * 365.25 * 24 * float64(time.Hour))), Total: d("1210")},
	}
	assert.InDelta(t, 0.1, CAGR(curve).InexactFloat64(), 1e-9)
	assert.True(t, CAGR(curve[:1]).IsZero())
}

func TestNewSummary(t *testing.T) {
	port := &curvePortfolio{
		initial: d("1000"),
		curve:   curveFromTotals("1000", "1000", "1100", "990", "1050"),
	}
	port.curve[3].Commission = d("3")
	s := newSummary(port, map[types.EventKind]int{types.KindMarket: 4, types.KindFill: 2}, 252, decimal.Zero)

	assert.Equal(t, 4, s.Ticks)
	assert.Equal(t, 2, s.Fills)
	assert.Equal(t, day0, s.StartDate)
	assert.Equal(t, day0.AddDate(0, 0, 3), s.EndDate)
	assert.True(t, s.FinalEquity.Equal(d("1050")))
	assert.True(t, s.TotalReturn.Equal(d("0.05")))
	assert.True(t, s.MaxDrawdown.Equal(d("0.11")))
	assert.Equal(t, 2, s.DrawdownDuration)
	assert.True(t, s.TotalCommission.Equal(d("3")))
	assert.NotZero(t, s.SharpeRatio)
	assert.True(t, s.RealizedPnL.IsZero(), "portfolio without realized pnl reports zero")
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, Summary{
		StartDate:        day0,
		EndDate:          day0.AddDate(1, 0, 0),
		Ticks:            252,
		InitialCapital:   d("100000"),
		FinalEquity:      d("112345.678"),
		TotalReturn:      d("0.12345678"),
		MaxDrawdown:      d("0.0525"),
		DrawdownDuration: 17,
		SharpeRatio:      1.2345,
		TotalCommission:  d("42"),
	})
	out := buf.String()
	for _, want := range []string{
		"Total Return:          12.35%",
		"Final Equity:          112345.68",
		"Max Drawdown:          5.25%",
		"Drawdown Duration:     17",
		"Sharpe Ratio:          1.23",
		"Total Commission:      42.00",
	} {
		assert.Contains(t, out, want)
	}
}

func TestWriteEquityCSV(t *testing.T) {
	curve := curveFromTotals("1000", "1000", "1100")
	curve[1].Drawdown = d("0")
	curve[1].DrawdownDuration = 0

	var buf bytes.Buffer
	require.NoError(t, WriteEquityCSV(&buf, curve))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "timestamp,cash,market_value,commission,total,equity,returns,drawdown,drawdown_duration", lines[0])
	assert.Equal(t, "2020-01-03T00:00:00Z,1100,0,0,1100,1.1,0.1,0,0", lines[2])

	path := filepath.Join(t.TempDir(), "equity.csv")
	require.NoError(t, WriteEquityCSVFile(path, curve))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, buf.String(), string(raw))
}

// curvePortfolio serves a canned equity curve.
type curvePortfolio struct {
	initial decimal.Decimal
	curve   []types.EquitySnapshot
}

func (c *curvePortfolio) UpdateTimeIndex(types.MarketEvent) error { return nil }
func (c *curvePortfolio) UpdateSignal(types.SignalEvent) error     { return nil }
func (c *curvePortfolio) UpdateFill(types.FillEvent) error         { return nil }
func (c *curvePortfolio) EquityCurve() []types.EquitySnapshot      { return c.curve }
func (c *curvePortfolio) InitialCapital() decimal.Decimal          { return c.initial }
