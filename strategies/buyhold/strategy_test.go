package buyhold

import (
	"eventbacktester/internal/engine"
	"eventbacktester/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bars(symbol string, start time.Time, n int) []types.Bar {
	out := make([]types.Bar, n)
	for i := range out {
		p := decimal.NewFromInt(10)
		out[i] = types.Bar{Symbol: symbol, Open: p, High: p, Low: p, Close: p, AdjClose: p, Timestamp: start.AddDate(0, 0, i)}
	}
	return out
}

func TestStrategy_CalculateSignals(t *testing.T) {
	day0 := time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC)
	q := engine.NewEventQueue()
	h, err := engine.NewHistoricDataHandler(q, map[string][]types.Bar{
		"AAPL": bars("AAPL", day0, 4),
		// MSFT only starts trading on the third tick.
		"MSFT": bars("MSFT", day0.AddDate(0, 0, 2), 2),
	}, engine.NewDataConfig([]string{"AAPL", "MSFT"}, time.Time{}, false))
	require.NoError(t, err)

	s := New(h, q)
	var signals []types.SignalEvent
	perTick := []int{}
	for {
		h.UpdateBars()
		if !h.ContinueBacktest() {
			break
		}
		ev, ok := q.Get()
		require.True(t, ok)
		market, ok := ev.(types.MarketEvent)
		require.True(t, ok)
		require.NoError(t, s.CalculateSignals(market))

		n := 0
		for !q.Empty() {
			ev, _ := q.Get()
			sig, ok := ev.(types.SignalEvent)
			require.True(t, ok, "strategy must only emit signals")
			signals = append(signals, sig)
			n++
		}
		perTick = append(perTick, n)
	}

	assert.Equal(t, []int{1, 0, 1, 0}, perTick)
	require.Len(t, signals, 2)
	assert.Equal(t, "AAPL", signals[0].Symbol)
	assert.Equal(t, day0, signals[0].Timestamp)
	assert.Equal(t, "MSFT", signals[1].Symbol)
	assert.Equal(t, day0.AddDate(0, 0, 2), signals[1].Timestamp)
	for _, sig := range signals {
		assert.Equal(t, types.DirectionLong, sig.Direction)
		assert.True(t, sig.Strength.Equal(decimal.NewFromInt(1)))
		assert.Equal(t, ID, sig.StrategyID)
	}
}
