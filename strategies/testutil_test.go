package strategies

import (
	"eventbacktester/internal/engine"
	"eventbacktester/types"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func flatBars(symbol string, n int) []types.Bar {
	start := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)
	for i := range bars {
		p := decimal.NewFromInt(int64(100 + i))
		bars[i] = types.Bar{Symbol: symbol, Open: p, High: p, Low: p, Close: p, AdjClose: p, Timestamp: start.AddDate(0, 0, i)}
	}
	return bars
}

func newHandler(t *testing.T, symbols ...string) (*engine.HistoricDataHandler, *engine.EventQueue) {
	t.Helper()
	bars := make(map[string][]types.Bar)
	for _, s := range symbols {
		bars[s] = flatBars(s, 5)
	}
	q := engine.NewEventQueue()
	h, err := engine.NewHistoricDataHandler(q, bars, engine.NewDataConfig(symbols, time.Time{}, false))
	require.NoError(t, err)
	return h, q
}
