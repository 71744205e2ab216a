package engine

import (
	"eventbacktester/types"
	"time"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// constantBars returns n daily bars for symbol all priced at price.
func constantBars(symbol string, n int, price string) []types.Bar {
	return pricedBars(symbol, day0, repeat(price, n)...)
}

func pricedBars(symbol string, start time.Time, prices ...string) []types.Bar {
	bars := make([]types.Bar, len(prices))
	for i, p := range prices {
		px := d(p)
		bars[i] = types.Bar{
			Symbol:    symbol,
			Open:      px,
			High:      px,
			Low:       px,
			Close:     px,
			AdjClose:  px,
			Volume:    decimal.NewFromInt(1000),
			Interval:  types.Day,
			Timestamp: start.AddDate(0, 0, i),
		}
	}
	return bars
}

func repeat(s string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = s
	}
	return out
}

// stubBars is a BarReader with fixed prices.
type stubBars struct {
	prices map[string]decimal.Decimal
	now    time.Time
}

func (s stubBars) Symbols() []string {
	out := make([]string, 0, len(s.prices))
	for k := range s.prices {
		out = append(out, k)
	}
	return out
}

func (s stubBars) LatestBar(symbol string) (types.Bar, bool) {
	p, ok := s.prices[symbol]
	if !ok {
		return types.Bar{}, false
	}
	return types.Bar{Symbol: symbol, Close: p, AdjClose: p, Timestamp: s.now}, true
}

func (s stubBars) LatestBars(symbol string, n int) []types.Bar {
	if b, ok := s.LatestBar(symbol); ok && n == 1 {
		return []types.Bar{b}
	}
	return nil
}

func (s stubBars) LatestBarValues(symbol string, field types.BarField, n int) ([]float64, error) {
	return nil, nil
}

func (s stubBars) LatestPrice(symbol string) (decimal.Decimal, bool) {
	p, ok := s.prices[symbol]
	return p, ok
}

func (s stubBars) CurrentTime() time.Time {
	return s.now
}

// collect drains q into a slice.
func collect(q *EventQueue) []types.Event {
	var out []types.Event
	for {
		e, ok := q.Get()
		if !ok {
			return out
		}
		out = append(out, e)
	}
}
