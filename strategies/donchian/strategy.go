package donchian

import (
	"eventbacktester/internal/engine"
	"eventbacktester/types"
	"fmt"

	"github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
)

const ID = "donchian"

type Params struct {
	// Window is the number of completed bars forming the channel.
	Window int
	// ATRPeriod and ATRMultiple place the stop below the entry close.
	ATRPeriod   int
	ATRMultiple float64
}

func DefaultParams() Params {
	return Params{Window: 20, ATRPeriod: 20, ATRMultiple: 2}
}

// Strategy is a long-only Donchian breakout. It buys a break of the highest
// high of the preceding Window bars and exits on a break of the lowest low or
// when the close falls through the ATR stop set at entry.
type Strategy struct {
	bars    engine.BarReader
	sink    engine.EventSink
	params  Params
	symbols []string

	invested map[string]bool
	stopLoss map[string]decimal.Decimal
}

func New(bars engine.BarReader, sink engine.EventSink, params Params) (*Strategy, error) {
	if params.Window < 2 {
		return nil, fmt.Errorf("donchian window %d must be at least 2", params.Window)
	}
	if params.ATRPeriod < 1 {
		return nil, fmt.Errorf("atr period %d must be positive", params.ATRPeriod)
	}
	if params.ATRMultiple < 0 {
		return nil, fmt.Errorf("atr multiple %v must not be negative", params.ATRMultiple)
	}
	return &Strategy{
		bars:     bars,
		sink:     sink,
		params:   params,
		symbols:  bars.Symbols(),
		invested: make(map[string]bool),
		stopLoss: make(map[string]decimal.Decimal),
	}, nil
}

func (s *Strategy) Symbols() []string {
	return s.symbols
}

func (s *Strategy) CalculateSignals(event types.MarketEvent) error {
	for _, symbol := range s.symbols {
		s.onBar(symbol, event)
	}
	return nil
}

func (s *Strategy) onBar(symbol string, event types.MarketEvent) {
	// Channel over completed bars plus the current bar for the breakout.
	lookback := max(s.params.Window, s.params.ATRPeriod) + 1
	hist := s.bars.LatestBars(symbol, lookback)
	if len(hist) < lookback {
		return
	}
	candle := hist[len(hist)-1]
	if !candle.Timestamp.Equal(event.Timestamp) {
		// No bar for this symbol on this tick.
		return
	}

	highs, lows, closes := series(hist)
	completed := len(hist) - 1
	highest := talib.Max(highs[:completed], s.params.Window)
	lowest := talib.Min(lows[:completed], s.params.Window)
	highestHigh := decimal.NewFromFloat(highest[len(highest)-1])
	lowestLow := decimal.NewFromFloat(lowest[len(lowest)-1])

	if !s.invested[symbol] {
		if candle.High.GreaterThan(highestHigh) {
			atr := talib.Atr(highs, lows, closes, s.params.ATRPeriod)
			stop := candle.Close.Sub(decimal.NewFromFloat(atr[len(atr)-1] * s.params.ATRMultiple))
			s.stopLoss[symbol] = stop
			s.invested[symbol] = true
			s.sink.Put(types.NewSignal(ID, symbol, types.DirectionLong, decimal.NewFromInt(1), candle.Timestamp))
		}
		return
	}

	if candle.Low.LessThan(lowestLow) || candle.Close.LessThan(s.stopLoss[symbol]) {
		s.invested[symbol] = false
		s.stopLoss[symbol] = decimal.Zero
		s.sink.Put(types.NewSignal(ID, symbol, types.DirectionExit, decimal.NewFromInt(1), candle.Timestamp))
	}
}

// StopLoss is the current ATR stop for symbol, zero when flat.
func (s *Strategy) StopLoss(symbol string) decimal.Decimal {
	return s.stopLoss[symbol]
}

func series(bars []types.Bar) (highs, lows, closes []float64) {
	highs = make([]float64, len(bars))
	lows = make([]float64, len(bars))
	closes = make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High.InexactFloat64()
		lows[i] = b.Low.InexactFloat64()
		closes[i] = b.Close.InexactFloat64()
	}
	return highs, lows, closes
}
