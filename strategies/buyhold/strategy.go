package buyhold

import (
	"eventbacktester/internal/engine"
	"eventbacktester/types"

	"github.com/shopspring/decimal"
)

const ID = "buyhold"

// Strategy goes long every symbol once, on the first tick that symbol has a
// bar, and never trades again. It is the benchmark for everything else.
type Strategy struct {
	bars    engine.BarReader
	sink    engine.EventSink
	symbols []string
	bought  map[string]bool
}

func New(bars engine.BarReader, sink engine.EventSink) *Strategy {
	symbols := bars.Symbols()
	bought := make(map[string]bool, len(symbols))
	for _, s := range symbols {
		bought[s] = false
	}
	return &Strategy{
		bars:    bars,
		sink:    sink,
		symbols: symbols,
		bought:  bought,
	}
}

func (s *Strategy) Symbols() []string {
	return s.symbols
}

func (s *Strategy) CalculateSignals(event types.MarketEvent) error {
	for _, symbol := range s.symbols {
		if s.bought[symbol] {
			continue
		}
		bar, ok := s.bars.LatestBar(symbol)
		if !ok {
			continue
		}
		s.sink.Put(types.NewSignal(ID, symbol, types.DirectionLong, decimal.NewFromInt(1), bar.Timestamp))
		s.bought[symbol] = true
	}
	return nil
}
