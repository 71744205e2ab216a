package engine

import (
	"context"
	"eventbacktester/types"
	"time"

	"github.com/shopspring/decimal"
)

// EventSink is the write side of the event queue handed to components.
type EventSink interface {
	Put(e types.Event)
}

// BarReader is read access to the bars consumed so far.
type BarReader interface {
	Symbols() []string
	LatestBar(symbol string) (types.Bar, bool)
	LatestBars(symbol string, n int) []types.Bar
	LatestBarValues(symbol string, field types.BarField, n int) ([]float64, error)
	LatestPrice(symbol string) (decimal.Decimal, bool)
	CurrentTime() time.Time
}

type DataHandler interface {
	BarReader
	UpdateBars()
	ContinueBacktest() bool
}

type BarSource interface {
	LoadBars(ctx context.Context, symbol string, start time.Time) ([]types.Bar, error)
}

type Strategy interface {
	Symbols() []string
	CalculateSignals(event types.MarketEvent) error
}

type Portfolio interface {
	UpdateTimeIndex(event types.MarketEvent) error
	UpdateSignal(signal types.SignalEvent) error
	UpdateFill(fill types.FillEvent) error
	EquityCurve() []types.EquitySnapshot
	InitialCapital() decimal.Decimal
}

type ExecutionHandler interface {
	ExecuteOrder(order types.OrderEvent) error
}

// Recorder observes the dispatch loop. It must not touch the queue.
type Recorder interface {
	TickProcessed()
	EventDispatched(kind types.EventKind)
}

type nopRecorder struct{}

func (nopRecorder) TickProcessed()                 {}
func (nopRecorder) EventDispatched(types.EventKind) {}
