package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind int

const (
	KindMarket EventKind = iota
	KindSignal
	KindOrder
	KindFill
)

func (k EventKind) String() string {
	switch k {
	case KindMarket:
		return "MARKET"
	case KindSignal:
		return "SIGNAL"
	case KindOrder:
		return "ORDER"
	case KindFill:
		return "FILL"
	}
	return "UNKNOWN"
}

// Event is the closed set of messages flowing through the backtest queue.
// Only the four types in this file implement it.
type Event interface {
	Kind() EventKind
	Time() time.Time
	sealed()
}

// MarketEvent marks a new bar being available for every tracked symbol.
type MarketEvent struct {
	Timestamp time.Time
}

// SignalEvent carries a strategy's intent. It has no size.
type SignalEvent struct {
	StrategyID string
	Symbol     string
	Timestamp  time.Time
	Direction  Direction
	Strength   decimal.Decimal
}

type OrderEvent struct {
	ID         string
	Symbol     string
	Timestamp  time.Time
	OrderType  OrderType
	Quantity   decimal.Decimal
	Side       Side
	LimitPrice decimal.Decimal
}

// FillEvent is the authoritative execution record. FillCost is the unsigned
// notional price * quantity.
type FillEvent struct {
	OrderID    string
	Timestamp  time.Time
	Symbol     string
	Exchange   string
	Quantity   decimal.Decimal
	Side       Side
	Price      decimal.Decimal
	FillCost   decimal.Decimal
	Commission decimal.Decimal
}

func (MarketEvent) Kind() EventKind { return KindMarket }
func (SignalEvent) Kind() EventKind { return KindSignal }
func (OrderEvent) Kind() EventKind  { return KindOrder }
func (FillEvent) Kind() EventKind   { return KindFill }

func (e MarketEvent) Time() time.Time { return e.Timestamp }
func (e SignalEvent) Time() time.Time { return e.Timestamp }
func (e OrderEvent) Time() time.Time  { return e.Timestamp }
func (e FillEvent) Time() time.Time   { return e.Timestamp }

func (MarketEvent) sealed() {}
func (SignalEvent) sealed() {}
func (OrderEvent) sealed()  {}
func (FillEvent) sealed()   {}

func NewSignal(
	strategyID string,
	symbol string,
	direction Direction,
	strength decimal.Decimal,
	createdAt time.Time,
) SignalEvent {
	return SignalEvent{
		StrategyID: strategyID,
		Symbol:     symbol,
		Timestamp:  createdAt,
		Direction:  direction,
		Strength:   strength,
	}
}

func NewOrder(
	id string,
	symbol string,
	quantity decimal.Decimal,
	orderType OrderType,
	side Side,
	createdAt time.Time,
) OrderEvent {
	return OrderEvent{
		ID:        id,
		Symbol:    symbol,
		Timestamp: createdAt,
		OrderType: orderType,
		Quantity:  quantity,
		Side:      side,
	}
}
