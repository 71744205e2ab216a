package engine

import (
	"errors"
	"eventbacktester/types"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownSide            = errors.New("unknown fill side")
	ErrShortSellNotAllowed    = errors.New("short sell not allowed, fill would leave a negative position")
	ErrInvalidSignalDirection = errors.New("invalid signal direction")
	ErrInvalidSignalStrength  = errors.New("signal strength must be in (0, 1]")
	ErrNonMonotonicTime       = errors.New("tick is not after the previous equity snapshot")
	ErrInvalidCapital         = errors.New("initial capital must be positive")
)

type Position struct {
	Symbol    string
	Quantity  decimal.Decimal
	AvgCost   decimal.Decimal
	LastPrice decimal.Decimal
}

// NaivePortfolio sizes signals into market orders and keeps the books.
// Cash and positions change only in UpdateFill.
type NaivePortfolio struct {
	bars BarReader
	sink EventSink

	initialCapital    decimal.Decimal
	cash              decimal.Decimal
	positions         map[string]*Position
	realizedPnL       decimal.Decimal
	commission        decimal.Decimal
	allowShortSelling bool
	sizing            SizingPolicy
	newOrderID        func() string

	curve         []types.EquitySnapshot
	highWaterMark decimal.Decimal
}

func NewNaivePortfolio(bars BarReader, sink EventSink, cfg *PortfolioConfig) (*NaivePortfolio, error) {
	if !cfg.initialCapital.IsPositive() {
		return nil, ErrInvalidCapital
	}
	return &NaivePortfolio{
		bars:              bars,
		sink:              sink,
		initialCapital:    cfg.initialCapital,
		cash:              cfg.initialCapital,
		positions:         make(map[string]*Position),
		allowShortSelling: cfg.allowShortSelling,
		sizing:            cfg.sizing,
		newOrderID:        uuid.NewString,
	}, nil
}

// UpdateSignal turns one signal into exactly one market order. EXIT flattens
// the current position, which is a zero quantity order when already flat.
func (p *NaivePortfolio) UpdateSignal(signal types.SignalEvent) error {
	if !signal.Direction.Valid() {
		return fmt.Errorf("%s direction %q: %w", signal.Symbol, signal.Direction, ErrInvalidSignalDirection)
	}
	if !signal.Strength.IsPositive() || signal.Strength.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("%s strength %s: %w", signal.Symbol, signal.Strength, ErrInvalidSignalStrength)
	}

	cur := p.Position(signal.Symbol)
	var qty decimal.Decimal
	var side types.Side

	switch signal.Direction {
	case types.DirectionExit:
		qty = cur.Abs()
		side = types.SideTypeSell
		if cur.IsNegative() {
			side = types.SideTypeBuy
		}
	case types.DirectionLong, types.DirectionShort:
		price, _ := p.bars.LatestPrice(signal.Symbol)
		qty = p.sizing.Size(signal, SizingInput{Cash: p.cash, Price: price, Position: cur})
		side = types.SideTypeBuy
		if signal.Direction == types.DirectionShort {
			side = types.SideTypeSell
		}
	}

	p.sink.Put(types.NewOrder(p.newOrderID(), signal.Symbol, qty, types.TypeMarket, side, signal.Timestamp))
	return nil
}

// UpdateFill applies a fill to position and cash in one step.
func (p *NaivePortfolio) UpdateFill(fill types.FillEvent) error {
	if !fill.Side.Valid() {
		return fmt.Errorf("fill %s side %q: %w", fill.OrderID, fill.Side, ErrUnknownSide)
	}

	quantity := fill.Quantity
	cost := fill.FillCost
	if fill.Side == types.SideTypeSell {
		quantity = quantity.Neg()
		cost = cost.Neg()
	}

	pos := p.positions[fill.Symbol]
	if pos == nil {
		pos = &Position{Symbol: fill.Symbol}
	}

	oldQty := pos.Quantity
	newQty := oldQty.Add(quantity)
	if !p.allowShortSelling && newQty.IsNegative() {
		return fmt.Errorf("%s position %s: %w", fill.Symbol, newQty, ErrShortSellNotAllowed)
	}
	p.positions[fill.Symbol] = pos

	if !oldQty.IsZero() && !quantity.IsZero() && oldQty.Sign() != quantity.Sign() {
		closed := decimal.Min(quantity.Abs(), oldQty.Abs())
		pnl := fill.Price.Sub(pos.AvgCost).Mul(closed)
		if oldQty.IsNegative() {
			pnl = pnl.Neg()
		}
		p.realizedPnL = p.realizedPnL.Add(pnl)
	}

	switch {
	case quantity.IsZero():
	case sameSide(oldQty, newQty):
		absOld := oldQty.Abs()
		absNew := newQty.Abs()
		absAdd := quantity.Abs()
		if absNew.GreaterThan(absOld) {
			pos.AvgCost = weightedAvg(pos.AvgCost, absOld, fill.Price, absAdd)
		}
		pos.Quantity = newQty

	case oldQty.IsZero():
		pos.Quantity = newQty
		pos.AvgCost = fill.Price

	case newQty.IsZero():
		pos.Quantity = decimal.Zero
		pos.AvgCost = decimal.Zero

	default:
		// flipped through zero, the remainder opens at the fill price
		pos.Quantity = newQty
		pos.AvgCost = fill.Price
	}

	if fill.Price.IsPositive() {
		pos.LastPrice = fill.Price
	}
	p.cash = p.cash.Sub(cost).Sub(fill.Commission)
	p.commission = p.commission.Add(fill.Commission)
	return nil
}

// UpdateTimeIndex appends the equity snapshot for a tick, marking every open
// position to the latest known price.
func (p *NaivePortfolio) UpdateTimeIndex(event types.MarketEvent) error {
	var prev *types.EquitySnapshot
	if n := len(p.curve); n > 0 {
		prev = &p.curve[n-1]
		if !event.Timestamp.After(prev.Timestamp) {
			return fmt.Errorf("tick %s after %s: %w", event.Timestamp, prev.Timestamp, ErrNonMonotonicTime)
		}
	}

	marketValue := decimal.Zero
	for symbol, pos := range p.positions {
		if pos.Quantity.IsZero() {
			continue
		}
		if price, ok := p.bars.LatestPrice(symbol); ok {
			pos.LastPrice = price
		}
		marketValue = marketValue.Add(pos.Quantity.Mul(pos.LastPrice))
	}

	total := p.cash.Add(marketValue)
	snap := types.EquitySnapshot{
		Timestamp:   event.Timestamp,
		Cash:        p.cash,
		MarketValue: marketValue,
		Commission:  p.commission,
		Total:       total,
		Equity:      total.Div(p.initialCapital),
		Returns:     decimal.Zero,
		Drawdown:    decimal.Zero,
	}

	if prev == nil {
		p.highWaterMark = snap.Equity
	} else {
		snap.Returns = types.PctChange(prev.Total, total)
		p.highWaterMark = decimal.Max(p.highWaterMark, snap.Equity)
		snap.Drawdown = p.highWaterMark.Sub(snap.Equity)
		if !snap.Drawdown.IsZero() {
			snap.DrawdownDuration = prev.DrawdownDuration + 1
		}
	}

	p.curve = append(p.curve, snap)
	return nil
}

func (p *NaivePortfolio) EquityCurve() []types.EquitySnapshot {
	return append([]types.EquitySnapshot(nil), p.curve...)
}

func (p *NaivePortfolio) InitialCapital() decimal.Decimal {
	return p.initialCapital
}

func (p *NaivePortfolio) Cash() decimal.Decimal {
	return p.cash
}

// Position is the signed quantity held for symbol.
func (p *NaivePortfolio) Position(symbol string) decimal.Decimal {
	if pos, ok := p.positions[symbol]; ok {
		return pos.Quantity
	}
	return decimal.Zero
}

func (p *NaivePortfolio) Positions() map[string]Position {
	out := make(map[string]Position, len(p.positions))
	for sym, pos := range p.positions {
		out[sym] = *pos
	}
	return out
}

func (p *NaivePortfolio) RealizedPnL() decimal.Decimal {
	return p.realizedPnL
}

func (p *NaivePortfolio) TotalCommission() decimal.Decimal {
	return p.commission
}

func sameSide(a, b decimal.Decimal) bool {
	return (a.GreaterThan(decimal.Zero) && b.GreaterThan(decimal.Zero)) ||
		(a.LessThan(decimal.Zero) && b.LessThan(decimal.Zero))
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
