package engine

import (
	"errors"
	"eventbacktester/types"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder  = errors.New("invalid order")
	ErrNoMarketPrice = errors.New("no market price for symbol")
)

// SimulatedExecutionHandler fills every order in full at the latest adjusted
// close, shifted against the trade by a fixed slippage.
//   - No partial fills, no rejections
//   - One FillEvent per OrderEvent, stamped with the order's tick
//   - Does NOT mutate the portfolio; fills go back through the queue.
type SimulatedExecutionHandler struct {
	bars       BarReader
	sink       EventSink
	exchange   string
	commission CommissionModel
	slippage   decimal.Decimal
}

func NewSimulatedExecutionHandler(bars BarReader, sink EventSink, cfg *ExecutionConfig) *SimulatedExecutionHandler {
	return &SimulatedExecutionHandler{
		bars:       bars,
		sink:       sink,
		exchange:   cfg.exchange,
		commission: cfg.commission,
		slippage:   cfg.slippage,
	}
}

func (s *SimulatedExecutionHandler) ExecuteOrder(order types.OrderEvent) error {
	if err := validateOrder(order); err != nil {
		return err
	}

	price, ok := s.bars.LatestPrice(order.Symbol)
	if !ok {
		return fmt.Errorf("order %s for %s: %w", order.ID, order.Symbol, ErrNoMarketPrice)
	}
	fillPrice := s.applySlippage(price, order.Side)

	fill := types.FillEvent{
		OrderID:    order.ID,
		Timestamp:  order.Timestamp,
		Symbol:     order.Symbol,
		Exchange:   s.exchange,
		Quantity:   order.Quantity,
		Side:       order.Side,
		Price:      fillPrice,
		FillCost:   fillPrice.Mul(order.Quantity),
		Commission: s.commission.Commission(order.Quantity, fillPrice),
	}
	s.sink.Put(fill)
	return nil
}

func (s *SimulatedExecutionHandler) applySlippage(price decimal.Decimal, side types.Side) decimal.Decimal {
	if s.slippage.IsZero() {
		return price
	}
	if side == types.SideTypeBuy {
		return price.Add(s.slippage)
	}
	adjusted := price.Sub(s.slippage)
	if adjusted.IsNegative() {
		return decimal.Zero
	}
	return adjusted
}

func validateOrder(order types.OrderEvent) error {
	switch {
	case !order.Side.Valid():
		return fmt.Errorf("order %s side %q: %w", order.ID, order.Side, ErrInvalidOrder)
	case !order.OrderType.Valid():
		return fmt.Errorf("order %s type %q: %w", order.ID, order.OrderType, ErrInvalidOrder)
	case order.Quantity.IsNegative():
		return fmt.Errorf("order %s negative quantity %s: %w", order.ID, order.Quantity, ErrInvalidOrder)
	case !order.Quantity.Equal(order.Quantity.Truncate(0)):
		return fmt.Errorf("order %s fractional quantity %s: %w", order.ID, order.Quantity, ErrInvalidOrder)
	}
	return nil
}
