package engine

import (
	"errors"
	"eventbacktester/types"
	"testing"

	"github.com/shopspring/decimal"
)

func TestSimulatedExecutionHandler_ExecuteOrder(t *testing.T) {
	bars := stubBars{prices: map[string]decimal.Decimal{"AAPL": d("100")}}

	tests := []struct {
		name           string
		commission     CommissionModel
		slippage       string
		order          types.OrderEvent
		wantPrice      string
		wantCost       string
		wantCommission string
		wantErr        error
	}{
		{
			name:           "buy at latest price",
			commission:     FlatFee{Fee: d("1")},
			order:          types.NewOrder("o1", "AAPL", d("10"), types.TypeMarket, types.SideTypeBuy, day0),
			wantPrice:      "100",
			wantCost:       "1000",
			wantCommission: "1",
		},
		{
			name:           "buy pays slippage",
			commission:     FlatFee{},
			slippage:       "0.05",
			order:          types.NewOrder("o2", "AAPL", d("10"), types.TypeMarket, types.SideTypeBuy, day0),
			wantPrice:      "100.05",
			wantCost:       "1000.5",
			wantCommission: "0",
		},
		{
			name:           "sell receives less with slippage",
			commission:     InteractiveBrokers{},
			slippage:       "0.05",
			order:          types.NewOrder("o3", "AAPL", d("10"), types.TypeMarket, types.SideTypeSell, day0),
			wantPrice:      "99.95",
			wantCost:       "999.5",
			wantCommission: "1.3",
		},
		{
			name:           "zero quantity fills for free",
			commission:     FlatFee{Fee: d("1")},
			order:          types.NewOrder("o4", "AAPL", d("0"), types.TypeMarket, types.SideTypeSell, day0),
			wantPrice:      "100",
			wantCost:       "0",
			wantCommission: "0",
		},
		{
			name:    "unknown symbol",
			order:   types.NewOrder("o5", "MSFT", d("1"), types.TypeMarket, types.SideTypeBuy, day0),
			wantErr: ErrNoMarketPrice,
		},
		{
			name:    "negative quantity",
			order:   types.NewOrder("o6", "AAPL", d("-1"), types.TypeMarket, types.SideTypeBuy, day0),
			wantErr: ErrInvalidOrder,
		},
		{
			name:    "fractional quantity",
			order:   types.NewOrder("o7", "AAPL", d("1.5"), types.TypeMarket, types.SideTypeBuy, day0),
			wantErr: ErrInvalidOrder,
		},
		{
			name:    "bad side",
			order:   types.NewOrder("o8", "AAPL", d("1"), types.TypeMarket, types.Side("HOLD"), day0),
			wantErr: ErrInvalidOrder,
		},
		{
			name:    "bad type",
			order:   types.NewOrder("o9", "AAPL", d("1"), types.OrderType("STOP"), types.SideTypeBuy, day0),
			wantErr: ErrInvalidOrder,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewEventQueue()
			slippage := decimal.Zero
			if tt.slippage != "" {
				slippage = d(tt.slippage)
			}
			exec := NewSimulatedExecutionHandler(bars, q, NewExecutionConfig("", tt.commission, slippage))

			err := exec.ExecuteOrder(tt.order)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("ExecuteOrder() error = %v, want %v", err, tt.wantErr)
				}
				if !q.Empty() {
					t.Errorf("no fill expected on error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ExecuteOrder() unexpected error = %v", err)
			}

			events := collect(q)
			if len(events) != 1 {
				t.Fatalf("got %d events, want exactly one fill", len(events))
			}
			fill, ok := events[0].(types.FillEvent)
			if !ok {
				t.Fatalf("got %T, want FillEvent", events[0])
			}
			if fill.OrderID != tt.order.ID {
				t.Errorf("order id = %s, want %s", fill.OrderID, tt.order.ID)
			}
			if fill.Exchange != "ARCA" {
				t.Errorf("exchange = %s, want ARCA", fill.Exchange)
			}
			if !fill.Timestamp.Equal(tt.order.Timestamp) {
				t.Errorf("timestamp = %s, want %s", fill.Timestamp, tt.order.Timestamp)
			}
			if fill.Side != tt.order.Side || !fill.Quantity.Equal(tt.order.Quantity) {
				t.Errorf("fill %s %s does not match order", fill.Side, fill.Quantity)
			}
			if !fill.Price.Equal(d(tt.wantPrice)) {
				t.Errorf("price = %s, want %s", fill.Price, tt.wantPrice)
			}
			if !fill.FillCost.Equal(d(tt.wantCost)) {
				t.Errorf("fill cost = %s, want %s", fill.FillCost, tt.wantCost)
			}
			if !fill.Commission.Equal(d(tt.wantCommission)) {
				t.Errorf("commission = %s, want %s", fill.Commission, tt.wantCommission)
			}
		})
	}
}

func TestCommissionModels(t *testing.T) {
	ibkrNL := PercentWithBounds{Rate: d("0.0005"), Min: d("1.70"), Max: d("39")}

	tests := []struct {
		name  string
		model CommissionModel
		qty   string
		price string
		want  string
	}{
		{"flat", FlatFee{Fee: d("2.5")}, "10", "100", "2.5"},
		{"flat zero qty", FlatFee{Fee: d("2.5")}, "0", "100", "0"},
		{"bps", BasisPoints{Bps: d("5")}, "100", "50", "2.5"},
		{"bps zero qty", BasisPoints{Bps: d("5")}, "0", "50", "0"},
		{"ib minimum", InteractiveBrokers{}, "10", "100", "1.3"},
		{"ib per share", InteractiveBrokers{}, "400", "100", "5.2"},
		{"ib above 500", InteractiveBrokers{}, "1000", "100", "8"},
		{"ib zero qty", InteractiveBrokers{}, "0", "100", "0"},
		{"ibkr nl minimum", ibkrNL, "10", "100", "1.7"},
		{"ibkr nl percent", ibkrNL, "100", "100", "5"},
		{"ibkr nl maximum", ibkrNL, "10000", "100", "39"},
		{"percent no max", PercentWithBounds{Rate: d("0.001")}, "10000", "100", "1000"},
		{"percent zero qty", ibkrNL, "0", "100", "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.model.Commission(d(tt.qty), d(tt.price))
			if !got.Equal(d(tt.want)) {
				t.Errorf("Commission() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestSizingPolicies(t *testing.T) {
	sig := func(strength string) types.SignalEvent {
		return types.NewSignal("s", "AAPL", types.DirectionLong, d(strength), day0)
	}
	tests := []struct {
		name   string
		policy SizingPolicy
		signal types.SignalEvent
		in     SizingInput
		want   string
	}{
		{"strength full", StrengthWeighted{Unit: d("100")}, sig("1"), SizingInput{}, "100"},
		{"strength rounds", StrengthWeighted{Unit: d("100")}, sig("0.333"), SizingInput{}, "33"},
		{"fixed", FixedQuantity{Unit: d("7")}, sig("0.1"), SizingInput{}, "7"},
		{"percent floors", PercentOfCash{Fraction: d("0.1")}, sig("1"), SizingInput{Cash: d("10000"), Price: d("33")}, "30"},
		{"percent scaled by strength", PercentOfCash{Fraction: d("1")}, sig("0.5"), SizingInput{Cash: d("1000"), Price: d("10")}, "50"},
		{"percent no price", PercentOfCash{Fraction: d("1")}, sig("1"), SizingInput{Cash: d("1000")}, "0"},
		{"percent negative cash", PercentOfCash{Fraction: d("1")}, sig("1"), SizingInput{Cash: d("-1000"), Price: d("10")}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.policy.Size(tt.signal, tt.in)
			if !got.Equal(d(tt.want)) {
				t.Errorf("Size() = %s, want %s", got, tt.want)
			}
		})
	}
}
