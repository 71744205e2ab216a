package olsmr

import (
	"errors"
	"eventbacktester/internal/engine"
	"eventbacktester/types"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const ID = "olsmr"

var ErrNotAPair = errors.New("ols mean reversion needs exactly two symbols")

type Params struct {
	// Window is the number of closes regressed on each tick.
	Window int
	// ZEntry opens the spread, ZExit closes it.
	ZEntry float64
	ZExit  float64
}

func DefaultParams() Params {
	return Params{Window: 100, ZEntry: 3.0, ZExit: 0.5}
}

// Strategy trades the residual of a rolling no-intercept OLS fit of the first
// symbol's close on the second's. A z-score beyond ZEntry opens a long/short
// pair, a z-score back within ZExit closes it.
type Strategy struct {
	bars   engine.BarReader
	sink   engine.EventSink
	params Params
	y, x   string

	hedgeRatio  float64
	longMarket  bool
	shortMarket bool
}

func New(bars engine.BarReader, sink engine.EventSink, params Params) (*Strategy, error) {
	symbols := bars.Symbols()
	if len(symbols) != 2 {
		return nil, fmt.Errorf("got %d symbols: %w", len(symbols), ErrNotAPair)
	}
	if params.Window < 2 {
		return nil, fmt.Errorf("ols window %d must be at least 2", params.Window)
	}
	if params.ZExit < 0 || params.ZEntry <= params.ZExit {
		return nil, fmt.Errorf("z thresholds entry=%v exit=%v: entry must exceed exit", params.ZEntry, params.ZExit)
	}
	return &Strategy{
		bars:   bars,
		sink:   sink,
		params: params,
		y:      symbols[0],
		x:      symbols[1],
	}, nil
}

func (s *Strategy) Symbols() []string {
	return []string{s.y, s.x}
}

// HedgeRatio is the slope from the latest full window, zero before that.
func (s *Strategy) HedgeRatio() float64 {
	return s.hedgeRatio
}

func (s *Strategy) CalculateSignals(event types.MarketEvent) error {
	y, err := s.bars.LatestBarValues(s.y, types.FieldClose, s.params.Window)
	if err != nil {
		return err
	}
	x, err := s.bars.LatestBarValues(s.x, types.FieldClose, s.params.Window)
	if err != nil {
		return err
	}
	if len(y) < s.params.Window || len(x) < s.params.Window {
		return nil
	}

	hr, ok := olsSlope(y, x)
	if !ok {
		return nil
	}
	s.hedgeRatio = hr

	spread := make([]float64, len(y))
	for i := range y {
		spread[i] = y[i] - hr*x[i]
	}
	z, ok := lastZScore(spread)
	if !ok {
		return nil
	}
	s.emit(z, event)
	return nil
}

func (s *Strategy) emit(z float64, event types.MarketEvent) {
	yStrength, xStrength := legStrengths(math.Abs(s.hedgeRatio))
	ts := event.Timestamp

	var yDir, xDir types.Direction
	switch {
	case z <= -s.params.ZEntry && !s.longMarket:
		s.longMarket = true
		yDir, xDir = types.DirectionLong, types.DirectionShort
	case z >= s.params.ZEntry && !s.shortMarket:
		s.shortMarket = true
		yDir, xDir = types.DirectionShort, types.DirectionLong
	case math.Abs(z) <= s.params.ZExit && (s.longMarket || s.shortMarket):
		s.longMarket = false
		s.shortMarket = false
		yDir, xDir = types.DirectionExit, types.DirectionExit
		yStrength, xStrength = decimal.NewFromInt(1), decimal.NewFromInt(1)
	default:
		return
	}
	s.sink.Put(types.NewSignal(ID, s.y, yDir, yStrength, ts))
	s.sink.Put(types.NewSignal(ID, s.x, xDir, xStrength, ts))
}

// legStrengths keeps the y:x ratio at 1:hr with both legs in (0,1].
func legStrengths(hr float64) (decimal.Decimal, decimal.Decimal) {
	if hr == 0 || math.IsNaN(hr) || math.IsInf(hr, 0) {
		return decimal.NewFromInt(1), decimal.NewFromInt(1)
	}
	scale := math.Max(1, hr)
	y := decimal.NewFromFloat(1 / scale).Round(6)
	x := decimal.NewFromFloat(hr / scale).Round(6)
	if !x.IsPositive() {
		x = decimal.New(1, -6)
	}
	return y, x
}

// olsSlope fits y = b*x without an intercept.
func olsSlope(y, x []float64) (float64, bool) {
	var sxy, sxx float64
	for i := range y {
		sxy += x[i] * y[i]
		sxx += x[i] * x[i]
	}
	if sxx == 0 {
		return 0, false
	}
	return sxy / sxx, true
}

// lastZScore standardises the final element using the sample deviation.
func lastZScore(xs []float64) (float64, bool) {
	n := float64(len(xs))
	var sum float64
	for _, v := range xs {
		sum += v
	}
	mean := sum / n
	var ss float64
	for _, v := range xs {
		d := v - mean
		ss += d * d
	}
	std := math.Sqrt(ss / (n - 1))
	if std < 1e-12 || math.IsNaN(std) {
		return 0, false
	}
	return (xs[len(xs)-1] - mean) / std, true
}
