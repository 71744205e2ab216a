// Package strategies builds the reference strategies by name so the CLI and
// the grid search can pick one from configuration.
package strategies

import (
	"errors"
	"eventbacktester/internal/engine"
	"eventbacktester/strategies/buyhold"
	"eventbacktester/strategies/donchian"
	"eventbacktester/strategies/olsmr"
	"fmt"
	"math"
	"sort"
)

var (
	ErrUnknownStrategy = errors.New("unknown strategy")
	ErrUnknownParam    = errors.New("unknown strategy parameter")
)

// Names lists the strategies New understands.
func Names() []string {
	return []string{buyhold.ID, donchian.ID, olsmr.ID}
}

// New constructs the named strategy. Params are keyed by their config names;
// anything not given keeps its default.
func New(name string, bars engine.BarReader, sink engine.EventSink, params map[string]float64) (engine.Strategy, error) {
	switch name {
	case buyhold.ID:
		if err := checkKeys(params); err != nil {
			return nil, err
		}
		return buyhold.New(bars, sink), nil

	case olsmr.ID:
		p := olsmr.DefaultParams()
		if err := checkKeys(params, "ols_win", "z_entry", "z_high", "z_exit", "z_low"); err != nil {
			return nil, err
		}
		if v, ok := params["ols_win"]; ok {
			p.Window = int(math.Round(v))
		}
		// z_high/z_low are the names used by the original sweep scripts.
		if v, ok := first(params, "z_entry", "z_high"); ok {
			p.ZEntry = v
		}
		if v, ok := first(params, "z_exit", "z_low"); ok {
			p.ZExit = v
		}
		return olsmr.New(bars, sink, p)

	case donchian.ID:
		p := donchian.DefaultParams()
		if err := checkKeys(params, "window", "atr_period", "atr_multiple"); err != nil {
			return nil, err
		}
		if v, ok := params["window"]; ok {
			p.Window = int(math.Round(v))
		}
		if v, ok := params["atr_period"]; ok {
			p.ATRPeriod = int(math.Round(v))
		}
		if v, ok := params["atr_multiple"]; ok {
			p.ATRMultiple = v
		}
		return donchian.New(bars, sink, p)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownStrategy)
}

func first(params map[string]float64, keys ...string) (float64, bool) {
	for _, k := range keys {
		if v, ok := params[k]; ok {
			return v, true
		}
	}
	return 0, false
}

func checkKeys(params map[string]float64, allowed ...string) error {
	known := make(map[string]struct{}, len(allowed))
	for _, k := range allowed {
		known[k] = struct{}{}
	}
	var unknown []string
	for k := range params {
		if _, ok := known[k]; !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) == 0 {
		return nil
	}
	sort.Strings(unknown)
	return fmt.Errorf("%v: %w", unknown, ErrUnknownParam)
}
