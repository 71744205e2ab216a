// Package app wires configuration, data and a strategy into runnable backtests.
package app

import (
	"context"
	"eventbacktester/internal/config"
	"eventbacktester/internal/engine"
	"eventbacktester/internal/repository"
	"eventbacktester/internal/sweep"
	"eventbacktester/strategies"
	"eventbacktester/types"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Options are per-run settings that do not come from the config file.
type Options struct {
	Logger       zerolog.Logger
	Recorder     engine.Recorder
	ShowProgress bool
	Heartbeat    time.Duration
}

// Run is one assembled backtest together with the components callers may
// want to inspect afterwards.
type Run struct {
	Backtest  *engine.Backtest
	Data      *engine.HistoricDataHandler
	Portfolio *engine.NaivePortfolio
	Strategy  engine.Strategy
}

// LoadBars reads every configured symbol from the configured source.
func LoadBars(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (map[string][]types.Bar, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	var source engine.BarSource
	switch cfg.Data.Source {
	case config.SourcePostgres:
		interval, err := types.ParseInterval(cfg.Data.Interval)
		if err != nil {
			return nil, err
		}
		db, err := repository.NewDatabase(ctx, cfg.Data.DatabaseURL, interval)
		if err != nil {
			return nil, fmt.Errorf("connect bar database: %w", err)
		}
		defer db.Close()
		source = db
	default:
		source = repository.NewCSVDirectory(cfg.Data.Directory)
	}

	bars, err := engine.LoadBars(ctx, source, cfg.Symbols, start)
	if err != nil {
		return nil, err
	}
	for _, symbol := range cfg.Symbols {
		logger.Info().Str("source", cfg.Data.Source).Str("symbol", symbol).Int("bars", len(bars[symbol])).Msg("bars loaded")
	}
	return bars, nil
}

// Build assembles a fresh backtest over bars. bars is only read, so one
// preloaded map can back many concurrent runs.
func Build(cfg *config.Config, bars map[string][]types.Bar, params map[string]float64, opts Options) (*Run, error) {
	start, err := cfg.Start()
	if err != nil {
		return nil, err
	}
	queue := engine.NewEventQueue()

	data, err := engine.NewHistoricDataHandler(queue, bars,
		engine.NewDataConfig(cfg.Symbols, start, cfg.Data.FillForward))
	if err != nil {
		return nil, fmt.Errorf("data handler: %w", err)
	}

	strat, err := strategies.New(cfg.Strategy.Name, data, queue, params)
	if err != nil {
		return nil, fmt.Errorf("strategy %s: %w", cfg.Strategy.Name, err)
	}

	port, err := engine.NewNaivePortfolio(data, queue, engine.NewPortfolioConfig(
		decimal.NewFromFloat(cfg.InitialCapital),
		cfg.AllowShortSelling,
		Sizing(cfg.Sizing),
	))
	if err != nil {
		return nil, fmt.Errorf("portfolio: %w", err)
	}

	exec := engine.NewSimulatedExecutionHandler(data, queue, engine.NewExecutionConfig(
		cfg.Execution.Exchange,
		Commission(cfg.Execution),
		decimal.NewFromFloat(cfg.Execution.Slippage),
	))

	btCfg := engine.NewBacktestConfig(
		opts.Heartbeat,
		cfg.PeriodsPerYear,
		decimal.NewFromFloat(cfg.RiskFreeRate),
		opts.ShowProgress,
	).WithLogger(opts.Logger).WithRecorder(opts.Recorder)

	return &Run{
		Backtest:  engine.NewBacktest(queue, data, strat, port, exec, btCfg),
		Data:      data,
		Portfolio: port,
		Strategy:  strat,
	}, nil
}

func Sizing(cfg config.Sizing) engine.SizingPolicy {
	switch cfg.Policy {
	case config.SizingFixed:
		return engine.FixedQuantity{Unit: decimal.NewFromFloat(cfg.Unit)}
	case config.SizingPercentOfCash:
		return engine.PercentOfCash{Fraction: decimal.NewFromFloat(cfg.Fraction)}
	default:
		return engine.StrengthWeighted{Unit: decimal.NewFromFloat(cfg.Unit)}
	}
}

func Commission(cfg config.Execution) engine.CommissionModel {
	switch cfg.Commission {
	case config.CommissionBasisPoints:
		return engine.BasisPoints{Bps: decimal.NewFromFloat(cfg.Bps)}
	case config.CommissionInteractiveBrokers:
		return engine.InteractiveBrokers{}
	case config.CommissionPercent:
		return engine.PercentWithBounds{
			Rate: decimal.NewFromFloat(cfg.Rate),
			Min:  decimal.NewFromFloat(cfg.Min),
			Max:  decimal.NewFromFloat(cfg.Max),
		}
	default:
		return engine.FlatFee{Fee: decimal.NewFromFloat(cfg.Fee)}
	}
}

// Sweep runs the configured grid over preloaded bars. Each set overrides the
// matching keys of strategy.params.
func Sweep(ctx context.Context, cfg *config.Config, bars map[string][]types.Bar, logger zerolog.Logger) ([]sweep.Result, error) {
	sets := sweep.Grid(cfg.Sweep.Params)
	logger.Info().Int("runs", len(sets)).Int("parallelism", cfg.Sweep.Parallelism).Msg("sweep started")

	return sweep.Run(ctx, sets, cfg.Sweep.Parallelism, func(_ context.Context, set sweep.ParamSet) (engine.Summary, error) {
		params := make(map[string]float64, len(cfg.Strategy.Params)+len(set))
		for k, v := range cfg.Strategy.Params {
			params[k] = v
		}
		for k, v := range set {
			params[k] = v
		}
		run, err := Build(cfg, bars, params, Options{Logger: logger.With().Interface("params", set).Logger()})
		if err != nil {
			return engine.Summary{}, err
		}
		return run.Backtest.Run()
	})
}
