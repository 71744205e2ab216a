package engine

import (
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const DefaultPeriodsPerYear = 252

type DataConfig struct {
	symbols     []string
	start       time.Time
	fillForward bool
}

func NewDataConfig(symbols []string, start time.Time, fillForward bool) *DataConfig {
	return &DataConfig{
		symbols:     symbols,
		start:       start,
		fillForward: fillForward,
	}
}

type PortfolioConfig struct {
	initialCapital    decimal.Decimal
	allowShortSelling bool
	sizing            SizingPolicy
}

// NewPortfolioConfig falls back to StrengthWeighted{Unit: 100} when sizing is nil.
func NewPortfolioConfig(initialCapital decimal.Decimal, allowShortSelling bool, sizing SizingPolicy) *PortfolioConfig {
	if sizing == nil {
		sizing = StrengthWeighted{Unit: decimal.NewFromInt(100)}
	}
	return &PortfolioConfig{
		initialCapital:    initialCapital,
		allowShortSelling: allowShortSelling,
		sizing:            sizing,
	}
}

type ExecutionConfig struct {
	exchange   string
	commission CommissionModel
	slippage   decimal.Decimal
}

func NewExecutionConfig(exchange string, commission CommissionModel, slippage decimal.Decimal) *ExecutionConfig {
	if exchange == "" {
		exchange = "ARCA"
	}
	if commission == nil {
		commission = FlatFee{}
	}
	return &ExecutionConfig{
		exchange:   exchange,
		commission: commission,
		slippage:   slippage,
	}
}

type BacktestConfig struct {
	heartbeat      time.Duration
	periodsPerYear int
	riskFreeRate   decimal.Decimal
	showProgress   bool
	logger         zerolog.Logger
	recorder       Recorder
}

func NewBacktestConfig(heartbeat time.Duration, periodsPerYear int, riskFreeRate decimal.Decimal, showProgress bool) *BacktestConfig {
	if periodsPerYear <= 0 {
		periodsPerYear = DefaultPeriodsPerYear
	}
	return &BacktestConfig{
		heartbeat:      heartbeat,
		periodsPerYear: periodsPerYear,
		riskFreeRate:   riskFreeRate,
		showProgress:   showProgress,
		logger:         zerolog.Nop(),
		recorder:       nopRecorder{},
	}
}

func (c *BacktestConfig) WithLogger(logger zerolog.Logger) *BacktestConfig {
	c.logger = logger
	return c
}

func (c *BacktestConfig) WithRecorder(r Recorder) *BacktestConfig {
	if r == nil {
		r = nopRecorder{}
	}
	c.recorder = r
	return c
}
