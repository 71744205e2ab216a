// Package config loads backtest settings from YAML with BACKTEST_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var ErrInvalidConfig = errors.New("invalid config")

const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"

	SizingStrength      = "strength"
	SizingFixed         = "fixed"
	SizingPercentOfCash = "percent_of_cash"

	CommissionFlat               = "flat"
	CommissionBasisPoints        = "bps"
	CommissionInteractiveBrokers = "ib"
	CommissionPercent            = "percent"
)

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

type Config struct {
	Symbols           []string      `mapstructure:"symbols"`
	InitialCapital    float64       `mapstructure:"initial_capital"`
	Heartbeat         time.Duration `mapstructure:"heartbeat"`
	StartDate         string        `mapstructure:"start_date"`
	AllowShortSelling bool          `mapstructure:"allow_short_selling"`
	PeriodsPerYear    int           `mapstructure:"periods_per_year"`
	RiskFreeRate      float64       `mapstructure:"risk_free_rate"`

	Data      Data      `mapstructure:"data"`
	Strategy  Strategy  `mapstructure:"strategy"`
	Sizing    Sizing    `mapstructure:"sizing"`
	Execution Execution `mapstructure:"execution"`
	Report    Report    `mapstructure:"report"`
	Sweep     Sweep     `mapstructure:"sweep"`
	Log       Log       `mapstructure:"log"`
}

type Data struct {
	Source      string `mapstructure:"source"`
	Directory   string `mapstructure:"directory"`
	DatabaseURL string `mapstructure:"database_url"`
	Interval    string `mapstructure:"interval"`
	FillForward bool   `mapstructure:"fill_forward"`
}

type Strategy struct {
	Name   string             `mapstructure:"name"`
	Params map[string]float64 `mapstructure:"params"`
}

type Sizing struct {
	Policy   string  `mapstructure:"policy"`
	Unit     float64 `mapstructure:"unit"`
	Fraction float64 `mapstructure:"fraction"`
}

type Execution struct {
	Exchange   string  `mapstructure:"exchange"`
	Commission string  `mapstructure:"commission"`
	Fee        float64 `mapstructure:"fee"`
	Bps        float64 `mapstructure:"bps"`
	Rate       float64 `mapstructure:"rate"`
	Min        float64 `mapstructure:"min"`
	Max        float64 `mapstructure:"max"`
	Slippage   float64 `mapstructure:"slippage"`
}

// Report paths are optional; an empty path skips that output.
type Report struct {
	EquityCSV string `mapstructure:"equity_csv"`
	ChartHTML string `mapstructure:"chart_html"`
	Metrics   string `mapstructure:"metrics"`
}

type Sweep struct {
	Params      map[string][]float64 `mapstructure:"params"`
	Parallelism int                  `mapstructure:"parallelism"`
	Output      string               `mapstructure:"output"`
}

type Log struct {
	Level string `mapstructure:"level"`
}

// Load reads path (if non-empty), applies defaults and environment overrides
// and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("BACKTEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file failed (%s): %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	}); err != nil {
		return nil, fmt.Errorf("parsing config failed: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("symbols", []string{})
	v.SetDefault("initial_capital", 100000.0)
	v.SetDefault("heartbeat", "0s")
	v.SetDefault("start_date", "")
	v.SetDefault("allow_short_selling", true)
	v.SetDefault("periods_per_year", 252)
	v.SetDefault("risk_free_rate", 0.0)

	v.SetDefault("data.source", SourceCSV)
	v.SetDefault("data.directory", "data")
	v.SetDefault("data.database_url", "")
	v.SetDefault("data.interval", "D")
	v.SetDefault("data.fill_forward", false)

	v.SetDefault("strategy.name", "buyhold")

	v.SetDefault("sizing.policy", SizingStrength)
	v.SetDefault("sizing.unit", 100.0)
	v.SetDefault("sizing.fraction", 0.1)

	v.SetDefault("execution.exchange", "ARCA")
	v.SetDefault("execution.commission", CommissionFlat)
	v.SetDefault("execution.fee", 0.0)
	v.SetDefault("execution.bps", 0.0)
	v.SetDefault("execution.rate", 0.0005)
	v.SetDefault("execution.min", 1.70)
	v.SetDefault("execution.max", 39.0)
	v.SetDefault("execution.slippage", 0.0)

	v.SetDefault("report.equity_csv", "equity.csv")
	v.SetDefault("report.chart_html", "")
	v.SetDefault("report.metrics", "")

	v.SetDefault("sweep.parallelism", 4)
	v.SetDefault("sweep.output", "output.csv")

	v.SetDefault("log.level", "info")
}

func (c *Config) normalize() {
	symbols := make([]string, 0, len(c.Symbols))
	for _, s := range c.Symbols {
		// BACKTEST_SYMBOLS arrives as one space or comma separated string.
		for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == ' ' }) {
			symbols = append(symbols, strings.ToUpper(part))
		}
	}
	c.Symbols = symbols
	c.Data.Source = strings.ToLower(c.Data.Source)
	c.Sizing.Policy = strings.ToLower(c.Sizing.Policy)
	c.Execution.Commission = strings.ToLower(c.Execution.Commission)
	c.Strategy.Name = strings.ToLower(c.Strategy.Name)
}

// Start parses start_date. An empty date means no lower bound.
func (c *Config) Start() (time.Time, error) {
	if c.StartDate == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if ts, err := time.ParseInLocation(layout, c.StartDate, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("start_date %q: %w", c.StartDate, ErrInvalidConfig)
}

func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format+": %w", append(args, ErrInvalidConfig)...))
	}

	if len(c.Symbols) == 0 {
		invalid("symbols must not be empty")
	}
	seen := make(map[string]bool, len(c.Symbols))
	for _, s := range c.Symbols {
		if seen[s] {
			invalid("symbol %s listed twice", s)
		}
		seen[s] = true
	}
	if c.InitialCapital <= 0 {
		invalid("initial_capital must be positive, got %v", c.InitialCapital)
	}
	if c.Heartbeat < 0 {
		invalid("heartbeat must not be negative, got %s", c.Heartbeat)
	}
	if c.PeriodsPerYear <= 0 {
		invalid("periods_per_year must be positive, got %d", c.PeriodsPerYear)
	}
	if _, err := c.Start(); err != nil {
		errs = append(errs, err)
	}

	switch c.Data.Source {
	case SourceCSV:
		if c.Data.Directory == "" {
			invalid("data.directory is required for csv source")
		}
	case SourcePostgres:
		if c.Data.DatabaseURL == "" {
			invalid("data.database_url is required for postgres source")
		}
	default:
		invalid("data.source %q must be csv or postgres", c.Data.Source)
	}

	switch c.Sizing.Policy {
	case SizingStrength, SizingFixed:
		if c.Sizing.Unit <= 0 {
			invalid("sizing.unit must be positive, got %v", c.Sizing.Unit)
		}
	case SizingPercentOfCash:
		if c.Sizing.Fraction <= 0 || c.Sizing.Fraction > 1 {
			invalid("sizing.fraction must be in (0,1], got %v", c.Sizing.Fraction)
		}
	default:
		invalid("sizing.policy %q unknown", c.Sizing.Policy)
	}

	switch c.Execution.Commission {
	case CommissionFlat:
		if c.Execution.Fee < 0 {
			invalid("execution.fee must not be negative")
		}
	case CommissionBasisPoints:
		if c.Execution.Bps < 0 {
			invalid("execution.bps must not be negative")
		}
	case CommissionInteractiveBrokers:
	case CommissionPercent:
		if c.Execution.Rate < 0 || c.Execution.Min < 0 || c.Execution.Max < c.Execution.Min {
			invalid("execution.rate/min/max must be non-negative with min <= max")
		}
	default:
		invalid("execution.commission %q unknown", c.Execution.Commission)
	}
	if c.Execution.Slippage < 0 {
		invalid("execution.slippage must not be negative")
	}

	if c.Strategy.Name == "" {
		invalid("strategy.name is required")
	}
	if c.Sweep.Parallelism < 1 {
		invalid("sweep.parallelism must be at least 1, got %d", c.Sweep.Parallelism)
	}
	for k, values := range c.Sweep.Params {
		if len(values) == 0 {
			invalid("sweep.params.%s has no values", k)
		}
	}
	return errors.Join(errs...)
}
