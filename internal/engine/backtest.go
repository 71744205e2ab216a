package engine

import (
	"errors"
	"eventbacktester/types"
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownEvent         = errors.New("unknown event type")
	ErrDuplicateMarketEvent = errors.New("more than one market event in a tick")
	ErrAlreadyRun           = errors.New("backtest already run")
)

type runState int

const (
	stateRunning runState = iota
	stateDraining
	stateFinished
)

func (s runState) String() string {
	switch s {
	case stateRunning:
		return "RUNNING"
	case stateDraining:
		return "DRAINING"
	case stateFinished:
		return "FINISHED"
	}
	return "UNKNOWN"
}

// Backtest drives one run: request a tick from the data handler, then drain
// the queue completely before asking for the next one.
type Backtest struct {
	queue     *EventQueue
	data      DataHandler
	strategy  Strategy
	portfolio Portfolio
	execution ExecutionHandler
	cfg       *BacktestConfig

	state  runState
	tick   int
	counts map[types.EventKind]int
	ran    bool
}

// NewBacktest takes the queue the components were built with. From here on
// the backtest is its only reader.
func NewBacktest(
	queue *EventQueue,
	data DataHandler,
	strat Strategy,
	port Portfolio,
	exec ExecutionHandler,
	cfg *BacktestConfig,
) *Backtest {
	if cfg == nil {
		cfg = NewBacktestConfig(0, DefaultPeriodsPerYear, decimal.Zero, false)
	}
	return &Backtest{
		queue:     queue,
		data:      data,
		strategy:  strat,
		portfolio: port,
		execution: exec,
		cfg:       cfg,
		state:     stateRunning,
		counts:    make(map[types.EventKind]int),
	}
}

// Run simulates until the data handler is exhausted and returns the summary
// statistics of the equity curve. Any component error aborts the run.
func (b *Backtest) Run() (Summary, error) {
	if b.ran {
		return Summary{}, ErrAlreadyRun
	}
	b.ran = true

	log := b.cfg.logger
	bar := b.initProgressBar()
	defer bar.Finish()

	log.Info().
		Strs("symbols", b.strategy.Symbols()).
		Dur("heartbeat", b.cfg.heartbeat).
		Msg("backtest started")

	for b.state != stateFinished {
		switch b.state {
		case stateRunning:
			b.data.UpdateBars()
			if !b.data.ContinueBacktest() {
				b.state = stateFinished
				continue
			}
			b.state = stateDraining

		case stateDraining:
			if err := b.drain(); err != nil {
				log.Error().Err(err).Int("tick", b.tick+1).Msg("backtest aborted")
				return Summary{}, err
			}
			b.tick++
			b.cfg.recorder.TickProcessed()
			_ = bar.Add(1)
			b.state = stateRunning
			if b.cfg.heartbeat > 0 {
				time.Sleep(b.cfg.heartbeat)
			}
		}
	}

	summary := newSummary(b.portfolio, b.counts, b.cfg.periodsPerYear, b.cfg.riskFreeRate)
	log.Info().
		Int("ticks", summary.Ticks).
		Int("fills", summary.Fills).
		Str("total_return", summary.TotalReturn.String()).
		Float64("sharpe", summary.SharpeRatio).
		Str("max_drawdown", summary.MaxDrawdown.String()).
		Int("drawdown_duration", summary.DrawdownDuration).
		Msg("backtest finished")
	return summary, nil
}

func (b *Backtest) drain() error {
	sawMarket := false
	for {
		event, ok := b.queue.Get()
		if !ok {
			return nil
		}
		if event != nil && event.Kind() == types.KindMarket {
			if sawMarket {
				return fmt.Errorf("tick %d: %w", b.tick+1, ErrDuplicateMarketEvent)
			}
			sawMarket = true
		}
		if err := b.dispatch(event); err != nil {
			return fmt.Errorf("tick %d: %w", b.tick+1, err)
		}
	}
}

func (b *Backtest) dispatch(event types.Event) error {
	var err error
	switch e := event.(type) {
	case types.MarketEvent:
		if err = b.strategy.CalculateSignals(e); err == nil {
			err = b.portfolio.UpdateTimeIndex(e)
		}
	case types.SignalEvent:
		err = b.portfolio.UpdateSignal(e)
	case types.OrderEvent:
		err = b.execution.ExecuteOrder(e)
	case types.FillEvent:
		err = b.portfolio.UpdateFill(e)
	default:
		return fmt.Errorf("%T: %w", event, ErrUnknownEvent)
	}
	if err != nil {
		return fmt.Errorf("%s event at %s: %w", event.Kind(), event.Time().Format(time.RFC3339), err)
	}

	b.counts[event.Kind()]++
	b.cfg.recorder.EventDispatched(event.Kind())
	b.cfg.logger.Debug().
		Str("kind", event.Kind().String()).
		Time("time", event.Time()).
		Msg("event dispatched")
	return nil
}

// State reports where the run loop is. It is FINISHED once Run has returned
// successfully.
func (b *Backtest) State() string {
	return b.state.String()
}

// Portfolio exposes the portfolio the backtest was built with, for reporting.
func (b *Backtest) Portfolio() Portfolio {
	return b.portfolio
}

type tickCounter interface {
	Ticks() int
}

func (b *Backtest) initProgressBar() *progressbar.ProgressBar {
	maxTicks := -1
	if tc, ok := b.data.(tickCounter); ok {
		maxTicks = tc.Ticks()
	}
	if !b.cfg.showProgress {
		return progressbar.DefaultSilent(int64(maxTicks))
	}
	return progressbar.NewOptions(maxTicks,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetElapsedTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetDescription("Backtesting in progress..."),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}))
}
