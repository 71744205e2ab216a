package main

import (
	"context"
	"eventbacktester/internal/app"
	"eventbacktester/internal/chart"
	"eventbacktester/internal/config"
	"eventbacktester/internal/engine"
	"eventbacktester/internal/logging"
	"eventbacktester/internal/metrics"
	"eventbacktester/internal/sweep"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

var (
	configPath   string
	logLevel     string
	showProgress bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := cli.NewApp()
	cliApp.Name = "backtester"
	cliApp.Usage = "event-driven backtests over historical bars"
	cliApp.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Aliases:     []string{"c"},
			Value:       "backtest.yaml",
			Usage:       "path to the YAML config file",
			Destination: &configPath,
		},
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "overrides log.level from the config",
			Destination: &logLevel,
		},
		&cli.BoolFlag{
			Name:        "progress",
			Usage:       "show a progress bar while replaying bars",
			Destination: &showProgress,
		},
	}
	cliApp.Commands = []*cli.Command{
		runCommand,
		sweepCommand,
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

var runCommand = &cli.Command{
	Name:   "run",
	Usage:  "runs a single backtest, prints its summary and writes the reports",
	Action: runBacktest,
}

var sweepCommand = &cli.Command{
	Name:   "sweep",
	Usage:  "runs one backtest per point of sweep.params and writes a results csv",
	Action: runSweep,
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, logging.New(cfg.Log.Level), nil
}

func runBacktest(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	bars, err := app.LoadBars(c.Context, cfg, logger)
	if err != nil {
		return err
	}

	recorder := metrics.NewRecorder(cfg.Strategy.Name)
	run, err := app.Build(cfg, bars, cfg.Strategy.Params, app.Options{
		Logger:       logger,
		Recorder:     recorder,
		ShowProgress: showProgress,
		Heartbeat:    cfg.Heartbeat,
	})
	if err != nil {
		return err
	}
	summary, err := run.Backtest.Run()
	if err != nil {
		return err
	}
	engine.PrintSummary(os.Stdout, summary)

	curve := run.Portfolio.EquityCurve()
	if path := cfg.Report.EquityCSV; path != "" {
		if err := engine.WriteEquityCSVFile(path, curve); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("equity curve written")
	}
	if path := cfg.Report.ChartHTML; path != "" {
		title := fmt.Sprintf("%s %s", cfg.Strategy.Name, strings.Join(cfg.Symbols, "/"))
		if err := chart.RenderFile(path, title, curve); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("equity chart written")
	}
	if path := cfg.Report.Metrics; path != "" {
		recorder.ObserveSummary(summary)
		if err := recorder.WriteTextfile(path); err != nil {
			return err
		}
		logger.Info().Str("path", path).Msg("metrics written")
	}
	return nil
}

func runSweep(c *cli.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	bars, err := app.LoadBars(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	results, err := app.Sweep(c.Context, cfg, bars, logger)
	if err != nil {
		return err
	}

	keys := sweep.Keys(cfg.Sweep.Params)
	if err := sweep.WriteCSV(os.Stdout, keys, results); err != nil {
		return err
	}
	if path := cfg.Sweep.Output; path != "" {
		if err := sweep.WriteCSVFile(path, keys, results); err != nil {
			return err
		}
		logger.Info().Str("path", path).Int("runs", len(results)).Msg("sweep results written")
	}
	return nil
}
