package engine

import (
	"encoding/csv"
	"eventbacktester/types"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// WriteEquityCSVFile writes the equity curve to a CSV file at the given path.
func WriteEquityCSVFile(path string, curve []types.EquitySnapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create equity file: %w", err)
	}
	defer f.Close()

	if err := WriteEquityCSV(f, curve); err != nil {
		return err
	}
	return f.Close()
}

// WriteEquityCSV writes the equity curve to any io.Writer as CSV, one row per tick.
func WriteEquityCSV(w io.Writer, curve []types.EquitySnapshot) error {
	cw := csv.NewWriter(w)

	header := []string{
		"timestamp", // RFC3339
		"cash",
		"market_value",
		"commission",
		"total",
		"equity", // total / initial capital
		"returns",
		"drawdown",
		"drawdown_duration",
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, snap := range curve {
		record := []string{
			snap.Timestamp.Format(time.RFC3339),
			snap.Cash.String(),
			snap.MarketValue.String(),
			snap.Commission.String(),
			snap.Total.String(),
			snap.Equity.String(),
			snap.Returns.String(),
			snap.Drawdown.String(),
			strconv.Itoa(snap.DrawdownDuration),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
