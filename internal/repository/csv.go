package repository

import (
	"context"
	"encoding/csv"
	"errors"
	"eventbacktester/types"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrMissingColumn = errors.New("missing csv column")
	ErrBadRow        = errors.New("malformed csv row")
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// headerAliases maps accepted header spellings to a canonical column.
var headerAliases = map[string]string{
	"datetime":  "timestamp",
	"date":      "timestamp",
	"time":      "timestamp",
	"timestamp": "timestamp",
	"open":      "open",
	"high":      "high",
	"low":       "low",
	"close":     "close",
	"adj_close": "adj_close",
	"adj close": "adj_close",
	"adjclose":  "adj_close",
	"volume":    "volume",
}

// CSVDirectory reads one <SYMBOL>.csv file per symbol from Dir.
type CSVDirectory struct {
	Dir string
}

func NewCSVDirectory(dir string) *CSVDirectory {
	return &CSVDirectory{Dir: dir}
}

func (c *CSVDirectory) LoadBars(_ context.Context, symbol string, start time.Time) ([]types.Bar, error) {
	f, err := os.Open(filepath.Join(c.Dir, symbol+".csv"))
	if err != nil {
		return nil, fmt.Errorf("open bars for %s: %w", symbol, err)
	}
	defer f.Close()

	bars, err := ParseBarsCSV(f, symbol)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", symbol, err)
	}
	if start.IsZero() {
		return bars, nil
	}
	out := bars[:0]
	for _, b := range bars {
		if !b.Timestamp.Before(start) {
			out = append(out, b)
		}
	}
	return out, nil
}

// ParseBarsCSV reads OHLCV rows with a header line. A missing adjusted close
// column falls back to close, a missing volume column to zero.
func ParseBarsCSV(r io.Reader, symbol string) ([]types.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoCandles
		}
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := headerAliases[key]; ok {
			if _, dup := cols[canon]; !dup {
				cols[canon] = i
			}
		}
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("%s: %w", required, ErrMissingColumn)
		}
	}

	var bars []types.Bar
	line := 1
	for {
		record, err := cr.Read()
		line++
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, ErrBadRow, err)
		}
		bar, err := parseRecord(record, cols)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w: %v", line, ErrBadRow, err)
		}
		bar.Symbol = symbol
		bars = append(bars, bar)
	}
	if len(bars) == 0 {
		return nil, ErrNoCandles
	}
	return bars, nil
}

func parseRecord(record []string, cols map[string]int) (types.Bar, error) {
	var bar types.Bar
	field := func(name string) (string, bool) {
		i, ok := cols[name]
		if !ok || i >= len(record) {
			return "", false
		}
		return strings.TrimSpace(record[i]), true
	}

	raw, _ := field("timestamp")
	ts, err := parseTimestamp(raw)
	if err != nil {
		return bar, err
	}
	bar.Timestamp = ts

	targets := []struct {
		name     string
		dst      *decimal.Decimal
		optional bool
	}{
		{"open", &bar.Open, false},
		{"high", &bar.High, false},
		{"low", &bar.Low, false},
		{"close", &bar.Close, false},
		{"adj_close", &bar.AdjClose, true},
		{"volume", &bar.Volume, true},
	}
	for _, t := range targets {
		raw, ok := field(t.name)
		if !ok && t.optional {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return bar, fmt.Errorf("%s %q: %v", t.name, raw, err)
		}
		*t.dst = d
	}
	if _, ok := cols["adj_close"]; !ok {
		bar.AdjClose = bar.Close
	}
	return bar, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", raw)
}
