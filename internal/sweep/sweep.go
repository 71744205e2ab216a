// Package sweep runs one independent backtest per point of a parameter grid.
package sweep

import (
	"context"
	"encoding/csv"
	"eventbacktester/internal/engine"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"golang.org/x/sync/errgroup"
)

type ParamSet map[string]float64

type Result struct {
	Params  ParamSet
	Summary engine.Summary
}

// RunFunc performs a complete backtest for one parameter set. Runs share no
// mutable state, so RunFunc is called concurrently.
type RunFunc func(ctx context.Context, params ParamSet) (engine.Summary, error)

// Keys returns the grid's parameter names in sorted order.
func Keys(grid map[string][]float64) []string {
	keys := make([]string, 0, len(grid))
	for k := range grid {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Grid expands the cartesian product of grid. Keys vary in sorted order with
// the last key changing fastest; an empty grid yields a single empty set.
func Grid(grid map[string][]float64) []ParamSet {
	keys := Keys(grid)
	sets := []ParamSet{{}}
	for _, k := range keys {
		values := grid[k]
		next := make([]ParamSet, 0, len(sets)*len(values))
		for _, set := range sets {
			for _, v := range values {
				p := make(ParamSet, len(set)+1)
				for sk, sv := range set {
					p[sk] = sv
				}
				p[k] = v
				next = append(next, p)
			}
		}
		sets = next
	}
	return sets
}

// Run evaluates every set with at most parallelism runs in flight. Results
// keep the order of sets. The first failing run cancels those not yet started.
func Run(ctx context.Context, sets []ParamSet, parallelism int, run RunFunc) ([]Result, error) {
	if parallelism < 1 {
		parallelism = 1
	}
	results := make([]Result, len(sets))
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(parallelism)
	for i, set := range sets {
		group.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			summary, err := run(ctx, set)
			if err != nil {
				return fmt.Errorf("params %v: %w", set, err)
			}
			results[i] = Result{Params: set, Summary: summary}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func WriteCSVFile(path string, keys []string, results []Result) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := WriteCSV(f, keys, results); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteCSV writes one row per result: the parameter values in keys order
// followed by the headline statistics.
func WriteCSV(w io.Writer, keys []string, results []Result) error {
	cw := csv.NewWriter(w)
	header := append(append([]string(nil), keys...), "total_return", "sharpe", "max_drawdown", "drawdown_duration")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range results {
		row := make([]string, 0, len(header))
		for _, k := range keys {
			row = append(row, strconv.FormatFloat(r.Params[k], 'f', -1, 64))
		}
		row = append(row,
			r.Summary.TotalReturn.StringFixed(6),
			strconv.FormatFloat(r.Summary.SharpeRatio, 'f', 6, 64),
			r.Summary.MaxDrawdown.StringFixed(6),
			strconv.Itoa(r.Summary.DrawdownDuration),
		)
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
