// Package chart renders the equity curve as a standalone HTML page.
package chart

import (
	"bytes"
	"errors"
	"eventbacktester/types"
	"fmt"
	"io"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/shopspring/decimal"
)

var ErrEmptyCurve = errors.New("equity curve is empty")

var hundred = decimal.NewFromInt(100)

const (
	chartWidth   = "1200px"
	equityHeight = "420px"
	ddHeight     = "220px"
	colorEquity  = "#2f7ed8"
	colorDD      = "#d9534f"
)

// Render writes an equity chart and a drawdown chart for curve to w.
func Render(w io.Writer, title string, curve []types.EquitySnapshot) error {
	if len(curve) == 0 {
		return ErrEmptyCurve
	}
	xAxis := make([]string, len(curve))
	equity := make([]opts.LineData, len(curve))
	drawdown := make([]opts.LineData, len(curve))
	for i, snap := range curve {
		xAxis[i] = snap.Timestamp.Format("2006-01-02 15:04")
		equity[i] = opts.LineData{Value: snap.Total.InexactFloat64()}
		drawdown[i] = opts.LineData{Value: -snap.Drawdown.Mul(hundred).InexactFloat64()}
	}

	page := components.NewPage()
	page.SetLayout(components.PageFlexLayout)
	page.PageTitle = title
	page.AddCharts(
		lineChart(title, "Portfolio value", equityHeight, xAxis, equity, colorEquity),
		lineChart("Drawdown %", "Drawdown", ddHeight, xAxis, drawdown, colorDD),
	)
	return page.Render(w)
}

func RenderFile(path, title string, curve []types.EquitySnapshot) error {
	var buf bytes.Buffer
	if err := Render(&buf, title, curve); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write chart %s: %w", path, err)
	}
	return nil
}

func lineChart(title, series, height string, xAxis []string, data []opts.LineData, color string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: height}),
		charts.WithTitleOpts(opts.Title{Title: title, Left: "left"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", XAxisIndex: []int{0}}),
		charts.WithYAxisOpts(opts.YAxis{Scale: opts.Bool(true)}),
	)
	line.SetXAxis(xAxis)
	line.AddSeries(series, data,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithLineStyleOpts(opts.LineStyle{Color: color, Width: 2}),
	)
	return line
}
