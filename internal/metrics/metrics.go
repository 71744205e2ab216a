package metrics

import (
	"eventbacktester/internal/engine"
	"eventbacktester/types"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder counts driver activity on its own registry so concurrent sweep
// runs never share counters.
type Recorder struct {
	registry *prometheus.Registry

	TicksTotal  prometheus.Counter
	EventsTotal *prometheus.CounterVec

	FinalEquity prometheus.Gauge
	TotalReturn prometheus.Gauge
	SharpeRatio prometheus.Gauge
	MaxDrawdown prometheus.Gauge
}

func NewRecorder(strategy string) *Recorder {
	labels := prometheus.Labels{"strategy": strategy}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		TicksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{Name: "backtest_ticks_total", Help: "Market ticks replayed", ConstLabels: labels},
		),
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "backtest_events_total", Help: "Events dispatched by kind", ConstLabels: labels},
			[]string{"kind"},
		),
		FinalEquity: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_final_equity", Help: "Total equity at the last tick", ConstLabels: labels},
		),
		TotalReturn: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_total_return", Help: "Total return as a fraction", ConstLabels: labels},
		),
		SharpeRatio: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_sharpe_ratio", Help: "Annualised Sharpe ratio", ConstLabels: labels},
		),
		MaxDrawdown: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "backtest_max_drawdown", Help: "Maximum drawdown as a fraction", ConstLabels: labels},
		),
	}
	r.registry.MustRegister(r.TicksTotal, r.EventsTotal, r.FinalEquity, r.TotalReturn, r.SharpeRatio, r.MaxDrawdown)
	return r
}

func (r *Recorder) TickProcessed() {
	r.TicksTotal.Inc()
}

func (r *Recorder) EventDispatched(kind types.EventKind) {
	r.EventsTotal.WithLabelValues(kind.String()).Inc()
}

func (r *Recorder) ObserveSummary(s engine.Summary) {
	r.FinalEquity.Set(s.FinalEquity.InexactFloat64())
	r.TotalReturn.Set(s.TotalReturn.InexactFloat64())
	r.SharpeRatio.Set(s.SharpeRatio)
	r.MaxDrawdown.Set(s.MaxDrawdown.InexactFloat64())
}

func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile dumps the registry in the exposition format, for the node
// exporter textfile collector or a plain diff between runs.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
