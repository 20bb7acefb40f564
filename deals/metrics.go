package deals

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts schedule builds. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Built         prometheus.Counter
	Failed        *prometheus.CounterVec
	Breakpoints   prometheus.Histogram
	AggregateRuns prometheus.Counter
}

// NewMetrics registers the engine's collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Built: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "revenue",
			Name:      "schedules_built_total",
			Help:      "Deal schedules built successfully.",
		}),
		Failed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "revenue",
			Name:      "schedules_failed_total",
			Help:      "Deal schedules rejected, by reason.",
		}, []string{"reason"}),
		Breakpoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "revenue",
			Name:      "schedule_breakpoints",
			Help:      "Breakpoints per built schedule.",
			Buckets:   []float64{0, 2, 4, 6, 8, 10, 20},
		}),
		AggregateRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "revenue",
			Name:      "aggregate_runs_total",
			Help:      "Aggregate series computations.",
		}),
	}
	reg.MustRegister(m.Built, m.Failed, m.Breakpoints, m.AggregateRuns)
	return m
}

func (m *Metrics) observe(r Result) {
	if m == nil {
		return
	}
	if r.Err != nil {
		m.Failed.WithLabelValues(failureReason(r.Err)).Inc()
		return
	}
	m.Built.Inc()
	m.Breakpoints.Observe(float64(len(r.Schedule.Breakpoints)))
}

func (m *Metrics) observeAggregate() {
	if m == nil {
		return
	}
	m.AggregateRuns.Inc()
}
