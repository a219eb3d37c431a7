// Package metrics holds the agent's self-telemetry on a private registry,
// exposed by internal/server. Only agent health is tracked here; the
// collected data itself flows through the bus to the configured outputs.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry keeps agent metrics separate from the default global registry so
// tests and embedders control exactly what is exported.
var Registry = prometheus.NewRegistry()

var (
	TicksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "item_ticks_total",
		Help:      "Scheduler ticks per item, including failed ones.",
	}, []string{"item"})

	TickFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "item_tick_failures_total",
		Help:      "Ticks that produced no result because the source failed.",
	}, []string{"item"})

	ResultsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "results_published_total",
		Help:      "Results published onto the bus.",
	})

	BusLagDrops = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "bus_lag_dropped_total",
		Help:      "Results a sink missed because it lagged past the bus capacity.",
	}, []string{"sink"})

	SinkWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "sink_writes_total",
		Help:      "Results persisted per sink.",
	}, []string{"sink"})

	SinkErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "probe_agent",
		Name:      "sink_write_errors_total",
		Help:      "Persist failures per sink; the sink keeps consuming.",
	}, []string{"sink"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		TicksTotal,
		TickFailures,
		ResultsPublished,
		BusLagDrops,
		SinkWrites,
		SinkErrors,
	)
}
