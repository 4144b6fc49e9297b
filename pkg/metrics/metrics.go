// Package metrics exposes loop, sequencer and alignment counters in the
// Prometheus text format.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/apexftc/go-auton/pkg/align"
	"github.com/apexftc/go-auton/pkg/auto"
)

const namespace = "auton"

// Metrics owns a private registry so tests and multiple opmodes never
// collide on the global one.
type Metrics struct {
	registry *prometheus.Registry

	loopTicks    prometheus.Counter
	loopOverruns prometheus.Counter
	loopDuration prometheus.Histogram

	transitions *prometheus.CounterVec
	stepSeconds *prometheus.HistogramVec

	alignTicks  *prometheus.CounterVec
	alignErrors *prometheus.GaugeVec

	voltage prometheus.Gauge
}

// New registers every collector on a fresh registry. Go runtime
// collectors are included when withRuntime is set.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		loopTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "loop", Name: "ticks_total",
			Help: "Loop iterations executed.",
		}),
		loopOverruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "loop", Name: "overruns_total",
			Help: "Loop iterations that took longer than the loop period.",
		}),
		loopDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "loop", Name: "duration_seconds",
			Help:    "Time spent inside one loop iteration.",
			Buckets: []float64{.001, .002, .005, .01, .015, .02, .03, .05, .1},
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "sequencer", Name: "transitions_total",
			Help: "State transitions by routine and destination state.",
		}, []string{"routine", "to"}),
		stepSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "sequencer", Name: "step_seconds",
			Help:    "Time spent in a state before leaving it.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"routine", "state"}),
		alignTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "align", Name: "ticks_total",
			Help: "Alignment controller ticks by outcome.",
		}, []string{"status"}),
		alignErrors: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "align", Name: "error",
			Help: "Latest raw alignment error per axis.",
		}, []string{"axis"}),
		voltage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "battery_volts",
			Help: "Latest battery voltage report.",
		}),
	}
	m.registry.MustRegister(
		m.loopTicks, m.loopOverruns, m.loopDuration,
		m.transitions, m.stepSeconds,
		m.alignTicks, m.alignErrors, m.voltage,
	)
	if withRuntime {
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the registry for scraping or testing.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveTick records one loop iteration against the loop period.
func (m *Metrics) ObserveTick(took, period time.Duration) {
	m.loopTicks.Inc()
	m.loopDuration.Observe(took.Seconds())
	if period > 0 && took > period {
		m.loopOverruns.Inc()
	}
}

// ObserveAlign records the outcome of one alignment tick.
func (m *Metrics) ObserveAlign(cmd align.Command) {
	m.alignTicks.WithLabelValues(cmd.Status.String()).Inc()
	m.alignErrors.WithLabelValues("forward").Set(cmd.Errors.Forward)
	m.alignErrors.WithLabelValues("strafe").Set(cmd.Errors.Strafe)
	m.alignErrors.WithLabelValues("turn").Set(cmd.Errors.Turn)
}

// SetVoltage records a battery voltage report.
func (m *Metrics) SetVoltage(v float64) { m.voltage.Set(v) }

// Observer returns a sequencer observer counting transitions of the
// named routine and timing each state it leaves.
func (m *Metrics) Observer(routine string) auto.Observer {
	var last *auto.Transition
	return auto.ObserverFunc(func(t auto.Transition) {
		m.transitions.WithLabelValues(routine, string(t.To)).Inc()
		// INIT is entered before the opmode timer starts, so its span is
		// negative and skipped.
		if last != nil && last.To == t.From && t.At >= last.At {
			m.stepSeconds.WithLabelValues(routine, string(t.From)).Observe((t.At - last.At).Seconds())
		}
		tr := t
		last = &tr
	})
}
