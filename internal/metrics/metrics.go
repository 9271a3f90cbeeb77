// Package metrics exposes Prometheus instrumentation for the bot and the
// content pipeline. All methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "briefbot"

type Metrics struct {
	registry *prometheus.Registry

	CommandsTotal       *prometheus.CounterVec
	AcquisitionsTotal   *prometheus.CounterVec
	AcquisitionDuration *prometheus.HistogramVec
	ProbeFailures       prometheus.Counter
	CaptionFallbacks    prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		CommandsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Chat commands handled, by command and outcome.",
		}, []string{"command", "outcome"}),
		AcquisitionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "acquisitions_total",
			Help:      "Content acquisitions, by content kind and outcome.",
		}, []string{"kind", "outcome"}),
		AcquisitionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "acquisition_duration_seconds",
			Help:      "Time spent acquiring content, by content kind.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 180, 600},
		}, []string{"kind"}),
		ProbeFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "probe_failures_total",
			Help:      "Content-type probes that failed and were treated as unknown.",
		}),
		CaptionFallbacks: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "caption_fallbacks_total",
			Help:      "Videos without captions that fell back to speech-to-text.",
		}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Gatherer() prometheus.Gatherer {
	if m == nil {
		return prometheus.NewRegistry()
	}
	return m.registry
}

func (m *Metrics) ObserveCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.CommandsTotal.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) ObserveAcquisition(kind, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.AcquisitionsTotal.WithLabelValues(kind, outcome).Inc()
	m.AcquisitionDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveProbeFailure() {
	if m == nil {
		return
	}
	m.ProbeFailures.Inc()
}

func (m *Metrics) ObserveCaptionFallback() {
	if m == nil {
		return
	}
	m.CaptionFallbacks.Inc()
}
