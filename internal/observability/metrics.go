package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels shared by the outcome counters.
const (
	OutcomeOK       = "ok"
	OutcomeError    = "error"
	OutcomeSkipped  = "skipped"
	OutcomeTimeout  = "timeout"
	OutcomeRejected = "rejected"
)

// Metrics groups all Prometheus instruments used by the service.
// Each Metrics owns its registry so several servers can coexist in one process.
type Metrics struct {
	registry *prometheus.Registry
	latency  *LatencyWindow

	ActiveSessions    prometheus.Gauge
	SessionEvents     *prometheus.CounterVec
	WSMessages        *prometheus.CounterVec
	Completions       *prometheus.CounterVec
	CompletionLatency prometheus.Histogram
	Uploads           *prometheus.CounterVec
	VoiceCaptures     *prometheus.CounterVec
	Exports           *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		latency:  NewLatencyWindow(256),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Number of active chat sessions.",
		}),
		SessionEvents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_events_total",
			Help:      "Session events by type.",
		}, []string{"event"}),
		WSMessages: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ws_messages_total",
			Help:      "WebSocket messages by direction and type.",
		}, []string{"direction", "type"}),
		Completions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completions_total",
			Help:      "AI completion requests by outcome.",
		}, []string{"outcome"}),
		CompletionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_ms",
			Help:      "Latency of AI completion calls in milliseconds.",
			Buckets:   []float64{250, 500, 1000, 2000, 4000, 8000, 16000, 32000},
		}),
		Uploads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "File uploads by outcome.",
		}, []string{"outcome"}),
		VoiceCaptures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "voice_captures_total",
			Help:      "Voice captures by outcome.",
		}, []string{"outcome"}),
		Exports: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "exports_total",
			Help:      "Transcript exports by archive outcome.",
		}, []string{"archive"}),
	}
}

func (m *Metrics) ObserveCompletion(outcome string, d time.Duration) {
	m.Completions.WithLabelValues(outcome).Inc()
	if outcome == OutcomeSkipped || outcome == OutcomeRejected {
		return
	}
	m.CompletionLatency.Observe(float64(d.Milliseconds()))
	m.latency.Observe(StageCompletion, d.Milliseconds())
	if outcome != OutcomeOK {
		m.latency.ObserveIndicator("completion_" + outcome)
	}
}

func (m *Metrics) ObserveUpload(outcome string, d time.Duration) {
	m.Uploads.WithLabelValues(outcome).Inc()
	m.latency.Observe(StageUpload, d.Milliseconds())
	if outcome != OutcomeOK {
		m.latency.ObserveIndicator("upload_" + outcome)
	}
}

func (m *Metrics) ObserveVoiceCapture(outcome string, d time.Duration) {
	m.VoiceCaptures.WithLabelValues(outcome).Inc()
	if outcome == OutcomeOK {
		m.latency.Observe(StageVoiceCapture, d.Milliseconds())
		return
	}
	m.latency.ObserveIndicator("voice_" + outcome)
}

// LatencySnapshot summarizes recent latencies per stage.
func (m *Metrics) LatencySnapshot() LatencySnapshot {
	return m.latency.Snapshot()
}

func (m *Metrics) ResetLatency() {
	m.latency.Reset()
}

// Handler serves the metrics registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
