package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides a centralized interface for collecting gateway metrics.
//
// The metrics system is built on Prometheus and tracks:
//   - Action throughput by action and outcome
//   - Active WebSocket connection counts
//   - Fanout latency and per-push outcomes
//   - Viewer registry pruning triggered by gone connections
type Metrics struct {
	// ActionCounter tracks protocol actions by action and outcome.
	// Labels: action (joinLive|leaveLive|liveComment|liveReaction|unknown),
	// outcome (ok|validation|unauthenticated|restricted|rate_limited|moderation|error)
	ActionCounter *prometheus.CounterVec

	// ActiveConnections is a gauge of currently registered connections.
	ActiveConnections prometheus.Gauge

	// FanoutDuration measures one full broadcast call in seconds.
	// Labels: event type
	FanoutDuration *prometheus.HistogramVec

	// FanoutPushCounter counts per-handle push outcomes.
	// Labels: outcome (delivered|pruned|failed)
	FanoutPushCounter *prometheus.CounterVec

	// PrunedViewers counts registry rows removed after gone errors.
	PrunedViewers prometheus.Counter
}

// NewMetrics creates and registers all Prometheus metrics.
// This should be called once at application startup.
func NewMetrics() *Metrics {
	return &Metrics{
		ActionCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livegate_actions_total",
				Help: "Protocol actions processed, by action and outcome.",
			},
			[]string{"action", "outcome"},
		),
		ActiveConnections: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "livegate_active_connections",
				Help: "Currently registered WebSocket connections.",
			},
		),
		FanoutDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "livegate_fanout_duration_seconds",
				Help:    "Duration of one channel broadcast call.",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event"},
		),
		FanoutPushCounter: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "livegate_fanout_pushes_total",
				Help: "Per-handle fanout push outcomes.",
			},
			[]string{"outcome"},
		),
		PrunedViewers: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "livegate_pruned_viewers_total",
				Help: "Viewer rows removed after the transport reported the handle gone.",
			},
		),
	}
}

// Action records one processed action. Nil-safe so components can run
// without a metrics registry in tests.
func (m *Metrics) Action(action, outcome string) {
	if m == nil {
		return
	}
	m.ActionCounter.WithLabelValues(action, outcome).Inc()
}

// ConnectionOpened increments the active connection gauge.
func (m *Metrics) ConnectionOpened() {
	if m == nil {
		return
	}
	m.ActiveConnections.Inc()
}

// ConnectionClosed decrements the active connection gauge.
func (m *Metrics) ConnectionClosed() {
	if m == nil {
		return
	}
	m.ActiveConnections.Dec()
}

// Fanout records one broadcast call and its per-push outcomes.
func (m *Metrics) Fanout(event string, elapsed time.Duration, delivered, pruned, failed int) {
	if m == nil {
		return
	}
	m.FanoutDuration.WithLabelValues(event).Observe(elapsed.Seconds())
	m.FanoutPushCounter.WithLabelValues("delivered").Add(float64(delivered))
	m.FanoutPushCounter.WithLabelValues("pruned").Add(float64(pruned))
	m.FanoutPushCounter.WithLabelValues("failed").Add(float64(failed))
	if pruned > 0 {
		m.PrunedViewers.Add(float64(pruned))
	}
}
