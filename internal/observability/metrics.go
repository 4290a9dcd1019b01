package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "radar"

// Metrics holds the Prometheus series for the alert pipeline.
type Metrics struct {
	MessagesPolled   *prometheus.CounterVec // labels: source
	MessagesBanned   prometheus.Counter
	OracleAttempts   *prometheus.CounterVec // labels: backend, outcome
	OracleDefaults   prometheus.Counter
	FactsDiscarded   *prometheus.CounterVec // labels: reason={format,severity,region,hazard,unactionable}
	TransitionsTotal *prometheus.CounterVec // labels: result={accepted,suppressed}
	Deliveries       *prometheus.CounterVec // labels: outcome={success,error}
	LiveClients      prometheus.Gauge
	PipelineDuration prometheus.Histogram
	FeedErrors       *prometheus.CounterVec // labels: source
}

func newMetrics() *Metrics {
	return &Metrics{
		MessagesPolled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_polled_total",
			Help:      "New feed messages discovered per source.",
		}, []string{"source"}),
		MessagesBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_banned_total",
			Help:      "Inputs dropped by the denylist before classification.",
		}),
		OracleAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_attempts_total",
			Help:      "Classification oracle calls by backend and outcome.",
		}, []string{"backend", "outcome"}),
		OracleDefaults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "oracle_safe_default_total",
			Help:      "Classifications that fell back to the safe default answer.",
		}),
		FactsDiscarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "facts_discarded_total",
			Help:      "Oracle records discarded during parsing or normalization.",
		}, []string{"reason"}),
		TransitionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Reconciled targets by result.",
		}, []string{"result"}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "deliveries_total",
			Help:      "Subscriber notification deliveries by outcome.",
		}, []string{"outcome"}),
		LiveClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Connected live dashboard clients.",
		}),
		PipelineDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of one (source, text) pipeline run.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FeedErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feed_errors_total",
			Help:      "Feed fetch failures per source.",
		}, []string{"source"}),
	}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.MessagesPolled,
		m.MessagesBanned,
		m.OracleAttempts,
		m.OracleDefaults,
		m.FactsDiscarded,
		m.TransitionsTotal,
		m.Deliveries,
		m.LiveClients,
		m.PipelineDuration,
		m.FeedErrors,
	)
	return m
}

// NewMetricsForTesting returns unregistered metrics so tests can create
// as many as they like.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}
