package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// route safety engine.
type Metrics struct {
	// Suggestion metrics.
	SuggestQueries    prometheus.Counter
	SuggestStaleDrops prometheus.Counter

	// Scoring metrics.
	ScoreRequests prometheus.Counter
	ScoreFailures prometheus.Counter
	ScoreDuration prometheus.Histogram

	// Live hazard metrics.
	HazardEventsApplied prometheus.Counter
	AlertsEmitted       prometheus.Counter
	HazardScans         prometheus.Counter
	FeedActive          prometheus.Gauge

	// Session metrics.
	SessionTransitions *prometheus.CounterVec // label: to={composing,display_route,display_hazards}
}

// NewMetrics creates and registers all engine metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.SuggestQueries,
		m.SuggestStaleDrops,
		m.ScoreRequests,
		m.ScoreFailures,
		m.ScoreDuration,
		m.HazardEventsApplied,
		m.AlertsEmitted,
		m.HazardScans,
		m.FeedActive,
		m.SessionTransitions,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		SuggestQueries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "suggest_queries_total",
			Help:      "Resolver queries issued after the debounce window.",
		}),
		SuggestStaleDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "suggest_stale_drops_total",
			Help:      "Suggestion responses discarded because a newer query superseded them.",
		}),
		ScoreRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "score_requests_total",
			Help:      "Route scoring requests submitted.",
		}),
		ScoreFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "score_failures_total",
			Help:      "Route scoring requests that failed or timed out.",
		}),
		ScoreDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "route_engine",
			Name:      "score_duration_seconds",
			Help:      "Duration of a complete scoring round trip.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		HazardEventsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "hazard_events_applied_total",
			Help:      "Live hazard events folded into an active route set.",
		}),
		AlertsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "alerts_emitted_total",
			Help:      "User-facing alerts derived from hazard events.",
		}),
		HazardScans: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "hazard_scans_total",
			Help:      "One-shot radius scans performed.",
		}),
		FeedActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "route_engine",
			Name:      "hazard_feed_active",
			Help:      "1 while a hazard feed subscription is held, 0 otherwise.",
		}),
		SessionTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "route_engine",
			Name:      "session_transitions_total",
			Help:      "Navigation session state transitions by target state.",
		}, []string{"to"}),
	}
}
