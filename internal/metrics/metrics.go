package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Journal metrics
	statsComputed    *prometheus.CounterVec
	statsDuration    *prometheus.HistogramVec
	tradesAggregated prometheus.Counter
	statsErrors      *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	r.statsComputed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_stats_computed_total",
			Help: "Total number of statistics computations by kind",
		},
		[]string{"kind"},
	)
	r.statsDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "journal_stats_duration_seconds",
			Help:    "Statistics computation duration in seconds",
			Buckets: []float64{.001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"kind"},
	)
	r.tradesAggregated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "journal_trades_aggregated_total",
			Help: "Total number of trades fed into statistics",
		},
	)
	r.statsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "journal_stats_errors_total",
			Help: "Total number of failed statistics computations",
		},
		[]string{"kind"},
	)

	reg.MustRegister(r.statsComputed)
	reg.MustRegister(r.statsDuration)
	reg.MustRegister(r.tradesAggregated)
	reg.MustRegister(r.statsErrors)

	return r
}

// RecordRequest records metrics for an HTTP request.
func (r *Registry) RecordRequest(method, path string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, path).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordStats records a finished statistics computation over n trades.
func (r *Registry) RecordStats(kind string, trades int, duration float64) {
	r.statsComputed.WithLabelValues(kind).Inc()
	r.statsDuration.WithLabelValues(kind).Observe(duration)
	r.tradesAggregated.Add(float64(trades))
}

// RecordStatsError records a failed statistics computation.
func (r *Registry) RecordStatsError(kind string) {
	r.statsErrors.WithLabelValues(kind).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}

