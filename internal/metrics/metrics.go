package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// RequestsTotal counts HTTP requests by method and status class.
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metaselect",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests handled, labeled by method and status class (2xx, 4xx, ...).",
	}, []string{"method", "class"})

	RequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "metaselect",
		Subsystem: "http",
		Name:      "requests_in_flight",
		Help:      "HTTP requests currently being served.",
	})

	// SubmissionsTotal counts submit attempts by outcome: success, failed, rejected.
	SubmissionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "metaselect",
		Subsystem: "analysis",
		Name:      "submissions_total",
		Help:      "Submit attempts, labeled by outcome.",
	}, []string{"result"})

	PredictDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "metaselect",
		Subsystem: "analysis",
		Name:      "predict_duration_seconds",
		Help:      "Round-trip time of a classification call.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60},
	}, []string{"result"})

	HistoryWriteFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metaselect",
		Subsystem: "history",
		Name:      "write_failures_total",
		Help:      "History appends whose persistence failed (result still delivered).",
	})

	HistoryLoadFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "metaselect",
		Subsystem: "history",
		Name:      "load_failures_total",
		Help:      "History loads that found unreadable or corrupt data and started empty.",
	})

	// ServiceConnected is 1 when the last health check saw the classifier as healthy.
	ServiceConnected = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "metaselect",
		Subsystem: "classifier",
		Name:      "connected",
		Help:      "Whether the most recent health check reported the classification service healthy.",
	})

	SessionsOpen = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "metaselect",
		Subsystem: "session",
		Name:      "open",
		Help:      "Analysis sessions currently registered.",
	})
)

// Register registers collectors with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			RequestsInFlight,
			SubmissionsTotal,
			PredictDurationSeconds,
			HistoryWriteFailuresTotal,
			HistoryLoadFailuresTotal,
			ServiceConnected,
			SessionsOpen,
		)
	})
}

// BoolGauge maps a flag to 0/1.
func BoolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
