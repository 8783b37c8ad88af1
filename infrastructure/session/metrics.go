package session

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by a RobustSession.
type Metrics struct {
	requests *prometheus.CounterVec
	retries  *prometheus.CounterVec
	resets   prometheus.Counter
	waits    prometheus.Histogram
}

// NewMetrics creates session collectors registered on reg.
// A nil registerer creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spconnect_sharepoint_requests_total",
				Help: "SharePoint HTTP attempts by method and status code",
			},
			[]string{"method", "status"},
		),
		retries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spconnect_sharepoint_retries_total",
				Help: "SharePoint request retries by reason",
			},
			[]string{"reason"},
		),
		resets: factory.NewCounter(prometheus.CounterOpts{
			Name: "spconnect_sharepoint_session_resets_total",
			Help: "Full session resets (close and reconnect)",
		}),
		waits: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "spconnect_sharepoint_backoff_seconds",
			Help:    "Time spent waiting before a retry",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		}),
	}
}

func (m *Metrics) recordAttempt(method string, status int) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.requests.WithLabelValues(method, label).Inc()
}

func (m *Metrics) recordRetry(reason string, waitSeconds float64) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(reason).Inc()
	m.waits.Observe(waitSeconds)
}

func (m *Metrics) recordReset() {
	if m == nil {
		return
	}
	m.resets.Inc()
}
