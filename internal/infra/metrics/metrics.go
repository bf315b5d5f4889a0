package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	swipesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "swipes_total",
			Help: "Swipe attempts partitioned by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	matchesFormedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "matches_formed_total",
			Help: "Matches created from reciprocal like-class swipes",
		},
	)

	allowanceRefillsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "allowance_refills_total",
			Help: "Lazy allowance resets performed on read or consume",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests processed",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)

// Swipe outcomes recorded against swipes_total.
const (
	OutcomeRecorded    = "recorded"
	OutcomeOutOfSwipes = "out_of_swipes"
	OutcomeDuplicate   = "duplicate"
	OutcomeTooFast     = "too_fast"
	OutcomeError       = "error"
)

func ObserveSwipe(action, outcome string) {
	swipesTotal.WithLabelValues(action, outcome).Inc()
}

func MatchFormed() {
	matchesFormedTotal.Inc()
}

func AllowanceRefilled() {
	allowanceRefillsTotal.Inc()
}

func ObserveHTTPRequest(method, route string, status int, elapsed time.Duration) {
	labels := prometheus.Labels{
		"method": method,
		"route":  route,
		"status": strconv.Itoa(status),
	}
	httpRequestsTotal.With(labels).Inc()
	httpRequestDuration.With(labels).Observe(elapsed.Seconds())
}
