// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequestTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_request_total",
		Help:      "Total number of Paperless API request attempts",
	}, []string{"method", "endpoint", "status_class"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "Duration of Paperless API requests per attempt",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2.0, 8),
	}, []string{"method", "endpoint", "status_class"})

	apiRequestErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_request_errors_total",
		Help:      "Number of Paperless API request attempts that failed",
	}, []string{"method", "endpoint", "status_class"})

	apiRequestRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_request_retries_total",
		Help:      "Number of Paperless API request retries performed",
	}, []string{"method", "endpoint", "status_class"})
)

// StatusClass buckets an HTTP attempt outcome for metric labels.
func StatusClass(err error, status int) string {
	if err != nil {
		return "error"
	}
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	case status > 0:
		return "1xx"
	}
	return "unknown"
}

// RecordAPIAttempt records a single HTTP attempt against the Paperless API.
// endpoint must be a low-cardinality route template, not a raw path.
func RecordAPIAttempt(method, endpoint string, status int, duration time.Duration, err error, retry bool) {
	class := StatusClass(err, status)
	apiRequestTotal.WithLabelValues(method, endpoint, class).Inc()
	apiRequestDuration.WithLabelValues(method, endpoint, class).Observe(duration.Seconds())
	if class != "2xx" {
		apiRequestErrors.WithLabelValues(method, endpoint, class).Inc()
	}
	if retry {
		apiRequestRetries.WithLabelValues(method, endpoint, class).Inc()
	}
}

// Upstream breaker collectors. The gauge is 1 for the breaker's current
// state and 0 for the others, so a single series per breaker is non-zero.
var (
	breakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "upstream_breaker_state",
		Help:      "Current state of the Paperless circuit breaker",
	}, []string{"breaker", "state"})

	breakerOpened = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "upstream_breaker_opened_total",
		Help:      "Times the Paperless circuit breaker opened, by cause",
	}, []string{"breaker", "cause"})
)

var breakerStates = [...]string{"closed", "half-open", "open"}

// SetCircuitBreakerState marks state as the active one for breaker.
func SetCircuitBreakerState(breaker, state string) {
	for _, s := range breakerStates {
		v := 0.0
		if s == state {
			v = 1
		}
		breakerState.WithLabelValues(breaker, s).Set(v)
	}
}

// RecordCircuitBreakerTrip counts a transition to open.
func RecordCircuitBreakerTrip(breaker, cause string) {
	breakerOpened.WithLabelValues(breaker, cause).Inc()
}
