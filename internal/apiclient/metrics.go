package apiclient

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	callsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "portal_api_calls_total",
			Help: "Calls made to the booking API by method and status",
		},
		[]string{"method", "status"},
	)

	callDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "portal_api_call_duration_seconds",
			Help:    "Booking API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	unauthorizedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "portal_api_unauthorized_total",
			Help: "Booking API responses that ended a browser session",
		},
	)
)

func init() {
	prometheus.MustRegister(callsTotal)
	prometheus.MustRegister(callDuration)
	prometheus.MustRegister(unauthorizedTotal)
}

func observeCall(method, status string, start time.Time) {
	callsTotal.WithLabelValues(method, status).Inc()
	callDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
}

func statusLabel(code int) string {
	return strconv.Itoa(code)
}
