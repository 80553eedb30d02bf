package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)

	// StoreOperations counts repository operations by name and outcome
	// (ok, not_found, invalid, conflict, error).
	StoreOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Subsystem: "store", Name: "operations_total", Help: "Portfolio store operations by outcome."},
		[]string{"op", "outcome"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "portfolio", Subsystem: "cache", Name: "lookups_total", Help: "Portfolio cache lookups by result."},
		[]string{"result"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "portfolio",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	requestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "portfolio",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served.",
		},
		[]string{"method", "path", "status"},
	)
	requestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "portfolio",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "HTTP requests currently being served.",
		},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(StoreOperations)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(requestDuration, requestTotal, requestsInFlight)
}

// GinMiddleware records latency and counts per route template.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestsInFlight.Inc()
		defer requestsInFlight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		labels := prometheus.Labels{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(c.Writer.Status()),
		}
		requestDuration.With(labels).Observe(time.Since(start).Seconds())
		requestTotal.With(labels).Inc()
	}
}
