package server

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// total requests per route, method and status code
	RequestCount = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ireporter_requests_total",
			Help: "Total API requests received",
		},
		[]string{"route", "method", "status"},
	)

	// request latency in seconds per route/method
	RequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ireporter_request_duration_seconds",
			Help:    "Histogram of request latencies",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	// reports created per kind
	ReportsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ireporter_reports_created_total",
			Help: "Total reports created",
		},
		[]string{"kind"},
	)

	// admin status changes per kind and edge
	StatusTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ireporter_status_transitions_total",
			Help: "Total report status transitions applied by administrators",
		},
		[]string{"kind", "from", "to"},
	)

	// currently open notification sockets
	OpenSockets = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ireporter_notification_sockets",
			Help: "Open notification websocket connections",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestCount,
		RequestLatency,
		ReportsCreated,
		StatusTransitions,
		OpenSockets,
	)
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		RequestCount.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		RequestLatency.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}
