// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file exposes Prometheus instrumentation for HTTP traffic. Labels are
// kept low-cardinality: the registered Gin route (not the raw URL), the
// method verb, and the numeric status code. A separate gauge tracks open
// websocket sessions so live-delivery capacity is visible on dashboards.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// httpReqs counts requests by method, route path, and status code.
	httpReqs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	// httpLat records request duration in seconds by method and route path.
	// Status is omitted to keep histogram cardinality down.
	httpLat = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// httpInflight gauges the number of requests currently being processed.
	httpInflight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_inflight",
			Help: "Current number of in-flight HTTP requests.",
		},
	)

	// wsSessions gauges currently open websocket delivery sessions.
	wsSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_sessions_active",
			Help: "Currently open websocket delivery sessions.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpReqs, httpLat, httpInflight, wsSessions)
}

// Metrics returns a Gin middleware that instruments requests with Prometheus.
// Path labels use c.FullPath() and fall back to the raw path only for
// unmatched routes (404s).
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		httpInflight.Inc()
		defer httpInflight.Dec()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		httpReqs.WithLabelValues(method, path, status).Inc()
		httpLat.WithLabelValues(method, path).Observe(time.Since(start).Seconds())
	}
}

// WSSessionOpened and WSSessionClosed bracket the lifetime of one websocket
// delivery session in the ws_sessions_active gauge.
func WSSessionOpened() { wsSessions.Inc() }

// WSSessionClosed decrements the open-session gauge.
func WSSessionClosed() { wsSessions.Dec() }
