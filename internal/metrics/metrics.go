// Package metrics collects Prometheus metrics for the gateway and serves them on /metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "prep"

// Collector records generation and HTTP metrics. It satisfies services.GenerationMetrics.
type Collector struct {
	generations      *prometheus.CounterVec
	providerAttempts *prometheus.CounterVec
	providerLatency  *prometheus.HistogramVec
	countMismatches  *prometheus.CounterVec
	httpRequests     *prometheus.CounterVec
	httpLatency      *prometheus.HistogramVec
}

// NewCollector creates a Collector and registers its metrics with reg
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		generations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_generations_total",
			Help:      "AI generation requests by kind and outcome.",
		}, []string{"kind", "outcome"}),
		providerAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_provider_attempts_total",
			Help:      "HTTP attempts against the AI provider by outcome, retries included.",
		}, []string{"provider", "outcome"}),
		providerLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_provider_latency_seconds",
			Help:      "Latency of single AI provider attempts.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
		}, []string{"provider"}),
		countMismatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_count_mismatch_total",
			Help:      "Generations whose valid item count differed from the requested count.",
		}, []string{"kind"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status_code"}),
		httpLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	reg.MustRegister(
		c.generations,
		c.providerAttempts,
		c.providerLatency,
		c.countMismatches,
		c.httpRequests,
		c.httpLatency,
	)
	return c
}

// GenerationCompleted counts one finished generation request
func (c *Collector) GenerationCompleted(kind, outcome string) {
	c.generations.WithLabelValues(kind, outcome).Inc()
}

// ProviderAttempt counts one provider HTTP attempt and observes its latency
func (c *Collector) ProviderAttempt(provider, outcome string, elapsed time.Duration) {
	c.providerAttempts.WithLabelValues(provider, outcome).Inc()
	c.providerLatency.WithLabelValues(provider).Observe(elapsed.Seconds())
}

// CountMismatch counts a question set whose size differs from the request
func (c *Collector) CountMismatch(kind string, _, _ int) {
	c.countMismatches.WithLabelValues(kind).Inc()
}

// GinMiddleware records request counts and latency. Unmatched routes share one label.
func (c *Collector) GinMiddleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		route := ctx.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := ctx.Request.Method
		c.httpRequests.WithLabelValues(method, route, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpLatency.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}

// Handler returns the HTTP handler for Prometheus scrapes
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
