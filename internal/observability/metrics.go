package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors for the API, processor, and
// scheduler flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	messagesSentTotal   *prometheus.CounterVec
	messagesFailedTotal *prometheus.CounterVec
	cooldownDeniedTotal *prometheus.CounterVec
	sendDuration        *prometheus.HistogramVec
	retryScheduledTotal *prometheus.CounterVec
	jobInvocationsTotal *prometheus.CounterVec
	leasesRequeuedTotal prometheus.Counter
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_pipeline",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		messagesSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "messages_sent_total",
				Help:      "Total number of messages delivered successfully.",
			},
			[]string{"category"},
		),
		messagesFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "messages_failed_total",
				Help:      "Total number of messages that ended in failed state.",
			},
			[]string{"category", "reason"},
		),
		cooldownDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "cooldown_denials_total",
				Help:      "Total number of sends denied by cooldown policy.",
			},
			[]string{"category"},
		),
		sendDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "outreach_pipeline",
				Name:      "send_duration_seconds",
				Help:      "Transport delivery duration in seconds grouped by category.",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
			[]string{"category"},
		),
		retryScheduledTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "retry_scheduled_total",
				Help:      "Total number of messages scheduled for retry.",
			},
			[]string{"category"},
		),
		jobInvocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "job_invocations_total",
				Help:      "Total number of scheduled job invocations by job and result.",
			},
			[]string{"job", "result"},
		),
		leasesRequeuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "outreach_pipeline",
				Name:      "leases_requeued_total",
				Help:      "Total number of messages recovered from expired processing leases.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.messagesSentTotal,
		m.messagesFailedTotal,
		m.cooldownDeniedTotal,
		m.sendDuration,
		m.retryScheduledTotal,
		m.jobInvocationsTotal,
		m.leasesRequeuedTotal,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncMessageSent(category string) {
	if m == nil {
		return
	}
	m.messagesSentTotal.WithLabelValues(normalizeCategory(category)).Inc()
}

func (m *Metrics) IncMessageFailed(category string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.messagesFailedTotal.WithLabelValues(normalizeCategory(category), reasonLabel).Inc()
}

func (m *Metrics) IncCooldownDenied(category string) {
	if m == nil {
		return
	}
	m.cooldownDeniedTotal.WithLabelValues(normalizeCategory(category)).Inc()
}

func (m *Metrics) ObserveSendDuration(category string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.sendDuration.WithLabelValues(normalizeCategory(category)).Observe(seconds)
}

func (m *Metrics) IncRetryScheduled(category string) {
	if m == nil {
		return
	}
	m.retryScheduledTotal.WithLabelValues(normalizeCategory(category)).Inc()
}

func (m *Metrics) IncJobInvocation(job string, result string) {
	if m == nil {
		return
	}
	jobLabel := strings.TrimSpace(job)
	if jobLabel == "" {
		jobLabel = "unknown"
	}
	resultLabel := strings.TrimSpace(strings.ToLower(result))
	if resultLabel == "" {
		resultLabel = "unknown"
	}
	m.jobInvocationsTotal.WithLabelValues(jobLabel, resultLabel).Inc()
}

func (m *Metrics) AddLeasesRequeued(count int64) {
	if m == nil || count <= 0 {
		return
	}
	m.leasesRequeuedTotal.Add(float64(count))
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeCategory(category string) string {
	normalized := strings.ToLower(strings.TrimSpace(category))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}
