// Package metrics exposes Prometheus collectors for the pricewatch service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	batchesTotal         *prometheus.CounterVec
	batchDurationSeconds prometheus.Histogram
	watchItemsTotal      *prometheus.CounterVec
	itemFailuresTotal    *prometheus.CounterVec
	notificationsTotal   *prometheus.CounterVec
	httpRequestsTotal    *prometheus.CounterVec
	httpDurationSeconds  *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		batchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_batches_total",
				Help: "Total number of tracker batches, labeled by status.",
			},
			[]string{"status"},
		)

		batchDurationSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pricewatch_batch_duration_seconds",
				Help:    "Histogram of batch run durations.",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
			},
		)

		watchItemsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_items_total",
				Help: "Total number of watch requests processed, labeled by result.",
			},
			[]string{"result"},
		)

		itemFailuresTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_item_failures_total",
				Help: "Total number of contained per-item failures, labeled by stage.",
			},
			[]string{"stage"},
		)

		notificationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pricewatch_notifications_total",
				Help: "Total number of notification attempts, labeled by provider and status.",
			},
			[]string{"provider", "status"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveBatch increments the batch counter and records its duration.
func ObserveBatch(status string, duration time.Duration) {
	if batchesTotal == nil {
		return
	}
	batchesTotal.WithLabelValues(status).Inc()
	batchDurationSeconds.Observe(duration.Seconds())
}

// ObserveItem increments the per-item result counter ("fired", "held").
func ObserveItem(result string) {
	if watchItemsTotal == nil {
		return
	}
	watchItemsTotal.WithLabelValues(result).Inc()
}

// ObserveItemFailure increments the per-item failure counter for a stage.
func ObserveItemFailure(stage string) {
	if itemFailuresTotal == nil {
		return
	}
	itemFailuresTotal.WithLabelValues(stage).Inc()
}

// ObserveNotification increments the notification attempt counter.
func ObserveNotification(provider, status string) {
	if notificationsTotal == nil {
		return
	}
	notificationsTotal.WithLabelValues(provider, status).Inc()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
