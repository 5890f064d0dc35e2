package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sma-monitoring-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the monitoring API and alert scheduler.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	dbQueryDuration *prometheus.HistogramVec

	sttErrorRate       prometheus.Gauge
	queueWaiting       prometheus.Gauge
	alertsEmitted      *prometheus.CounterVec
	alertCheckFailures *prometheus.CounterVec

	cacheHitCount  uint64
	cacheMissCount uint64
	requestCount   uint64
	dbQueryCount   uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache lookups",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of monitoring aggregate queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	sttErrorRate := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitoring_stt_error_rate_percent",
		Help: "Speech-to-text error rate over the trailing hour, as last observed by the alert scheduler",
	})

	queueWaiting := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "monitoring_analysis_queue_waiting",
		Help: "Waiting jobs in the analysis queue, as last observed by the alert scheduler",
	})

	alertsEmitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitoring_alerts_emitted_total",
		Help: "Threshold alerts emitted by kind",
	}, []string{"kind"})

	alertCheckFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "monitoring_alert_check_failures_total",
		Help: "Alert checks abandoned because their metric could not be fetched",
	}, []string{"check"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHits, cacheMisses,
		dbQueryDuration, sttErrorRate, queueWaiting, alertsEmitted, alertCheckFailures, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		sttErrorRate:       sttErrorRate,
		queueWaiting:       queueWaiting,
		alertsEmitted:      alertsEmitted,
		alertCheckFailures: alertCheckFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry returns the underlying registry.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
		return
	}
	m.cacheMisses.Inc()
	atomic.AddUint64(&m.cacheMissCount, 1)
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records aggregate query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	atomic.AddUint64(&m.dbQueryCount, 1)
}

// SetSTTErrorRate publishes the latest trailing-hour transcription error rate.
func (m *MetricsService) SetSTTErrorRate(rate float64) {
	if m == nil {
		return
	}
	m.sttErrorRate.Set(rate)
}

// SetQueueWaiting publishes the latest analysis queue waiting count.
func (m *MetricsService) SetQueueWaiting(waiting int64) {
	if m == nil {
		return
	}
	m.queueWaiting.Set(float64(waiting))
}

// RecordAlert counts an emitted alert.
func (m *MetricsService) RecordAlert(kind models.AlertKind) {
	if m == nil {
		return
	}
	m.alertsEmitted.WithLabelValues(string(kind)).Inc()
}

// RecordCheckFailure counts an abandoned alert check.
func (m *MetricsService) RecordCheckFailure(check string) {
	if m == nil {
		return
	}
	m.alertCheckFailures.WithLabelValues(check).Inc()
}

// Snapshot returns process-level counters for the system endpoint.
func (m *MetricsService) Snapshot() models.SystemMetrics {
	if m == nil {
		return models.SystemMetrics{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	return models.SystemMetrics{
		CacheHitRatio: cacheRatio,
		CacheHits:     hits,
		CacheMisses:   misses,
		RequestsTotal: atomic.LoadUint64(&m.requestCount),
		DBQueryCount:  atomic.LoadUint64(&m.dbQueryCount),
		Goroutines:    runtime.NumGoroutine(),
		GeneratedAt:   time.Now().UTC(),
	}
}
