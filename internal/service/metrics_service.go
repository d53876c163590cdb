package service

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService owns the Prometheus registry for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLookups    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	recordWrites    *prometheus.CounterVec
	storageFailures *prometheus.CounterVec
	overdueCount    prometheus.Gauge
	overdueAmount   prometheus.Gauge
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

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	recordWrites := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_record_writes_total",
		Help: "Successful student, payment and modality writes",
	}, []string{"entity", "operation"})

	storageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "academia_storage_failures_total",
		Help: "Storage failures surfaced to callers",
	}, []string{"operation"})

	overdueCount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "academia_overdue_payments",
		Help: "Unpaid payments due on or before today at the last overdue query",
	})

	overdueAmount := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "academia_overdue_amount",
		Help: "Sum of overdue amounts at the last overdue query",
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLookups, cacheLatency, recordWrites, storageFailures, overdueCount, overdueAmount,
		collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLookups:    cacheLookups,
		cacheLatency:    cacheLatency,
		recordWrites:    recordWrites,
		storageFailures: storageFailures,
		overdueCount:    overdueCount,
		overdueAmount:   overdueAmount,
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

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache lookup and its latency.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	m.cacheLookups.WithLabelValues("miss").Inc()
}

// RecordWrite counts a successful write to entity.
func (m *MetricsService) RecordWrite(entity, operation string) {
	if m == nil {
		return
	}
	m.recordWrites.WithLabelValues(entity, operation).Inc()
}

// RecordStorageFailure counts a storage error returned to a caller.
func (m *MetricsService) RecordStorageFailure(operation string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(operation).Inc()
}

// SetOverdue publishes the size and value of the latest overdue list.
func (m *MetricsService) SetOverdue(count int, amount float64) {
	if m == nil {
		return
	}
	m.overdueCount.Set(float64(count))
	m.overdueAmount.Set(amount)
}
