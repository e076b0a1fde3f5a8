package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Upload outcomes recorded by ObserveUpload.
const (
	UploadSucceeded = "success"
	UploadFailed    = "failure"
)

// MetricsService owns the Prometheus registry and the collectors the API reports.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	warehouseDuration *prometheus.HistogramVec
	uploads           *prometheus.CounterVec
	uploadRows        *prometheus.CounterVec
	mergedRows        *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
}

// NewMetricsService registers the collectors on a private registry.
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

	warehouseDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "warehouse_operation_duration_seconds",
		Help:    "Duration of warehouse operations",
		Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation", "entity"})

	uploads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "uploads_total",
		Help: "Spreadsheet uploads by entity and outcome",
	}, []string{"entity", "outcome"})

	uploadRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "upload_rows_total",
		Help: "Spreadsheet rows read, staged and skipped",
	}, []string{"entity", "stage"})

	mergedRows := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "merged_rows_total",
		Help: "Rows inserted or updated by upload merges",
	}, []string{"entity"})

	cacheLookups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "row_cache_lookups_total",
		Help: "Row cache lookups by result",
	}, []string{"result"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "row_cache_latency_seconds",
		Help:    "Latency of row cache operations",
		Buckets: prometheus.DefBuckets,
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, warehouseDuration, uploads, uploadRows, mergedRows, cacheLookups, cacheLatency, goroutines)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		warehouseDuration: warehouseDuration,
		uploads:           uploads,
		uploadRows:        uploadRows,
		mergedRows:        mergedRows,
		cacheLookups:      cacheLookups,
		cacheLatency:      cacheLatency,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
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

// ObserveHTTPRequest records one served request.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveWarehouse records the duration of one warehouse operation.
func (m *MetricsService) ObserveWarehouse(operation, entity string, duration time.Duration) {
	if m == nil {
		return
	}
	m.warehouseDuration.WithLabelValues(operation, entity).Observe(duration.Seconds())
}

// ObserveUpload counts a finished upload and its row tallies.
func (m *MetricsService) ObserveUpload(entity string, result UploadResult, err error) {
	if m == nil {
		return
	}
	outcome := UploadSucceeded
	if err != nil {
		outcome = UploadFailed
	}
	m.uploads.WithLabelValues(entity, outcome).Inc()
	m.uploadRows.WithLabelValues(entity, "read").Add(float64(result.RowsRead))
	m.uploadRows.WithLabelValues(entity, "staged").Add(float64(result.RowsStaged))
	m.uploadRows.WithLabelValues(entity, "skipped").Add(float64(result.RowsSkipped))
	m.mergedRows.WithLabelValues(entity).Add(float64(result.RowsAffected))
}

// RecordCacheLookup counts a row cache hit or miss.
func (m *MetricsService) RecordCacheLookup(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(result).Inc()
	m.cacheLatency.Observe(duration.Seconds())
}

// ObserveCacheWrite tracks the duration of a cache write or invalidation.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
}
