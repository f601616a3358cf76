package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// MetricsService owns the Prometheus registry for HTTP, cache and ledger instrumentation.
// Every method is safe on a nil receiver.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheLookups    *prometheus.CounterVec
	caseTransitions *prometheus.CounterVec
	disbursed       prometheus.Counter
	disbursements   prometheus.Counter
	guardRejections *prometheus.CounterVec
	duesGenerated   prometheus.Counter
	eventsPublished *prometheus.CounterVec

	cacheHits   uint64
	cacheMisses uint64
}

// NewMetricsService registers the collectors on a private registry.
func NewMetricsService() *MetricsService {
	m := &MetricsService{registry: prometheus.NewRegistry()}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
	m.requestTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
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
		Help:    "Latency for cache writes",
		Buckets: prometheus.DefBuckets,
	})
	m.cacheLatency, m.cacheWrite = cacheLatency, cacheWrite
	m.cacheHitRatio = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})
	m.cacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cache_lookups_total",
		Help: "Cache lookups by result",
	}, []string{"result"})
	m.caseTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_case_transitions_total",
		Help: "Assistance case status transitions by target status",
	}, []string{"status"})
	m.disbursed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_disbursed_amount_total",
		Help: "Sum of recorded disbursement amounts",
	})
	m.disbursements = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ledger_disbursements_total",
		Help: "Number of recorded disbursements",
	})
	m.guardRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_guard_rejections_total",
		Help: "Ledger writes refused by a guard, by error code",
	}, []string{"code"})
	m.duesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dues_generated_total",
		Help: "Pending dues rows created by the generator",
	})
	m.eventsPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "events_published_total",
		Help: "Domain events handed to the publisher, by type and outcome",
	}, []string{"type", "outcome"})
	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 { return float64(runtime.NumGoroutine()) })

	m.registry.MustRegister(
		m.requestDuration, m.requestTotal, cacheLatency, cacheWrite, m.cacheHitRatio, m.cacheLookups,
		m.caseTransitions, m.disbursed, m.disbursements, m.guardRejections, m.duesGenerated, m.eventsPublished,
		goroutines,
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	return m
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests and custom collectors.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request latency and count.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a lookup and refreshes the hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheLookups.WithLabelValues("hit").Inc()
		atomic.AddUint64(&m.cacheHits, 1)
	} else {
		m.cacheLookups.WithLabelValues("miss").Inc()
		atomic.AddUint64(&m.cacheMisses, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHits)
	total := hits + atomic.LoadUint64(&m.cacheMisses)
	m.cacheHitRatio.Set(float64(hits) / float64(total))
}

// ObserveCacheWrite tracks cache write latency.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordCaseTransition counts a committed status change.
func (m *MetricsService) RecordCaseTransition(status string) {
	if m == nil {
		return
	}
	m.caseTransitions.WithLabelValues(status).Inc()
}

// RecordDisbursement counts a committed disbursement.
func (m *MetricsService) RecordDisbursement(amount decimal.Decimal) {
	if m == nil {
		return
	}
	m.disbursements.Inc()
	m.disbursed.Add(amount.InexactFloat64())
}

// RecordGuardRejection counts a ledger write refused by a guard.
func (m *MetricsService) RecordGuardRejection(code string) {
	if m == nil {
		return
	}
	m.guardRejections.WithLabelValues(code).Inc()
}

// RecordDuesGenerated counts inserted pending dues.
func (m *MetricsService) RecordDuesGenerated(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.duesGenerated.Add(float64(n))
}

// RecordEventPublished counts a publish attempt outcome.
func (m *MetricsService) RecordEventPublished(eventType string, ok bool) {
	if m == nil {
		return
	}
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	m.eventsPublished.WithLabelValues(eventType, outcome).Inc()
}
