package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Store metrics
	StoreOperationsTotal   *prometheus.CounterVec
	StoreOperationDuration *prometheus.HistogramVec

	// Access control metrics
	AuthFailuresTotal *prometheus.CounterVec
	AccessDeniedTotal *prometheus.CounterVec

	// Topology metrics
	AutoAssignRunsTotal      *prometheus.CounterVec
	AutoAssignDevicesUpdated prometheus.Counter
	AutoAssignDuration       prometheus.Histogram

	// Business metrics
	SitesTotal   prometheus.Gauge
	DevicesTotal prometheus.Gauge
	UsersTotal   prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netfusion_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netfusion_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		StoreOperationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netfusion_store_operations_total",
				Help: "Total number of store operations",
			},
			[]string{"operation", "status"},
		),
		StoreOperationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "netfusion_store_operation_duration_seconds",
				Help:    "Store operation duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		AuthFailuresTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netfusion_auth_failures_total",
				Help: "Total number of failed authentication attempts",
			},
			[]string{"reason"},
		),
		AccessDeniedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netfusion_access_denied_total",
				Help: "Total number of authorization denials",
			},
			[]string{"resource"},
		),
		AutoAssignRunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netfusion_auto_assign_runs_total",
				Help: "Total number of topology auto-assign runs",
			},
			[]string{"status"},
		),
		AutoAssignDevicesUpdated: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "netfusion_auto_assign_devices_updated_total",
				Help: "Total number of devices assigned by auto-assign runs",
			},
		),
		AutoAssignDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "netfusion_auto_assign_duration_seconds",
				Help:    "Auto-assign run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		SitesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "netfusion_sites_total",
				Help: "Current number of sites",
			},
		),
		DevicesTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "netfusion_devices_total",
				Help: "Current number of discovered devices",
			},
		),
		UsersTotal: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "netfusion_users_total",
				Help: "Current number of user accounts",
			},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.StoreOperationsTotal,
		m.StoreOperationDuration,
		m.AuthFailuresTotal,
		m.AccessDeniedTotal,
		m.AutoAssignRunsTotal,
		m.AutoAssignDevicesUpdated,
		m.AutoAssignDuration,
		m.SitesTotal,
		m.DevicesTotal,
		m.UsersTotal,
	)

	return m
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveRequest records HTTP request metrics
func (m *Metrics) ObserveRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// ObserveStoreOperation records a store operation
func (m *Metrics) ObserveStoreOperation(operation string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.StoreOperationsTotal.WithLabelValues(operation, status).Inc()
	m.StoreOperationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetEntityCounts updates the business gauges from current row counts
func (m *Metrics) SetEntityCounts(users, sites, devices int64) {
	m.UsersTotal.Set(float64(users))
	m.SitesTotal.Set(float64(sites))
	m.DevicesTotal.Set(float64(devices))
}

// ObserveAutoAssign records the outcome of an auto-assign run
func (m *Metrics) ObserveAutoAssign(updated int, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.AutoAssignRunsTotal.WithLabelValues(status).Inc()
	if updated > 0 {
		m.AutoAssignDevicesUpdated.Add(float64(updated))
	}
	m.AutoAssignDuration.Observe(duration.Seconds())
}

// HTTPMiddleware records request metrics for every handled request
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		m.ObserveRequest(r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
