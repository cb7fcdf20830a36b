package server

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const metricsNamespace = "http_server"

// Buckets for static file and health check latencies: 1ms up to 5s
var requestDurationBuckets = []float64{0.001, 0.005, 0.010, 0.025, 0.050, 0.100, 0.250, 0.500, 1.000, 2.500, 5.000}

// metrics holds the Prometheus collectors of one server instance
type metrics struct {
	// Labels: route, method, status
	requestCounter *prometheus.CounterVec

	// Labels: route, method
	requestDuration *prometheus.HistogramVec

	// Labels: route, method, status
	errorCounter *prometheus.CounterVec

	// Labels: route
	bytesServed *prometheus.CounterVec

	readinessGauge prometheus.Gauge
	livenessGauge  prometheus.Gauge

	registry *prometheus.Registry
}

// initMetrics creates the collectors and registers them with reg
func initMetrics(reg prometheus.Registerer) (*metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &metrics{}

	m.requestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "requests_total",
			Help:      "Total number of requests processed",
		},
		[]string{"route", "method", "status"},
	)
	if err := reg.Register(m.requestCounter); err != nil {
		return nil, fmt.Errorf("could not register request counter: %w", err)
	}

	m.requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "Duration of request processing in seconds",
			Buckets:   requestDurationBuckets,
		},
		[]string{"route", "method"},
	)
	if err := reg.Register(m.requestDuration); err != nil {
		return nil, fmt.Errorf("could not register request duration: %w", err)
	}

	m.errorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "errors_total",
			Help:      "Total number of responses with a status of 400 or above",
		},
		[]string{"route", "method", "status"},
	)
	if err := reg.Register(m.errorCounter); err != nil {
		return nil, fmt.Errorf("could not register error counter: %w", err)
	}

	m.bytesServed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "response_bytes_total",
			Help:      "Total number of response body bytes written",
		},
		[]string{"route"},
	)
	if err := reg.Register(m.bytesServed); err != nil {
		return nil, fmt.Errorf("could not register bytes counter: %w", err)
	}

	m.readinessGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "readiness_status",
			Help:      "Current readiness status (1 for ready, 0 for not ready)",
		},
	)
	if err := reg.Register(m.readinessGauge); err != nil {
		return nil, fmt.Errorf("could not register readiness gauge: %w", err)
	}

	m.livenessGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "liveness_status",
			Help:      "Current liveness status (1 for alive, 0 for not alive)",
		},
	)
	if err := reg.Register(m.livenessGauge); err != nil {
		return nil, fmt.Errorf("could not register liveness gauge: %w", err)
	}

	if r, ok := reg.(*prometheus.Registry); ok {
		m.registry = r
	}

	return m, nil
}

// metricsMiddleware records request metrics under route. The route is a
// fixed label so that arbitrary file paths do not create new series.
func (m *metrics) metricsMiddleware(route string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newStatusRecorder(w)

		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("panic", err).
					Str("stack", string(debug.Stack())).
					Msg("Handler panic recovered")

				wrapped.WriteHeader(http.StatusInternalServerError)

				m.requestCounter.WithLabelValues(route, r.Method, "500").Inc()
				m.errorCounter.WithLabelValues(route, r.Method, "500").Inc()
				m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
			}
		}()

		next.ServeHTTP(wrapped, r)

		status := strconv.Itoa(wrapped.status)
		m.requestCounter.WithLabelValues(route, r.Method, status).Inc()
		m.requestDuration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
		m.bytesServed.WithLabelValues(route).Add(float64(wrapped.bytes))

		if wrapped.status >= 400 {
			m.errorCounter.WithLabelValues(route, r.Method, status).Inc()
		}
	})
}

func (m *metrics) updateHealthMetrics(ready, alive bool) {
	if ready {
		m.readinessGauge.Set(1)
	} else {
		m.readinessGauge.Set(0)
	}

	if alive {
		m.livenessGauge.Set(1)
	} else {
		m.livenessGauge.Set(0)
	}
}

// handler returns a handler for the /metrics endpoint
func (m *metrics) handler() http.Handler {
	if m.registry != nil {
		return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// statusRecorder wraps http.ResponseWriter to capture the status code and
// the number of body bytes written
type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int64
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (r *statusRecorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.wroteHeader = true
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if !r.wroteHeader {
		r.wroteHeader = true
	}
	n, err := r.ResponseWriter.Write(b)
	r.bytes += int64(n)
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
