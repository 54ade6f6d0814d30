// Package metrics exposes Prometheus collectors for refreshes, the current
// reading, HTTP traffic and publisher failures.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the collectors registered by the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	refreshTotal      *prometheus.CounterVec
	temperature       prometheus.Gauge
	humidity          prometheus.Gauge
	lastCapture       prometheus.Gauge
	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	publishErrors     *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		refreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensortail_refresh_total",
			Help: "Log refresh attempts by outcome (ok, skipped, failed).",
		}, []string{"status"}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensortail_temperature_celsius",
			Help: "Most recently parsed temperature.",
		}),
		humidity: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensortail_humidity_percent",
			Help: "Most recently parsed relative humidity.",
		}),
		lastCapture: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sensortail_last_capture_timestamp_seconds",
			Help: "Unix time of the most recent successful refresh.",
		}),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensortail_http_requests_total",
			Help: "HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sensortail_http_request_duration_seconds",
			Help:    "HTTP request durations by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		publishErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sensortail_publish_errors_total",
			Help: "Failed publisher deliveries by publisher name.",
		}, []string{"publisher"}),
	}

	m.registry.MustRegister(
		m.refreshTotal,
		m.temperature,
		m.humidity,
		m.lastCapture,
		m.httpRequestsTotal,
		m.httpDuration,
		m.publishErrors,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Refresh counts one refresh attempt with the given status.
func (m *Metrics) Refresh(status string) {
	if m == nil {
		return
	}
	m.refreshTotal.WithLabelValues(status).Inc()
}

// Reading records the values of a successfully parsed reading.
func (m *Metrics) Reading(temperature, humidity float64, capturedAt time.Time) {
	if m == nil {
		return
	}
	m.temperature.Set(temperature)
	m.humidity.Set(humidity)
	m.lastCapture.Set(float64(capturedAt.UnixNano()) / float64(time.Second))
}

// PublishError counts a failed delivery for the named publisher.
func (m *Metrics) PublishError(publisher string) {
	if m == nil {
		return
	}
	m.publishErrors.WithLabelValues(publisher).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(status int) {
	s.status = status
	s.ResponseWriter.WriteHeader(status)
}

// Hijack lets WebSocket upgrades pass through the recorder.
func (s *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := s.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	s.status = http.StatusSwitchingProtocols
	return hj.Hijack()
}

// Flush forwards to the underlying writer when it supports flushing.
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// WrapHandler records request counts and durations for route.
func (m *Metrics) WrapHandler(route string, next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(recorder, r)

		m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
