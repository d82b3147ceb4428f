// Package metrics exposes the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "school"

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	gatherer prometheus.Gatherer

	requests    *prometheus.CounterVec
	latency     *prometheus.HistogramVec
	importedRow *prometheus.CounterVec
	saves       *prometheus.CounterVec
	savedRows   *prometheus.CounterVec
	inquiries   *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, along with the Go and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	m := &Metrics{
		gatherer: reg,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status code.",
		}, []string{"route", "method", "code"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		importedRow: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "results", Name: "imported_rows_total",
			Help: "CSV rows applied to a results sheet, by outcome (matched, skipped).",
		}, []string{"outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "results", Name: "saves_total",
			Help: "Results sheet saves by outcome (ok, failed, busy).",
		}, []string{"outcome"}),
		savedRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "results", Name: "saved_rows_total",
			Help: "Rows written by results saves, by kind (marks, cgpa, skipped).",
		}, []string{"kind"}),
		inquiries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "admission", Name: "inquiries_total",
			Help: "Admission inquiries by outcome (ok, invalid, failed).",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.requests, m.latency, m.importedRow, m.saves, m.savedRows, m.inquiries)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Gatherer is used by tests to read the collected values.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.gatherer }

func (m *Metrics) ObserveImport(matched, skipped int) {
	if m == nil {
		return
	}
	m.importedRow.WithLabelValues("matched").Add(float64(matched))
	m.importedRow.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveSave(outcome string, marks, cgpas, skipped int) {
	if m == nil {
		return
	}
	m.saves.WithLabelValues(outcome).Inc()
	m.savedRows.WithLabelValues("marks").Add(float64(marks))
	m.savedRows.WithLabelValues("cgpa").Add(float64(cgpas))
	m.savedRows.WithLabelValues("skipped").Add(float64(skipped))
}

func (m *Metrics) ObserveInquiry(outcome string) {
	if m == nil {
		return
	}
	m.inquiries.WithLabelValues(outcome).Inc()
}

// Middleware counts and times every request by its route pattern.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if m == nil {
				return next(ctx)
			}
			start := time.Now()
			err := next(ctx)

			code := ctx.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				code = he.Code
			}
			route, method := ctx.Path(), ctx.Request().Method
			m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
			m.latency.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
			return err
		}
	}
}
