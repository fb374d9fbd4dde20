// Package metrics defines the Prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	OrdersCreated   *prometheus.CounterVec
	OrdersDeleted   *prometheus.CounterVec
	OperationErrors *prometheus.CounterVec
	CachedOrders    *prometheus.GaugeVec
	Requests        *prometheus.CounterVec
	LatencyMS       *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

// New registers every collector on reg. Pass prometheus.NewRegistry() in
// tests to avoid duplicate registration panics.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		OrdersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alimentacion",
			Name:      "orders_created_total",
			Help:      "Orders successfully stored, by kind.",
		}, []string{"kind"}),
		OrdersDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alimentacion",
			Name:      "orders_deleted_total",
			Help:      "Orders successfully deleted, by kind.",
		}, []string{"kind"}),
		OperationErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alimentacion",
			Name:      "operation_errors_total",
			Help:      "Remote store failures, by kind and operation.",
		}, []string{"kind", "operation"}),
		CachedOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "alimentacion",
			Name:      "cached_orders",
			Help:      "Orders held in the in-memory list, by kind.",
		}, []string{"kind"}),
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alimentacion",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status.",
		}, []string{"route", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "alimentacion",
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		gatherer: reg,
	}
	reg.MustRegister(m.OrdersCreated, m.OrdersDeleted, m.OperationErrors,
		m.CachedOrders, m.Requests, m.LatencyMS)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Middleware records request counts and latency per route template.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				if he, ok := err.(*echo.HTTPError); ok {
					status = he.Code
				} else {
					status = http.StatusInternalServerError
				}
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			m.Requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
			m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Microseconds()) / 1000)
			return err
		}
	}
}
