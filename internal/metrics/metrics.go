// Package metrics defines the process-wide checkout metrics. The registry is
// injected into the controller rather than living as module-level globals, so
// tests can observe a private registry while production keeps a single
// instance for the whole process lifetime.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Request status labels for payment_requests_total.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Error type labels for payment_failures_total.
const (
	ErrorTypeInvalidCart = "invalid_cart"
	ErrorTypeUserService = "user_service_error"
	ErrorTypeGateway     = "gateway_error"
	ErrorTypeDeclined    = "payment_declined"
	ErrorTypePublish     = "publish_error"
	ErrorTypeCartService = "cart_service_error"
)

// Registry carries every checkout metric family. Counters and histograms are
// safe for concurrent use by all in-flight requests.
type Registry struct {
	Requests        *prometheus.CounterVec
	Failures        *prometheus.CounterVec
	GatewayErrors   *prometheus.CounterVec
	GatewayFallback prometheus.Counter
	CircuitState    prometheus.Gauge
	ActivePayments  prometheus.Gauge
	Duration        prometheus.Histogram
	Sold            prometheus.Counter
	UnitsSold       prometheus.Histogram
	CartValue       prometheus.Histogram
}

// New creates and registers the checkout metric families on reg.
func New(reg prometheus.Registerer) *Registry {
	m := &Registry{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_requests_total",
			Help: "Total payment requests",
		}, []string{"status"}),
		Failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_failures_total",
			Help: "Payment failures",
		}, []string{"error_type"}),
		GatewayErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_gateway_errors_total",
			Help: "Payment gateway errors",
		}, []string{"gateway"}),
		GatewayFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "payment_gateway_fallback_total",
			Help: "Checkouts that proceeded without gateway authorization",
		}),
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payment_gateway_circuit_state",
			Help: "Gateway circuit breaker state (0 closed, 1 open, 2 half-open)",
		}),
		ActivePayments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "active_payments",
			Help: "Currently processing payments",
		}),
		Duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name: "payment_duration_seconds",
			Help: "Payment processing duration",
		}),
		Sold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "sold_count",
			Help: "Running count of items sold",
		}),
		UnitsSold: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "units_sold",
			Help:    "Average Unit Sale",
			Buckets: []float64{1, 2, 5, 10, 100},
		}),
		CartValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cart_value",
			Help:    "Average Value Sale",
			Buckets: []float64{100, 200, 500, 1000, 2000, 5000, 10000},
		}),
	}

	reg.MustRegister(
		m.Requests,
		m.Failures,
		m.GatewayErrors,
		m.GatewayFallback,
		m.CircuitState,
		m.ActivePayments,
		m.Duration,
		m.Sold,
		m.UnitsSold,
		m.CartValue,
	)
	return m
}

// Handler returns the pull-based exposition endpoint for the given gatherer.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
