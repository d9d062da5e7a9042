package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SyncFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "sync_failures_total",
		Help:      "Remote cart/wishlist writes that failed or were dropped.",
	}, []string{"operation"})

	SyncApplied = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "sync_applied_total",
		Help:      "Remote cart/wishlist writes that succeeded.",
	}, []string{"operation"})

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "storefront",
		Subsystem: "cart",
		Name:      "active_sessions",
		Help:      "Browser sessions holding a cart store.",
	})

	OrdersPlaced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "checkout",
		Name:      "orders_placed_total",
		Help:      "Orders placed, by delivery method.",
	}, []string{"delivery_method"})

	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})

	LatencyMS = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "storefront",
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})
)

func init() {
	prometheus.MustRegister(SyncFailures, SyncApplied, ActiveSessions, OrdersPlaced, Requests, LatencyMS)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
