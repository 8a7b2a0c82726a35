package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kasirbutik"

// Metrics owns its registry so several instances can coexist in tests.
// All recording methods are safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	checkouts      *prometheus.CounterVec
	checkoutLines  prometheus.Counter
	partialCommits prometheus.Counter
	debtPayments   prometheus.Counter
	storeDuration  *prometheus.HistogramVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_total",
			Help:      "Completed checkouts by payment method",
		}, []string{"payment_method"}),
		checkoutLines: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_lines_total",
			Help:      "Transaction lines committed by checkout",
		}),
		partialCommits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_partial_commits_total",
			Help:      "Checkouts that failed after committing some lines",
		}),
		debtPayments: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "debt_payments_total",
			Help:      "Recorded debt payments",
		}),
		storeDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of persistence operations in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend", "op"}),
	}
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveHTTP(method string, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(elapsed.Seconds())
}

func (m *Metrics) RecordCheckout(paymentMethod string, lines int) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(paymentMethod).Inc()
	m.checkoutLines.Add(float64(lines))
}

func (m *Metrics) RecordPartialCommit() {
	if m == nil {
		return
	}
	m.partialCommits.Inc()
}

func (m *Metrics) RecordDebtPayment() {
	if m == nil {
		return
	}
	m.debtPayments.Inc()
}

// TrackStoreOperation starts a timer; call the returned func when the
// operation finishes.
func (m *Metrics) TrackStoreOperation(backend string, op string) func() {
	if m == nil {
		return func() {}
	}
	started := time.Now()
	return func() {
		m.storeDuration.WithLabelValues(backend, op).Observe(time.Since(started).Seconds())
	}
}
