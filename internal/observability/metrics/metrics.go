package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BookingMetrics exposes counters/histograms for appointment flows.
type BookingMetrics struct {
	operationsTotal *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
	conflictRetries prometheus.Counter
	latency         *prometheus.HistogramVec
	paymentsTotal   *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		operationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "appointments",
			Name:      "operations_total",
			Help:      "Appointment lifecycle operations by outcome",
		}, []string{"operation", "outcome"}),
		rejectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "appointments",
			Name:      "rejections_total",
			Help:      "Booking rule rejections by code",
		}, []string{"code"}),
		conflictRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "appointments",
			Name:      "conflict_retries_total",
			Help:      "Store conflicts retried while booking",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "hospital",
			Subsystem: "appointments",
			Name:      "operation_latency_seconds",
			Help:      "Latency of appointment lifecycle operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		paymentsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "hospital",
			Subsystem: "payments",
			Name:      "events_total",
			Help:      "Payment orders and verifications by status",
		}, []string{"event", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.operationsTotal, m.rejectionsTotal, m.conflictRetries, m.latency, m.paymentsTotal)
	return m
}

func (m *BookingMetrics) ObserveOperation(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.operationsTotal.WithLabelValues(operation, outcome).Inc()
	m.latency.WithLabelValues(operation).Observe(elapsed.Seconds())
}

func (m *BookingMetrics) ObserveRejection(code string) {
	if m == nil {
		return
	}
	m.rejectionsTotal.WithLabelValues(code).Inc()
}

func (m *BookingMetrics) ObserveConflictRetry() {
	if m == nil {
		return
	}
	m.conflictRetries.Inc()
}

func (m *BookingMetrics) ObservePayment(event, status string) {
	if m == nil {
		return
	}
	m.paymentsTotal.WithLabelValues(event, status).Inc()
}
