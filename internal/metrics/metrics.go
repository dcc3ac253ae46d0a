// Package metrics exposes Prometheus counters for the appointment engine.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// EngineMetrics tracks booking, call, notification and rollover outcomes.
// A nil *EngineMetrics is valid and records nothing.
type EngineMetrics struct {
	bookingsTotal       *prometheus.CounterVec
	callsTotal          *prometheus.CounterVec
	notificationsTotal  *prometheus.CounterVec
	rolloverTransitions prometheus.Counter
	rolloverFailures    prometheus.Counter
	availabilityQueries *prometheus.CounterVec
	notifyLatency       *prometheus.HistogramVec
}

func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "create_total",
			Help:      "Appointment creation attempts by result",
		}, []string{"result"}),
		callsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "booking",
			Name:      "call_total",
			Help:      "Call-patient attempts by result",
		}, []string{"result"}),
		notificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "delivery_total",
			Help:      "Notification deliveries by kind and result",
		}, []string{"kind", "result"}),
		rolloverTransitions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "rollover",
			Name:      "transitions_total",
			Help:      "Appointments moved from WAITING to SCHEDULED",
		}),
		rolloverFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "rollover",
			Name:      "failures_total",
			Help:      "Per-appointment rollover failures",
		}),
		availabilityQueries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinic",
			Subsystem: "availability",
			Name:      "queries_total",
			Help:      "Availability resolutions by result",
		}, []string{"result"}),
		notifyLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "clinic",
			Subsystem: "notify",
			Name:      "delivery_latency_seconds",
			Help:      "Latency of notification deliveries",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(
		m.bookingsTotal,
		m.callsTotal,
		m.notificationsTotal,
		m.rolloverTransitions,
		m.rolloverFailures,
		m.availabilityQueries,
		m.notifyLatency,
	)
	return m
}

func (m *EngineMetrics) ObserveBooking(result string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(result).Inc()
}

func (m *EngineMetrics) ObserveCall(result string) {
	if m == nil {
		return
	}
	m.callsTotal.WithLabelValues(result).Inc()
}

func (m *EngineMetrics) ObserveNotification(kind, result string, seconds float64) {
	if m == nil {
		return
	}
	m.notificationsTotal.WithLabelValues(kind, result).Inc()
	m.notifyLatency.WithLabelValues(kind).Observe(seconds)
}

func (m *EngineMetrics) ObserveRollover(transitioned, failed int) {
	if m == nil {
		return
	}
	m.rolloverTransitions.Add(float64(transitioned))
	m.rolloverFailures.Add(float64(failed))
}

func (m *EngineMetrics) ObserveAvailability(result string) {
	if m == nil {
		return
	}
	m.availabilityQueries.WithLabelValues(result).Inc()
}
