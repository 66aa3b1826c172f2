package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "salon"

// BookingFlowMetrics exposes counters/histograms for the conversational booking flow.
type BookingFlowMetrics struct {
	transitions *prometheus.CounterVec
	flowErrors  *prometheus.CounterVec
	bookings    *prometheus.CounterVec
	handleTime  prometheus.Histogram
}

func NewBookingFlowMetrics(reg prometheus.Registerer) *BookingFlowMetrics {
	m := &BookingFlowMetrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking_flow",
			Name:      "transitions_total",
			Help:      "State machine transitions by source and target step",
		}, []string{"from", "to"}),
		flowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking_flow",
			Name:      "errors_total",
			Help:      "Flow errors by taxonomy kind",
		}, []string{"kind"}),
		bookings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_total",
			Help:      "Booking creation attempts by outcome",
		}, []string{"outcome"}),
		handleTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "booking_flow",
			Name:      "handle_seconds",
			Help:      "Latency of one inbound message cycle",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.transitions, m.flowErrors, m.bookings, m.handleTime)
	return m
}

func (m *BookingFlowMetrics) ObserveTransition(from, to string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from, to).Inc()
}

func (m *BookingFlowMetrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.flowErrors.WithLabelValues(kind).Inc()
}

func (m *BookingFlowMetrics) ObserveBooking(outcome string) {
	if m == nil {
		return
	}
	m.bookings.WithLabelValues(outcome).Inc()
}

func (m *BookingFlowMetrics) ObserveHandle(seconds float64) {
	if m == nil {
		return
	}
	m.handleTime.Observe(seconds)
}

// InboundMetrics counts inbound API traffic by result.
type InboundMetrics struct {
	inbound *prometheus.CounterVec
}

func NewInboundMetrics(reg prometheus.Registerer) *InboundMetrics {
	m := &InboundMetrics{
		inbound: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inbound_total",
			Help:      "Inbound conversation messages by result",
		}, []string{"status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inbound)
	return m
}

func (m *InboundMetrics) ObserveInbound(status string) {
	if m == nil {
		return
	}
	m.inbound.WithLabelValues(status).Inc()
}

// OutboxMetrics counts outbox deliveries.
type OutboxMetrics struct {
	delivered *prometheus.CounterVec
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	m := &OutboxMetrics{
		delivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "delivered_total",
			Help:      "Outbox deliveries by event type and status",
		}, []string{"type", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.delivered)
	return m
}

func (m *OutboxMetrics) ObserveDelivery(eventType, status string) {
	if m == nil {
		return
	}
	m.delivered.WithLabelValues(eventType, status).Inc()
}
