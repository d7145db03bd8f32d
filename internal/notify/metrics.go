package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	broadcasts  *prometheus.CounterVec
	drops       prometheus.Counter
	connections prometheus.Gauge
}

// NewMetrics registers the hub collectors on reg. Pass prometheus.NewRegistry() in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		broadcasts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "notify_broadcast_total",
			Help: "Order status events broadcast, by room kind",
		}, []string{"room_kind"}),
		drops: f.NewCounter(prometheus.CounterOpts{
			Name: "notify_dropped_total",
			Help: "Events dropped because a subscriber buffer was full",
		}),
		connections: f.NewGauge(prometheus.GaugeOpts{
			Name: "notify_connections",
			Help: "Open realtime connections",
		}),
	}
}

func (m *Metrics) broadcast(kind string) {
	if m != nil {
		m.broadcasts.WithLabelValues(kind).Inc()
	}
}

func (m *Metrics) dropped() {
	if m != nil {
		m.drops.Inc()
	}
}

func (m *Metrics) connOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) connClosed() {
	if m != nil {
		m.connections.Dec()
	}
}
