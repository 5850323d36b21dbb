// Package metrics exposes the host layer's Prometheus instrumentation. The
// engine core never imports this package. The host wrapper updates
// ReconnectsTotal, KeepAliveTimeouts, BytesSent, BytesReceived and
// MessagesDelivered; InflightPublishes and PacketIDsAllocated are registered
// but never set, so they stay at zero.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics is a per-client set of Prometheus collectors. Callers register it
// once, typically against prometheus.DefaultRegisterer or a per-client
// registry for multi-client processes.
type Metrics struct {
	InflightPublishes    prometheus.Gauge
	PacketIDsAllocated   prometheus.Gauge
	ReconnectsTotal      prometheus.Counter
	KeepAliveTimeouts    prometheus.Counter
	BytesSent            prometheus.Counter
	BytesReceived        prometheus.Counter
	MessagesDelivered    prometheus.Counter
}

// New builds a Metrics set with the given constant labels (typically
// client_id) and registers it against reg. Passing a fresh
// prometheus.NewRegistry() keeps multiple Client instances from colliding on
// collector names.
func New(reg prometheus.Registerer, constLabels prometheus.Labels) *Metrics {
	m := &Metrics{
		InflightPublishes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mqtt5",
			Name:        "inflight_publishes",
			Help:        "QoS 1/2 publishes currently awaiting acknowledgement.",
			ConstLabels: constLabels,
		}),
		PacketIDsAllocated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "mqtt5",
			Name:        "packet_ids_allocated",
			Help:        "Packet identifiers currently checked out from the allocator.",
			ConstLabels: constLabels,
		}),
		ReconnectsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mqtt5",
			Name:        "reconnects_total",
			Help:        "Successful reconnects completed by the host supervisor.",
			ConstLabels: constLabels,
		}),
		KeepAliveTimeouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mqtt5",
			Name:        "keepalive_timeouts_total",
			Help:        "Times the broker did not answer a keep-alive ping in time.",
			ConstLabels: constLabels,
		}),
		BytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mqtt5",
			Name:        "bytes_sent_total",
			Help:        "Bytes written to the transport by send_bytes.",
			ConstLabels: constLabels,
		}),
		BytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mqtt5",
			Name:        "bytes_received_total",
			Help:        "Bytes handed to feed_bytes from the transport.",
			ConstLabels: constLabels,
		}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "mqtt5",
			Name:        "messages_delivered_total",
			Help:        "PUBLISH messages delivered to a subscription handler.",
			ConstLabels: constLabels,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.InflightPublishes, m.PacketIDsAllocated, m.ReconnectsTotal,
			m.KeepAliveTimeouts, m.BytesSent, m.BytesReceived, m.MessagesDelivered,
		)
	}
	return m
}
