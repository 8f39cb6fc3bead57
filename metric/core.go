package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "jzf"

// Metrics contains the metrics shared by every socket and forwarder in the process.
type Metrics struct {
	// Forwarder metrics
	ForwarderState     *prometheus.GaugeVec
	ForwardedTotal     *prometheus.CounterVec
	DroppedTotal       *prometheus.CounterVec
	ControlFramesTotal *prometheus.CounterVec

	// Socket metrics
	SocketMessagesTotal *prometheus.CounterVec
	SocketDroppedTotal  *prometheus.CounterVec
	SocketPeers         *prometheus.GaugeVec
}

// NewMetrics creates the core metric vectors. They are not registered.
func NewMetrics() *Metrics {
	return &Metrics{
		ForwarderState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "forwarder",
				Name:      "state",
				Help:      "Forwarder state (0=stopped, 1=running)",
			},
			[]string{"forwarder"},
		),

		ForwardedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forwarder",
				Name:      "forwarded_total",
				Help:      "Messages forwarded, by route",
			},
			[]string{"forwarder", "route"},
		),

		DroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forwarder",
				Name:      "dropped_total",
				Help:      "Messages dropped by the forwarder, by reason",
			},
			[]string{"forwarder", "reason"},
		),

		ControlFramesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "forwarder",
				Name:      "control_frames_total",
				Help:      "Subscription control frames handled, by link and code",
			},
			[]string{"forwarder", "link", "code"},
		),

		SocketMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "socket",
				Name:      "messages_total",
				Help:      "Messages moved through a socket, by direction",
			},
			[]string{"socket", "direction"},
		),

		SocketDroppedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "socket",
				Name:      "dropped_total",
				Help:      "Messages dropped by a socket, by reason",
			},
			[]string{"socket", "reason"},
		),

		SocketPeers: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "socket",
				Name:      "peers",
				Help:      "Connected peers per socket",
			},
			[]string{"socket"},
		),
	}
}

func (c *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		c.ForwarderState,
		c.ForwardedTotal,
		c.DroppedTotal,
		c.ControlFramesTotal,
		c.SocketMessagesTotal,
		c.SocketDroppedTotal,
		c.SocketPeers,
	}
}

// RecordForwarderState sets the forwarder state gauge
func (c *Metrics) RecordForwarderState(forwarder string, running bool) {
	value := 0.0
	if running {
		value = 1.0
	}
	c.ForwarderState.WithLabelValues(forwarder).Set(value)
}

// RecordForwarded increments the forwarded counter for a route
func (c *Metrics) RecordForwarded(forwarder, route string) {
	c.ForwardedTotal.WithLabelValues(forwarder, route).Inc()
}

// RecordDropped increments the forwarder drop counter
func (c *Metrics) RecordDropped(forwarder, reason string) {
	c.DroppedTotal.WithLabelValues(forwarder, reason).Inc()
}

// RecordControlFrame increments the control frame counter
func (c *Metrics) RecordControlFrame(forwarder, link, code string) {
	c.ControlFramesTotal.WithLabelValues(forwarder, link, code).Inc()
}

// RecordSocketMessage increments the socket message counter
func (c *Metrics) RecordSocketMessage(socket, direction string) {
	c.SocketMessagesTotal.WithLabelValues(socket, direction).Inc()
}

// RecordSocketDrop increments the socket drop counter
func (c *Metrics) RecordSocketDrop(socket, reason string) {
	c.SocketDroppedTotal.WithLabelValues(socket, reason).Inc()
}

// RecordSocketPeers sets the connected peer gauge
func (c *Metrics) RecordSocketPeers(socket string, peers int) {
	c.SocketPeers.WithLabelValues(socket).Set(float64(peers))
}
