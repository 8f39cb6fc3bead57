package forwarder

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sjohnr/jzmq-sdk-sub001/metric"
)

// instanceMetrics are the per-forwarder collectors that do not fit the shared
// label sets in metric.Metrics.
type instanceMetrics struct {
	drainBatch   prometheus.Histogram
	pollDuration prometheus.Histogram
}

// newInstanceMetrics returns nil when no registry is given.
func newInstanceMetrics(registry *metric.MetricsRegistry, name string) (*instanceMetrics, error) {
	if registry == nil {
		return nil, nil
	}

	m := &instanceMetrics{
		drainBatch: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "jzf",
			Subsystem:   "forwarder",
			Name:        "drain_batch_size",
			Help:        "Messages drained from one endpoint in one loop iteration",
			ConstLabels: prometheus.Labels{"forwarder": name},
			Buckets:     []float64{1, 2, 5, 10, 50, 100, 500, 1000},
		}),
		pollDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   "jzf",
			Subsystem:   "forwarder",
			Name:        "poll_wait_seconds",
			Help:        "Time the loop spent waiting in Poll",
			ConstLabels: prometheus.Labels{"forwarder": name},
			Buckets:     []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}

	service := "forwarder_" + name
	if err := registry.RegisterHistogram(service, "drain_batch_size", m.drainBatch); err != nil {
		return nil, err
	}
	if err := registry.RegisterHistogram(service, "poll_wait_seconds", m.pollDuration); err != nil {
		registry.Unregister(service, "drain_batch_size")
		return nil, err
	}
	return m, nil
}

func (m *instanceMetrics) observeBatch(n int) {
	if m != nil && n > 0 {
		m.drainBatch.Observe(float64(n))
	}
}

func (m *instanceMetrics) observePoll(seconds float64) {
	if m != nil {
		m.pollDuration.Observe(seconds)
	}
}
