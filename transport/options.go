package transport

import (
	"log/slog"

	"github.com/sjohnr/jzmq-sdk-sub001/metric"
)

const (
	// DefaultSendHWM bounds each peer's outbound queue.
	DefaultSendHWM = 1000
	// DefaultRecvHWM bounds a socket's inbound queue.
	DefaultRecvHWM = 1000
)

// Option configures a socket.
type Option func(*options)

type options struct {
	identity string
	name     string
	sendHWM  int
	recvHWM  int
	logger   *slog.Logger
	metrics  *metric.MetricsRegistry
}

// WithIdentity overrides the random identity announced to peers.
func WithIdentity(id string) Option {
	return func(o *options) {
		o.identity = id
	}
}

// WithName sets the name used in logs and as the metrics "socket" label.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSendHWM sets the per-peer outbound queue bound. Non-positive values are ignored.
func WithSendHWM(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.sendHWM = n
		}
	}
}

// WithRecvHWM sets the inbound queue bound. Non-positive values are ignored.
func WithRecvHWM(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.recvHWM = n
		}
	}
}

// WithLogger sets the socket logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics records socket activity in the registry's core metrics.
func WithMetrics(registry *metric.MetricsRegistry) Option {
	return func(o *options) {
		o.metrics = registry
	}
}
