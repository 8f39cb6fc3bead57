// Package metric wraps a Prometheus registry with duplicate-safe registration
// and the core metrics shared by sockets and forwarders.
//
// Every component takes an optional *MetricsRegistry. A nil registry means no
// metrics: constructors return nil metric holders and recording helpers are
// skipped by their callers.
//
// Core metrics (namespace "jzf"):
//
//	jzf_forwarder_state{forwarder}                 0=stopped, 1=running
//	jzf_forwarder_forwarded_total{forwarder,route} route = local_to_cluster | local_to_local | cluster_to_local
//	jzf_forwarder_dropped_total{forwarder,reason}  reason = malformed | send_failed | loopback | unmatched
//	jzf_forwarder_control_frames_total{forwarder,link,code}
//	jzf_socket_messages_total{socket,direction}    direction = in | out
//	jzf_socket_dropped_total{socket,reason}
//	jzf_socket_peers{socket}
//
// Components with their own metrics register them through RegisterCounter,
// RegisterGauge and friends, keyed by (service, metric) so that a second
// registration under the same key is rejected instead of panicking.
//
// Server exposes the registry over HTTP together with a /health endpoint.
package metric
