// Package jzf is the messaging core of a pub/sub-over-raw-sockets SDK.
//
// # Layers
//
//   - frame: multi-part message framing. Envelope codec, topic and identity
//     extraction, subscription control frames, inproc references.
//   - subscription: reference-counted (link, topic) subscription state that
//     emits a control frame on every change.
//   - transport: Pub, Sub, XPub and XSub sockets over inproc, TCP and
//     WebSocket links, with a poller.
//   - forwarder: the federation device bridging a local bus to a cluster bus
//     with topic filtering and loop prevention.
//
// Supporting packages follow the usual layout: errors (classified errors),
// metric (Prometheus registry and HTTP endpoint), health, component (lifecycle
// contract), config (file loading), pkg/buffer and pkg/retry.
//
// # Running
//
//	jzf-forwarder --config=/etc/jzf/forwarder.yaml
//
// runs every forwarder in the file and serves /metrics and /health.
//
// # Delivery
//
// Delivery is best effort. Full queues drop the newest message, nothing is
// persisted, and there is no ordering across publishers. Messages from a single
// publisher through a single path keep their order.
package jzf
