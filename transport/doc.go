// Package transport provides the socket layer under the frame codec: publish,
// subscribe and their extended variants over inproc, TCP and WebSocket links,
// plus a readiness poller.
//
// # Sockets
//
//   - Pub sends each message to every peer whose subscriptions match its topic.
//   - Sub subscribes by topic prefix, replays its subscriptions to every peer it
//     (re)connects to and filters inbound messages locally.
//   - XPub is a Pub that also surfaces each inbound SUBSCRIBE/UNSUBSCRIBE
//     control frame through Recv, tagged with the peer that sent it. A departed
//     peer produces one synthetic UNSUBSCRIBE per reference it held.
//   - XSub is a Sub driven by control frames passed to Send; it does not filter.
//
// Subscriptions are reference counted per peer with a subscription.Registry.
//
// # Links
//
// Every connection starts with a greeting message ["JZF1"][kind][identity] in
// each direction. After that each message is
//
//	uint32 frameCount | (uint32 length | bytes)*
//
// on stream links (inproc pipes, TCP) and one binary WebSocket message with the
// same body on ws:// links.
//
// # Flow control
//
// Each peer has an outbound queue bounded by the send high-water mark and each
// socket has an inbound queue bounded by the receive high-water mark. Both drop
// the newest message when full; Send never blocks.
//
// # Addresses
//
//	inproc://name           in-process, scoped to a Context
//	tcp://host:port         "*" binds all interfaces, port 0 picks a free port
//	ws://host:port/path
//	pgm://..., epgm://...   parsed, rejected with ErrUnsupportedTransport
//
// Connect is asynchronous: a dial loop keeps reconnecting with backoff until the
// socket is closed, so connecting before the peer binds is allowed.
package transport
