package transport

// Kind is the socket pattern.
type Kind byte

// Socket kinds. Values travel in the greeting.
const (
	Pub  Kind = 1
	Sub  Kind = 2
	XPub Kind = 3
	XSub Kind = 4
)

func (k Kind) String() string {
	switch k {
	case Pub:
		return "pub"
	case Sub:
		return "sub"
	case XPub:
		return "xpub"
	case XSub:
		return "xsub"
	default:
		return "unknown"
	}
}

func (k Kind) valid() bool {
	return k >= Pub && k <= XSub
}

// publishes reports whether k is on the sending side of pub/sub.
func (k Kind) publishes() bool {
	return k == Pub || k == XPub
}

// compatible reports whether sockets of kinds k and peer may be connected.
func (k Kind) compatible(peer Kind) bool {
	return k.publishes() != peer.publishes()
}
