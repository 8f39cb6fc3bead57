package transport

import (
	"sync"

	"github.com/sjohnr/jzmq-sdk-sub001/frame"
	"github.com/sjohnr/jzmq-sdk-sub001/pkg/buffer"
)

// peer is one connected remote socket.
type peer struct {
	// key is unique per connection; id is the identity the remote announced.
	key  string
	id   string
	kind Kind
	link link
	out  buffer.Buffer[frame.Sequence]

	done chan struct{}
	once sync.Once
}

func newPeer(key string, g greeting, l link, sendHWM int) *peer {
	return &peer{
		key:  key,
		id:   g.identity,
		kind: g.kind,
		link: l,
		out: buffer.NewCircularBuffer[frame.Sequence](sendHWM,
			buffer.WithOverflowPolicy[frame.Sequence](buffer.DropNewest)),
		done: make(chan struct{}),
	}
}

// close tears the connection down and reports whether this call did it.
func (p *peer) close() bool {
	first := false
	p.once.Do(func() {
		first = true
		close(p.done)
		_ = p.link.Close()
		_ = p.out.Close()
	})
	return first
}
