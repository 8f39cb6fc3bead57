package transport

import (
	"context"
	"sync"
	"time"
)

// Poller waits for inbound messages across several sockets.
type Poller struct {
	mu      sync.Mutex
	sockets []*Socket
	wake    chan struct{}
}

// NewPoller returns an empty poller.
func NewPoller() *Poller {
	return &Poller{wake: make(chan struct{}, 1)}
}

// Register adds sockets. Poll reports them by registration index.
func (p *Poller) Register(sockets ...*Socket) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range sockets {
		s.addWatcher(p.wake)
		p.sockets = append(p.sockets, s)
	}
}

// Poll returns the indexes of sockets with at least one message waiting,
// in registration order. It blocks up to timeout for one to become readable;
// zero checks once and a negative timeout waits until ctx is done.
func (p *Poller) Poll(ctx context.Context, timeout time.Duration) ([]int, error) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if ready := p.ready(); len(ready) > 0 {
			return ready, nil
		}
		if timeout == 0 {
			return nil, nil
		}
		select {
		case <-p.wake:
		case <-expired:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (p *Poller) ready() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	var ready []int
	for i, s := range p.sockets {
		if s.readable() {
			ready = append(ready, i)
		}
	}
	return ready
}

// Close detaches the poller from its sockets. The sockets stay open.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range p.sockets {
		s.removeWatcher(p.wake)
	}
	p.sockets = nil
}
