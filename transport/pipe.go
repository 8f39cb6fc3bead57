package transport

import (
	"net"
	"sync"
)

// pipeListener is a net.Listener whose connections are in-memory pipes.
type pipeListener struct {
	name    string
	conns   chan net.Conn
	done    chan struct{}
	once    sync.Once
	onClose func()
}

func newPipeListener(name string, onClose func()) *pipeListener {
	return &pipeListener{
		name:    name,
		conns:   make(chan net.Conn),
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

func (l *pipeListener) Accept() (net.Conn, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, net.ErrClosed
	}
}

func (l *pipeListener) Close() error {
	l.once.Do(func() {
		close(l.done)
		if l.onClose != nil {
			l.onClose()
		}
	})
	return nil
}

func (l *pipeListener) Addr() net.Addr {
	return pipeAddr(l.name)
}

func (l *pipeListener) dial() (net.Conn, error) {
	client, server := net.Pipe()
	select {
	case l.conns <- server:
		return client, nil
	case <-l.done:
		client.Close()
		server.Close()
		return nil, net.ErrClosed
	}
}

type pipeAddr string

func (a pipeAddr) Network() string { return string(SchemeInproc) }

func (a pipeAddr) String() string { return string(a) }
