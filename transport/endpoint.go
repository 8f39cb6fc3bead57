package transport

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
)

const (
	handshakeTimeout = 5 * time.Second
	dialTimeout      = 2 * time.Second
)

// acceptor is a bound endpoint handing accepted links to a socket.
type acceptor interface {
	// serve blocks, calling handle for each accepted link, until closed.
	serve(handle func(link))
	// endpoint returns the resolved address, with the real port for tcp://*:0.
	endpoint() string
	Close() error
}

func listen(ctx *Context, addr Address) (acceptor, error) {
	switch addr.Scheme {
	case SchemeInproc:
		l, err := ctx.bindInproc(addr.Host)
		if err != nil {
			return nil, err
		}
		return &netAcceptor{ln: l, addr: addr.String()}, nil

	case SchemeTCP:
		ln, err := net.Listen("tcp", addr.Host)
		if err != nil {
			return nil, listenError(err, addr)
		}
		resolved := Address{Scheme: SchemeTCP, Host: ln.Addr().String()}
		return &netAcceptor{ln: ln, addr: resolved.String()}, nil

	case SchemeWS:
		ln, err := net.Listen("tcp", addr.Host)
		if err != nil {
			return nil, listenError(err, addr)
		}
		resolved := Address{Scheme: SchemeWS, Host: ln.Addr().String(), Path: addr.Path}
		return &wsAcceptor{
			ln:     ln,
			path:   addr.Path,
			addr:   resolved.String(),
			server: &http.Server{ReadHeaderTimeout: handshakeTimeout},
		}, nil

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedTransport, addr.Scheme)
	}
}

func listenError(err error, addr Address) error {
	if stderrors.Is(err, syscall.EADDRINUSE) {
		return fmt.Errorf("%w: %s", errors.ErrAddressInUse, addr)
	}
	return fmt.Errorf("%w: listen %s: %v", errors.ErrTransportFailure, addr, err)
}

func dial(ctx context.Context, tctx *Context, addr Address) (link, error) {
	switch addr.Scheme {
	case SchemeInproc:
		conn, err := tctx.dialInproc(addr.Host)
		if err != nil {
			return nil, err
		}
		return newStreamLink(conn), nil

	case SchemeTCP:
		d := net.Dialer{Timeout: dialTimeout}
		conn, err := d.DialContext(ctx, "tcp", addr.Host)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
		}
		return newStreamLink(conn), nil

	case SchemeWS:
		dialer := &websocket.Dialer{HandshakeTimeout: dialTimeout}
		conn, _, err := dialer.DialContext(ctx, addr.String(), nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", errors.ErrTransportFailure, err)
		}
		return newWSLink(conn), nil

	default:
		return nil, fmt.Errorf("%w: %s", errors.ErrUnsupportedTransport, addr.Scheme)
	}
}

// netAcceptor serves inproc and tcp listeners.
type netAcceptor struct {
	ln   net.Listener
	addr string
}

func (a *netAcceptor) serve(handle func(link)) {
	for {
		conn, err := a.ln.Accept()
		if err != nil {
			return
		}
		if tcp, ok := conn.(*net.TCPConn); ok {
			_ = tcp.SetNoDelay(true)
		}
		handle(newStreamLink(conn))
	}
}

func (a *netAcceptor) endpoint() string { return a.addr }

func (a *netAcceptor) Close() error { return a.ln.Close() }

// wsAcceptor upgrades HTTP requests on one path into links.
type wsAcceptor struct {
	ln     net.Listener
	path   string
	addr   string
	server *http.Server
}

func (a *wsAcceptor) serve(handle func(link)) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  64 * 1024,
		WriteBufferSize: 64 * 1024,
		CheckOrigin: func(_ *http.Request) bool {
			return true
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc(a.path, func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handle(newWSLink(conn))
	})

	a.server.Handler = mux
	_ = a.server.Serve(a.ln)
}

func (a *wsAcceptor) endpoint() string { return a.addr }

func (a *wsAcceptor) Close() error {
	err := a.server.Close()
	_ = a.ln.Close()
	return err
}
