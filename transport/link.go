package transport

import (
	"bufio"
	"net"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sjohnr/jzmq-sdk-sub001/frame"
)

// link carries whole sequences between two sockets. ReadSequence and
// WriteSequence are each called from a single goroutine.
type link interface {
	ReadSequence() (frame.Sequence, error)
	WriteSequence(seq frame.Sequence) error
	SetDeadline(t time.Time) error
	RemoteAddr() string
	Close() error
}

// streamLink frames sequences over a byte stream (net.Pipe or TCP).
type streamLink struct {
	conn net.Conn
	r    *bufio.Reader
	w    bufferedWriter
}

func newStreamLink(conn net.Conn) *streamLink {
	return &streamLink{
		conn: conn,
		r:    bufio.NewReader(conn),
		w:    bufferedWriter{bufio.NewWriter(conn)},
	}
}

func (l *streamLink) ReadSequence() (frame.Sequence, error) { return readSequence(l.r) }

func (l *streamLink) WriteSequence(seq frame.Sequence) error { return l.w.writeSequence(seq) }

func (l *streamLink) SetDeadline(t time.Time) error { return l.conn.SetDeadline(t) }

func (l *streamLink) RemoteAddr() string { return l.conn.RemoteAddr().String() }

func (l *streamLink) Close() error { return l.conn.Close() }

// wsLink carries one sequence per binary WebSocket message.
type wsLink struct {
	conn *websocket.Conn
}

func newWSLink(conn *websocket.Conn) *wsLink {
	conn.SetReadLimit(int64(2*MaxFrameSize) + 8)
	return &wsLink{conn: conn}
}

func (l *wsLink) ReadSequence() (frame.Sequence, error) {
	for {
		msgType, data, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType != websocket.BinaryMessage {
			continue
		}
		return decodeSequence(data)
	}
}

func (l *wsLink) WriteSequence(seq frame.Sequence) error {
	data, err := encodeSequence(seq)
	if err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (l *wsLink) SetDeadline(t time.Time) error {
	if err := l.conn.SetReadDeadline(t); err != nil {
		return err
	}
	return l.conn.SetWriteDeadline(t)
}

func (l *wsLink) RemoteAddr() string { return l.conn.RemoteAddr().String() }

func (l *wsLink) Close() error { return l.conn.Close() }
