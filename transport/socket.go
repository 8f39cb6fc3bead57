package transport

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
	"github.com/sjohnr/jzmq-sdk-sub001/metric"
	"github.com/sjohnr/jzmq-sdk-sub001/pkg/buffer"
	"github.com/sjohnr/jzmq-sdk-sub001/pkg/retry"
	"github.com/sjohnr/jzmq-sdk-sub001/subscription"
)

// Message is one inbound sequence and the identity of the peer that sent it.
type Message struct {
	Frames frame.Sequence
	Peer   string
}

// localLink keys a Sub/XSub socket's own subscriptions.
const localLink subscription.Link = "local"

// Socket is a pub/sub endpoint. All methods are safe for concurrent use,
// though Recv is meant for a single consumer.
type Socket struct {
	ctx     *Context
	kind    Kind
	id      string
	name    string
	sendHWM int
	logger  *slog.Logger
	metrics *metric.Metrics

	inbox buffer.Buffer[Message]

	// XPub subscription events bypass the receive high-water mark. A dropped
	// SUBSCRIBE or UNSUBSCRIBE would leave the reader's view of the peers'
	// subscriptions wrong for good.
	ctrlMu    sync.Mutex
	control   []Message
	ctrlReady chan struct{}

	mu        sync.Mutex
	closed    bool
	peers     map[string]*peer
	pending   map[link]struct{}
	subs      *subscription.Registry
	acceptors []acceptor
	endpoints []string
	remotes   []string
	serial    uint64

	watchMu  sync.Mutex
	watchers map[chan struct{}]struct{}

	runCtx context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewSocket creates an unbound, unconnected socket.
func NewSocket(ctx *Context, kind Kind, opts ...Option) (*Socket, error) {
	if ctx == nil {
		return nil, errors.WrapInvalid(fmt.Errorf("nil context"), "Socket", "NewSocket", "validate context")
	}
	if !kind.valid() {
		return nil, errors.WrapInvalid(fmt.Errorf("unknown socket kind %d", kind), "Socket", "NewSocket", "validate kind")
	}

	o := options{sendHWM: DefaultSendHWM, recvHWM: DefaultRecvHWM}
	for _, opt := range opts {
		opt(&o)
	}
	if o.identity == "" {
		o.identity = uuid.NewString()
	}
	if o.name == "" {
		o.name = fmt.Sprintf("%s-%.8s", kind, o.identity)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default().With("component", "socket")
	}

	runCtx, cancel := context.WithCancel(context.Background())
	s := &Socket{
		ctx:       ctx,
		kind:      kind,
		id:        o.identity,
		name:      o.name,
		sendHWM:   o.sendHWM,
		logger:    logger.With("socket", o.name, "kind", kind.String()),
		metrics:   o.metrics.CoreMetrics(),
		ctrlReady: make(chan struct{}, 1),
		peers:     make(map[string]*peer),
		pending:   make(map[link]struct{}),
		watchers:  make(map[chan struct{}]struct{}),
		runCtx:    runCtx,
		cancel:    cancel,
	}
	s.inbox = buffer.NewCircularBuffer[Message](o.recvHWM,
		buffer.WithOverflowPolicy[Message](buffer.DropNewest),
		buffer.WithDropCallback[Message](func(Message) { s.recordDrop("recv_hwm") }),
	)
	if kind.publishes() {
		s.subs = subscription.New(nil)
	} else {
		s.subs = subscription.New(s.broadcastControl)
	}
	return s, nil
}

// Kind returns the socket pattern.
func (s *Socket) Kind() Kind { return s.kind }

// Identity returns the identity announced to peers.
func (s *Socket) Identity() string { return s.id }

// Name returns the socket's log and metrics name.
func (s *Socket) Name() string { return s.name }

// Endpoints returns the resolved addresses this socket is bound to.
func (s *Socket) Endpoints() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.endpoints...)
}

// Remotes returns the addresses passed to Connect, in call order.
func (s *Socket) Remotes() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.remotes...)
}

// Peers returns the number of connected peers.
func (s *Socket) Peers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}

func parseSupported(method, raw string) (Address, error) {
	addr, err := ParseAddress(raw)
	if err != nil {
		return Address{}, errors.WrapInvalid(err, "Socket", method, "parse address")
	}
	if !addr.supported() {
		return Address{}, errors.WrapInvalid(
			fmt.Errorf("%w: %s", errors.ErrUnsupportedTransport, addr.Scheme), "Socket", method, "select transport")
	}
	return addr, nil
}

// Bind listens on addr and accepts peers until the socket is closed.
func (s *Socket) Bind(raw string) error {
	addr, err := parseSupported("Bind", raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WrapInvalid(errors.ErrClosed, "Socket", "Bind", "bind "+raw)
	}

	acc, err := listen(s.ctx, addr)
	if err != nil {
		return errors.Wrap(err, "Socket", "Bind", "listen on "+raw)
	}
	s.acceptors = append(s.acceptors, acc)
	s.endpoints = append(s.endpoints, acc.endpoint())

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		acc.serve(s.accept)
	}()

	s.logger.Debug("Socket bound", "endpoint", acc.endpoint())
	return nil
}

// Connect starts a background dial loop to addr. It returns once the address
// is validated; the connection is (re)established asynchronously.
func (s *Socket) Connect(raw string) error {
	addr, err := parseSupported("Connect", raw)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WrapInvalid(errors.ErrClosed, "Socket", "Connect", "connect "+raw)
	}
	s.remotes = append(s.remotes, addr.String())

	s.wg.Add(1)
	go s.dialLoop(addr)
	return nil
}

func (s *Socket) dialLoop(addr Address) {
	defer s.wg.Done()

	backoff := retry.NewBackoff(retry.Reconnect())
	for s.runCtx.Err() == nil {
		p, err := s.connectOnce(addr)
		if err == nil {
			backoff.Reset()
			select {
			case <-p.done:
			case <-s.runCtx.Done():
				return
			}
		} else if errors.Is(err, errors.ErrIncompatiblePeer) {
			s.logger.Warn("Peer rejected", "endpoint", addr.String(), "error", err)
		}

		timer := time.NewTimer(backoff.Next())
		select {
		case <-s.runCtx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Socket) connectOnce(addr Address) (*peer, error) {
	l, err := dial(s.runCtx, s.ctx, addr)
	if err != nil {
		return nil, err
	}
	if !s.track(l) {
		_ = l.Close()
		return nil, errors.ErrClosed
	}
	g, err := s.handshake(l)
	s.untrack(l)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	p, err := s.attach(l, g)
	if err != nil {
		_ = l.Close()
		return nil, err
	}
	return p, nil
}

// accept runs on the acceptor goroutine for every inbound link.
func (s *Socket) accept(l link) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = l.Close()
		return
	}
	s.pending[l] = struct{}{}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		g, err := s.handshake(l)
		s.untrack(l)
		if err == nil {
			_, err = s.attach(l, g)
		}
		if err != nil {
			_ = l.Close()
			s.logger.Debug("Inbound peer rejected", "remote", l.RemoteAddr(), "error", err)
		}
	}()
}

func (s *Socket) track(l link) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.pending[l] = struct{}{}
	return true
}

func (s *Socket) untrack(l link) {
	s.mu.Lock()
	delete(s.pending, l)
	s.mu.Unlock()
}

// handshake exchanges greetings. The write runs concurrently with the read
// because in-memory pipes are unbuffered.
func (s *Socket) handshake(l link) (greeting, error) {
	_ = l.SetDeadline(time.Now().Add(handshakeTimeout))

	writeErr := make(chan error, 1)
	go func() {
		writeErr <- l.WriteSequence(greeting{kind: s.kind, identity: s.id}.sequence())
	}()

	seq, err := l.ReadSequence()
	if err != nil {
		_ = l.Close()
		<-writeErr
		return greeting{}, fmt.Errorf("%w: read greeting: %v", errors.ErrTransportFailure, err)
	}
	if err := <-writeErr; err != nil {
		return greeting{}, fmt.Errorf("%w: write greeting: %v", errors.ErrTransportFailure, err)
	}

	g, err := parseGreeting(seq)
	if err != nil {
		return greeting{}, err
	}
	if !s.kind.compatible(g.kind) {
		return greeting{}, fmt.Errorf("%w: %s cannot talk to %s", errors.ErrIncompatiblePeer, s.kind, g.kind)
	}

	_ = l.SetDeadline(time.Time{})
	return g, nil
}

func (s *Socket) attach(l link, g greeting) (*peer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errors.ErrClosed
	}

	s.serial++
	p := newPeer(fmt.Sprintf("%s#%d", g.identity, s.serial), g, l, s.sendHWM)
	s.peers[p.key] = p

	if !s.kind.publishes() {
		for _, topic := range s.subs.Topics(localLink) {
			for i := s.subs.Count(localLink, topic); i > 0; i-- {
				s.enqueue(p, frame.Sequence{frame.SubscribeFrame(topic)})
			}
		}
	}

	s.wg.Add(2)
	go s.writeLoop(p)
	go s.readLoop(p)

	s.recordPeers(len(s.peers))
	s.logger.Debug("Peer connected", "peer", g.identity, "peer_kind", g.kind.String(), "remote", l.RemoteAddr())
	return p, nil
}

func (s *Socket) detach(p *peer, cause error) {
	if !p.close() {
		return
	}

	s.mu.Lock()
	delete(s.peers, p.key)
	var dropped [][]byte
	if !s.closed && s.kind.publishes() {
		dropped = s.subs.DropLink(subscription.Link(p.key))
	}
	remaining := len(s.peers)
	s.mu.Unlock()

	s.recordPeers(remaining)
	s.logger.Debug("Peer disconnected", "peer", p.id, "error", cause)

	if s.kind == XPub {
		for _, topic := range dropped {
			s.deliverControl(Message{Frames: frame.Sequence{frame.UnsubscribeFrame(topic)}, Peer: p.id})
		}
	}
}

func (s *Socket) writeLoop(p *peer) {
	defer s.wg.Done()
	for {
		for {
			seq, ok := p.out.Read()
			if !ok {
				break
			}
			if err := p.link.WriteSequence(seq); err != nil {
				s.detach(p, err)
				return
			}
			s.recordMessage("out")
		}
		select {
		case <-p.out.Ready():
		case <-p.done:
			return
		}
	}
}

func (s *Socket) readLoop(p *peer) {
	defer s.wg.Done()
	for {
		seq, err := p.link.ReadSequence()
		if err != nil {
			s.detach(p, err)
			return
		}
		s.handleInbound(p, seq)
	}
}

func (s *Socket) handleInbound(p *peer, seq frame.Sequence) {
	if s.kind.publishes() {
		if !frame.IsControl(seq) {
			s.recordDrop("unexpected")
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return
		}
		_, _, err := s.subs.Apply(subscription.Link(p.key), seq[0])
		s.mu.Unlock()
		if err != nil {
			s.recordDrop("malformed")
			return
		}
		if s.kind == XPub {
			s.deliverControl(Message{Frames: seq, Peer: p.id})
		}
		return
	}

	if len(seq) == 0 {
		s.recordDrop("malformed")
		return
	}
	if s.kind == Sub {
		s.mu.Lock()
		matched := s.subs.Matches(localLink, seq[0])
		s.mu.Unlock()
		if !matched {
			s.recordDrop("filtered")
			return
		}
	}
	s.deliver(Message{Frames: seq, Peer: p.id})
}

func (s *Socket) deliver(msg Message) {
	if err := s.inbox.Write(msg); err != nil {
		return
	}
	s.recordMessage("in")
	s.notifyWatchers()
}

func (s *Socket) deliverControl(msg Message) {
	s.ctrlMu.Lock()
	s.control = append(s.control, msg)
	s.ctrlMu.Unlock()

	select {
	case s.ctrlReady <- struct{}{}:
	default:
	}
	s.recordMessage("in")
	s.notifyWatchers()
}

func (s *Socket) popControl() (Message, bool) {
	s.ctrlMu.Lock()
	defer s.ctrlMu.Unlock()
	if len(s.control) == 0 {
		return Message{}, false
	}
	msg := s.control[0]
	s.control[0] = Message{}
	s.control = s.control[1:]
	return msg, true
}

// enqueue queues seq for p. Caller holds mu.
func (s *Socket) enqueue(p *peer, seq frame.Sequence) {
	if err := p.out.Write(seq); err != nil {
		s.recordDrop("send_hwm")
	}
}

// broadcastControl mirrors a local subscription change to every peer. It is
// the Sub/XSub registry sender and runs with mu held.
func (s *Socket) broadcastControl(_ subscription.Link, control frame.Frame) error {
	for _, p := range s.peers {
		s.enqueue(p, frame.Sequence{control})
	}
	return nil
}

// Send queues seq for delivery. Pub/XPub deliver to matching peers, XSub
// applies control frames and forwards anything else upstream. It returns false
// when the socket is closed, seq is empty or the kind cannot send.
func (s *Socket) Send(seq frame.Sequence) bool {
	if len(seq) == 0 {
		s.recordDrop("malformed")
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}

	switch s.kind {
	case Pub, XPub:
		topic := seq[0]
		for key, p := range s.peers {
			if s.subs.Matches(subscription.Link(key), topic) {
				s.enqueue(p, seq)
			}
		}
		return true

	case XSub:
		if frame.IsControl(seq) {
			_, _, _ = s.subs.Handle(localLink, seq[0])
			return true
		}
		for _, p := range s.peers {
			s.enqueue(p, seq)
		}
		return true

	default:
		return false
	}
}

// Subscribe adds one reference to topic on a Sub or XSub socket.
func (s *Socket) Subscribe(topic []byte) error {
	return s.changeSubscription("Subscribe", topic, s.subs.Subscribe)
}

// Unsubscribe removes one reference to topic on a Sub or XSub socket.
func (s *Socket) Unsubscribe(topic []byte) error {
	return s.changeSubscription("Unsubscribe", topic, s.subs.Unsubscribe)
}

func (s *Socket) changeSubscription(method string, topic []byte, apply func(subscription.Link, []byte) error) error {
	if s.kind.publishes() {
		return errors.WrapInvalid(errors.ErrUnsupported, "Socket", method, s.kind.String()+" socket")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.WrapInvalid(errors.ErrClosed, "Socket", method, "change subscription")
	}
	return apply(localLink, topic)
}

// HasSubscriber reports whether a message on topic would currently be
// delivered: to at least one peer for Pub/XPub, or locally for Sub/XSub.
func (s *Socket) HasSubscriber(topic []byte) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.kind.publishes() {
		return s.subs.Matches(localLink, topic)
	}
	for key := range s.peers {
		if s.subs.Matches(subscription.Link(key), topic) {
			return true
		}
	}
	return false
}

// Recv returns the next inbound message. A zero timeout polls without
// blocking; a negative timeout blocks until a message arrives or the socket
// closes.
func (s *Socket) Recv(timeout time.Duration) (Message, bool) {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		if msg, ok := s.popControl(); ok {
			return msg, true
		}
		if msg, ok := s.inbox.Read(); ok {
			return msg, true
		}
		if timeout == 0 || s.runCtx.Err() != nil {
			return Message{}, false
		}
		select {
		case <-s.ctrlReady:
		case <-s.inbox.Ready():
		case <-expired:
			return Message{}, false
		case <-s.runCtx.Done():
			return Message{}, false
		}
	}
}

func (s *Socket) readable() bool {
	s.ctrlMu.Lock()
	pending := len(s.control)
	s.ctrlMu.Unlock()
	return pending > 0 || s.inbox.Size() > 0
}

func (s *Socket) addWatcher(ch chan struct{}) {
	s.watchMu.Lock()
	s.watchers[ch] = struct{}{}
	s.watchMu.Unlock()
}

func (s *Socket) removeWatcher(ch chan struct{}) {
	s.watchMu.Lock()
	delete(s.watchers, ch)
	s.watchMu.Unlock()
}

func (s *Socket) notifyWatchers() {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for ch := range s.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Close unbinds, disconnects every peer and waits for the socket's
// goroutines. Queued outbound messages are discarded. Close is idempotent.
func (s *Socket) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancel()

	acceptors := s.acceptors
	peers := make([]*peer, 0, len(s.peers))
	for key, p := range s.peers {
		peers = append(peers, p)
		if s.kind.publishes() {
			s.subs.DropLink(subscription.Link(key))
		}
	}
	s.peers = make(map[string]*peer)
	for l := range s.pending {
		_ = l.Close()
	}
	s.mu.Unlock()

	for _, acc := range acceptors {
		_ = acc.Close()
	}
	for _, p := range peers {
		p.close()
	}
	_ = s.inbox.Close()

	s.wg.Wait()
	s.recordPeers(0)
	s.notifyWatchers()
	s.logger.Debug("Socket closed")
	return nil
}

func (s *Socket) recordMessage(direction string) {
	if s.metrics != nil {
		s.metrics.RecordSocketMessage(s.name, direction)
	}
}

func (s *Socket) recordDrop(reason string) {
	if s.metrics != nil {
		s.metrics.RecordSocketDrop(s.name, reason)
	}
}

func (s *Socket) recordPeers(n int) {
	if s.metrics != nil {
		s.metrics.RecordSocketPeers(s.name, n)
	}
}
