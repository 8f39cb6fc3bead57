package forwarder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/sjohnr/jzmq-sdk-sub001/component"
	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
	"github.com/sjohnr/jzmq-sdk-sub001/metric"
	"github.com/sjohnr/jzmq-sdk-sub001/pkg/retry"
	"github.com/sjohnr/jzmq-sdk-sub001/subscription"
	"github.com/sjohnr/jzmq-sdk-sub001/transport"
)

// Registry links. Each counts the subscriptions of one side of the forwarder.
const (
	LinkFrontendPublish subscription.Link = "frontend-publish"
	LinkClusterPublish  subscription.Link = "cluster-publish"
)

// Endpoint indexes, in poll registration order.
const (
	frontendSubscribe = iota
	clusterSubscribe
	frontendPublish
	clusterPublish
	endpointCount
)

var endpointNames = [endpointCount]string{
	"frontend-subscribe",
	"cluster-subscribe",
	"frontend-publish",
	"cluster-publish",
}

// Deps holds runtime dependencies for a Forwarder.
type Deps struct {
	Config          Config
	Context         *transport.Context      // shared inproc namespace; a private one is created when nil
	MetricsRegistry *metric.MetricsRegistry // optional
	Logger          *slog.Logger            // optional
}

// Stats is a snapshot of a forwarder's counters.
type Stats struct {
	LocalToCluster int64 `json:"local_to_cluster"`
	LocalToLocal   int64 `json:"local_to_local"`
	ClusterToLocal int64 `json:"cluster_to_local"`
	ControlFrames  int64 `json:"control_frames"`
	Malformed      int64 `json:"malformed"`
	Loopback       int64 `json:"loopback"`
	SendFailures   int64 `json:"send_failures"`
	Bytes          int64 `json:"bytes"`
}

// Forwarder relays topic-filtered traffic between a local bus and a cluster bus.
type Forwarder struct {
	id       string
	config   Config
	tctx     *transport.Context
	logger   *slog.Logger
	registry *metric.MetricsRegistry
	metrics  *metric.Metrics
	local    *instanceMetrics
	dropLog  *rate.Limiter

	mu        sync.Mutex
	state     component.State
	endpoints [endpointCount]*transport.Socket
	poller    *transport.Poller
	cancel    context.CancelFunc
	done      chan struct{}
	startTime time.Time
	lastError string

	// regMu guards subs. The loop is the only writer; queries come from other
	// goroutines.
	regMu sync.Mutex
	subs  *subscription.Registry

	localToCluster atomic.Int64
	localToLocal   atomic.Int64
	clusterToLocal atomic.Int64
	controlFrames  atomic.Int64
	malformed      atomic.Int64
	loopback       atomic.Int64
	sendFailures   atomic.Int64
	bytes          atomic.Int64
	lastActivity   atomic.Value // time.Time
}

var _ component.Device = (*Forwarder)(nil)

// New validates the configuration and creates a stopped forwarder.
func New(deps Deps) (*Forwarder, error) {
	if err := deps.Config.Validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config.withDefaults()

	id := uuid.NewString()
	if cfg.Name == "" {
		cfg.Name = "forwarder-" + id[:8]
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default().With("component", "forwarder")
	}
	logger = logger.With("forwarder", cfg.Name)

	tctx := deps.Context
	if tctx == nil {
		tctx = transport.NewContext()
	}

	local, err := newInstanceMetrics(deps.MetricsRegistry, cfg.Name)
	if err != nil {
		logger.Warn("Forwarder metrics disabled", "error", err)
	}

	f := &Forwarder{
		id:       id,
		config:   cfg,
		tctx:     tctx,
		logger:   logger,
		registry: deps.MetricsRegistry,
		metrics:  deps.MetricsRegistry.CoreMetrics(),
		local:    local,
		dropLog:  rate.NewLimiter(rate.Every(time.Second), 5),
		state:    component.StateStopped,
	}
	f.lastActivity.Store(time.Time{})
	return f, nil
}

// ID returns the forwarder's instance id, which is also the identity its
// cluster-publish endpoint announces.
func (f *Forwarder) ID() string { return f.id }

// Name returns the configured name.
func (f *Forwarder) Name() string { return f.config.Name }

// State returns the lifecycle state.
func (f *Forwarder) State() component.State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Endpoints returns the address of each endpoint keyed by endpoint name: the
// resolved bind address for the three bound endpoints and the cluster peer for
// cluster-subscribe. It is empty while stopped.
func (f *Forwarder) Endpoints() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make(map[string]string)
	for i, s := range f.endpoints {
		if s == nil {
			continue
		}
		if eps := s.Endpoints(); len(eps) > 0 {
			out[endpointNames[i]] = eps[0]
		} else if remotes := s.Remotes(); len(remotes) > 0 {
			out[endpointNames[i]] = remotes[0]
		}
	}
	return out
}

// Init binds the frontend and cluster-publish endpoints, connects
// cluster-subscribe to the cluster peer and starts the poll loop. Cancelling
// ctx stops the loop as Destroy would, but the endpoints stay open until
// Destroy.
func (f *Forwarder) Init(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == component.StateRunning {
		return errors.WrapInvalid(errors.ErrAlreadyStarted, "Forwarder", "Init", "start "+f.config.Name)
	}

	if err := f.openEndpoints(ctx); err != nil {
		f.closeEndpoints()
		f.state = component.StateFailed
		f.lastError = err.Error()
		f.recordState(false)
		return err
	}

	f.regMu.Lock()
	f.subs = subscription.New(f.mirror)
	f.regMu.Unlock()

	f.poller = transport.NewPoller()
	f.poller.Register(f.endpoints[:]...)

	loopCtx, cancel := context.WithCancel(ctx)
	f.cancel = cancel
	f.done = make(chan struct{})
	f.startTime = time.Now()
	f.lastError = ""
	f.state = component.StateRunning
	f.recordState(true)

	go f.run(loopCtx, f.done)

	f.logger.Info("Forwarder started",
		"id", f.id,
		"frontend_subscribe", f.config.FrontendSubscribe,
		"frontend_publish", f.config.FrontendPublish,
		"cluster_publish", f.config.ClusterPublish,
		"cluster_peer", f.config.ClusterPeer)
	return nil
}

func (f *Forwarder) openEndpoints(ctx context.Context) error {
	specs := [endpointCount]struct {
		kind transport.Kind
		opts []transport.Option
	}{
		frontendSubscribe: {kind: transport.XSub},
		clusterSubscribe:  {kind: transport.XSub},
		frontendPublish:   {kind: transport.XPub},
		clusterPublish:    {kind: transport.XPub, opts: []transport.Option{transport.WithIdentity(f.id)}},
	}

	for i, spec := range specs {
		opts := append([]transport.Option{
			transport.WithName(f.config.Name + "/" + endpointNames[i]),
			transport.WithSendHWM(f.config.SendHWM),
			transport.WithRecvHWM(f.config.RecvHWM),
			transport.WithLogger(f.logger),
			transport.WithMetrics(f.registry),
		}, spec.opts...)

		s, err := transport.NewSocket(f.tctx, spec.kind, opts...)
		if err != nil {
			return errors.Wrap(err, "Forwarder", "Init", "create "+endpointNames[i])
		}
		f.endpoints[i] = s
	}

	binds := []struct {
		index int
		addr  string
	}{
		{frontendSubscribe, f.config.FrontendSubscribe},
		{clusterPublish, f.config.ClusterPublish},
		{frontendPublish, f.config.FrontendPublish},
	}
	for _, b := range binds {
		s := f.endpoints[b.index]
		err := retry.Do(ctx, retry.Quick(), func() error {
			return s.Bind(b.addr)
		})
		if err != nil {
			return errors.Wrap(err, "Forwarder", "Init", "bind "+endpointNames[b.index])
		}
	}

	if err := f.endpoints[clusterSubscribe].Connect(f.config.ClusterPeer); err != nil {
		return errors.Wrap(err, "Forwarder", "Init", "connect cluster-subscribe")
	}
	return nil
}

// Destroy stops the loop after its current iteration and closes every
// endpoint. Calling it on a stopped forwarder is a no-op.
func (f *Forwarder) Destroy() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state != component.StateRunning {
		f.closeEndpoints()
		f.state = component.StateStopped
		return nil
	}

	f.cancel()
	<-f.done
	f.poller.Close()
	f.closeEndpoints()
	f.state = component.StateStopped
	f.recordState(false)

	f.logger.Info("Forwarder stopped", "stats", f.Stats())
	return nil
}

func (f *Forwarder) closeEndpoints() {
	for i, s := range f.endpoints {
		if s != nil {
			_ = s.Close()
			f.endpoints[i] = nil
		}
	}
}

// ClusterSubscribed reports whether a remote forwarder currently subscribes
// to a prefix of topic.
func (f *Forwarder) ClusterSubscribed(topic []byte) bool {
	return f.subscribed(LinkClusterPublish, topic)
}

// LocalSubscribed reports whether a local subscriber currently subscribes to
// a prefix of topic.
func (f *Forwarder) LocalSubscribed(topic []byte) bool {
	return f.subscribed(LinkFrontendPublish, topic)
}

func (f *Forwarder) subscribed(link subscription.Link, topic []byte) bool {
	f.regMu.Lock()
	defer f.regMu.Unlock()
	return f.subs != nil && f.subs.Matches(link, topic)
}

// Stats returns a snapshot of the forwarding counters.
func (f *Forwarder) Stats() Stats {
	return Stats{
		LocalToCluster: f.localToCluster.Load(),
		LocalToLocal:   f.localToLocal.Load(),
		ClusterToLocal: f.clusterToLocal.Load(),
		ControlFrames:  f.controlFrames.Load(),
		Malformed:      f.malformed.Load(),
		Loopback:       f.loopback.Load(),
		SendFailures:   f.sendFailures.Load(),
		Bytes:          f.bytes.Load(),
	}
}

// Meta returns the component metadata.
func (f *Forwarder) Meta() component.Metadata {
	return component.Metadata{
		Name: f.config.Name,
		Type: "forwarder",
		Description: fmt.Sprintf("Federation forwarder %s <-> %s, cluster peer %s",
			f.config.FrontendSubscribe, f.config.FrontendPublish, f.config.ClusterPeer),
		Version: "1.0.0",
	}
}

// Health reports healthy while the loop is running.
func (f *Forwarder) Health() component.HealthStatus {
	f.mu.Lock()
	running := f.state == component.StateRunning
	loopAlive := running && !isClosed(f.done)
	lastError := f.lastError
	start := f.startTime
	f.mu.Unlock()

	var uptime time.Duration
	if running {
		uptime = time.Since(start)
	}
	if running && !loopAlive && lastError == "" {
		lastError = "poll loop exited"
	}

	return component.HealthStatus{
		Healthy:    loopAlive,
		LastCheck:  time.Now(),
		ErrorCount: int(f.malformed.Load() + f.sendFailures.Load()),
		LastError:  lastError,
		Uptime:     uptime,
	}
}

// DataFlow returns rates since the last Init.
func (f *Forwarder) DataFlow() component.FlowMetrics {
	f.mu.Lock()
	start := f.startTime
	f.mu.Unlock()

	s := f.Stats()
	forwarded := s.LocalToCluster + s.LocalToLocal + s.ClusterToLocal
	failed := s.Malformed + s.SendFailures
	lastActivity, _ := f.lastActivity.Load().(time.Time)

	var perSecond, bytesPerSecond, errorRate float64
	if !start.IsZero() {
		if uptime := time.Since(start).Seconds(); uptime > 0 {
			perSecond = float64(forwarded) / uptime
			bytesPerSecond = float64(s.Bytes) / uptime
		}
	}
	if total := forwarded + failed; total > 0 {
		errorRate = float64(failed) / float64(total)
	}

	return component.FlowMetrics{
		MessagesPerSecond: perSecond,
		BytesPerSecond:    bytesPerSecond,
		ErrorRate:         errorRate,
		LastActivity:      lastActivity,
	}
}

func isClosed(ch chan struct{}) bool {
	if ch == nil {
		return true
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

// mirror is the registry sender: it forwards a subscription change upstream.
// Local subscriptions go to both subscribe endpoints; cluster subscriptions
// go to frontend-subscribe only.
func (f *Forwarder) mirror(link subscription.Link, control frame.Frame) error {
	seq := frame.Sequence{control}
	ok := f.endpoints[frontendSubscribe].Send(seq)
	if link == LinkFrontendPublish {
		ok = f.endpoints[clusterSubscribe].Send(seq) && ok
	}
	if !ok {
		return fmt.Errorf("%w: mirror %s control frame", errors.ErrTransportFailure, link)
	}
	return nil
}

func (f *Forwarder) recordState(running bool) {
	if f.metrics != nil {
		f.metrics.RecordForwarderState(f.config.Name, running)
	}
}
