package forwarder

import (
	"context"
	"time"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
	"github.com/sjohnr/jzmq-sdk-sub001/subscription"
	"github.com/sjohnr/jzmq-sdk-sub001/transport"
)

// Route and drop labels used in metrics.
const (
	routeLocalToCluster = "local_to_cluster"
	routeLocalToLocal   = "local_to_local"
	routeClusterToLocal = "cluster_to_local"

	dropMalformed  = "malformed"
	dropSendFailed = "send_failed"
	dropLoopback   = "loopback"
)

// run is the poll loop. Poll is its only suspension point; cancellation is
// checked between iterations.
func (f *Forwarder) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	for ctx.Err() == nil {
		start := time.Now()
		ready, err := f.poller.Poll(ctx, f.config.PollInterval)
		f.local.observePoll(time.Since(start).Seconds())
		if err != nil {
			return
		}
		for _, i := range ready {
			f.drain(i)
		}
	}
}

// drain handles up to DrainLimit messages waiting on endpoint i.
func (f *Forwarder) drain(i int) {
	s := f.endpoints[i]
	n := 0
	for ; n < f.config.DrainLimit; n++ {
		msg, ok := s.Recv(0)
		if !ok {
			break
		}
		switch i {
		case frontendSubscribe:
			f.routeLocal(msg)
		case clusterSubscribe:
			f.routeCluster(msg)
		case frontendPublish:
			f.handleControl(LinkFrontendPublish, msg)
		case clusterPublish:
			f.handleControl(LinkClusterPublish, msg)
		}
	}
	f.local.observeBatch(n)
}

// routeLocal sends local producer traffic to the cluster and to local
// subscribers, each only while the registry has a matching subscription.
func (f *Forwarder) routeLocal(msg transport.Message) {
	topic, err := f.decode(msg.Frames)
	if err != nil {
		f.drop(dropMalformed, endpointNames[frontendSubscribe], err)
		return
	}

	if f.subscribed(LinkClusterPublish, topic) {
		f.forward(clusterPublish, routeLocalToCluster, &f.localToCluster, msg.Frames)
	}
	if f.subscribed(LinkFrontendPublish, topic) {
		f.forward(frontendPublish, routeLocalToLocal, &f.localToLocal, msg.Frames)
	}
}

// routeCluster sends cluster traffic to local subscribers only. Messages that
// originate from this forwarder's own cluster-publish were fanned out locally
// when they were first published.
func (f *Forwarder) routeCluster(msg transport.Message) {
	if msg.Peer == f.id {
		f.loopback.Add(1)
		f.recordDropped(dropLoopback)
		return
	}

	topic, err := f.decode(msg.Frames)
	if err != nil {
		f.drop(dropMalformed, endpointNames[clusterSubscribe], err)
		return
	}
	if f.subscribed(LinkFrontendPublish, topic) {
		f.forward(frontendPublish, routeClusterToLocal, &f.clusterToLocal, msg.Frames)
	}
}

// handleControl counts a subscription change from a publish endpoint under
// link; the registry mirrors it upstream.
func (f *Forwarder) handleControl(link subscription.Link, msg transport.Message) {
	if !frame.IsControl(msg.Frames) {
		f.drop(dropMalformed, string(link), errors.Malformed("expected a single control frame"))
		return
	}
	code, topic, err := frame.DecodeControl(msg.Frames[0])
	if err != nil {
		f.drop(dropMalformed, string(link), err)
		return
	}

	f.regMu.Lock()
	if code == frame.Subscribe {
		err = f.subs.Subscribe(link, topic)
	} else {
		err = f.subs.Unsubscribe(link, topic)
	}
	f.regMu.Unlock()

	f.controlFrames.Add(1)
	if f.metrics != nil {
		f.metrics.RecordControlFrame(f.config.Name, string(link), code.String())
	}
	if err != nil {
		f.drop(dropSendFailed, string(link), err)
		return
	}

	f.logger.Debug("Subscription changed",
		"link", string(link), "code", code.String(), "topic", string(topic), "peer", msg.Peer)
}

func (f *Forwarder) decode(seq frame.Sequence) ([]byte, error) {
	topic, err := frame.ExtractTopic(seq)
	if err != nil {
		return nil, err
	}
	if f.config.StrictFrames {
		if len(seq) != 2 {
			return nil, errors.Malformed("pub/sub message has %d frames, want 2", len(seq))
		}
		if _, _, err := frame.DecodeEnvelope(seq[1]); err != nil {
			return nil, err
		}
	}
	return topic, nil
}

func (f *Forwarder) forward(endpoint int, route string, counter interface{ Add(int64) int64 }, seq frame.Sequence) {
	if !f.endpoints[endpoint].Send(seq) {
		f.drop(dropSendFailed, endpointNames[endpoint],
			errors.WrapTransient(errors.ErrTransportFailure, "Forwarder", "forward", route))
		return
	}

	counter.Add(1)
	f.bytes.Add(int64(seq.Size()))
	f.lastActivity.Store(time.Now())
	if f.metrics != nil {
		f.metrics.RecordForwarded(f.config.Name, route)
	}
}

// drop counts a dropped message and logs it, at most a few times per second.
func (f *Forwarder) drop(reason, endpoint string, err error) {
	switch reason {
	case dropMalformed:
		f.malformed.Add(1)
	case dropSendFailed:
		f.sendFailures.Add(1)
	}
	f.recordDropped(reason)

	if f.dropLog.Allow() {
		f.logger.Warn("Dropped message", "reason", reason, "endpoint", endpoint, "error", err)
	}
}

func (f *Forwarder) recordDropped(reason string) {
	if f.metrics != nil {
		f.metrics.RecordDropped(f.config.Name, reason)
	}
}
