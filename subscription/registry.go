// Package subscription tracks reference-counted topic subscriptions per link
// and mirrors every change onto the wire as a control frame.
//
// A Registry is owned by a single goroutine (a socket's lock holder or a
// forwarder's poll loop) and does no locking of its own.
package subscription

import (
	"bytes"
	"sort"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
)

// Link names the logical link a subscription was received on.
type Link string

// Sender mirrors a control frame upstream on behalf of link.
type Sender func(link Link, control frame.Frame) error

// Registry is an explicit (link, topic) → count map.
type Registry struct {
	links  map[Link]map[string]int
	sender Sender
}

// New creates an empty registry. A nil sender disables wire mirroring.
func New(sender Sender) *Registry {
	return &Registry{
		links:  make(map[Link]map[string]int),
		sender: sender,
	}
}

// Subscribe adds one reference to (link, topic) and emits SUBSCRIBE.
// The frame is emitted on every call, not only on the 0 → 1 transition,
// so upstream hops keep matching counts.
func (r *Registry) Subscribe(link Link, topic []byte) error {
	r.increment(link, topic)
	return r.emit(link, frame.SubscribeFrame(topic))
}

// Unsubscribe removes one reference to (link, topic) and emits UNSUBSCRIBE.
// A missing entry leaves the table untouched; the frame is still emitted.
func (r *Registry) Unsubscribe(link Link, topic []byte) error {
	r.decrement(link, topic)
	return r.emit(link, frame.UnsubscribeFrame(topic))
}

// Apply updates counts from an inbound control frame without emitting anything.
func (r *Registry) Apply(link Link, control frame.Frame) (frame.ControlCode, []byte, error) {
	code, topic, err := frame.DecodeControl(control)
	if err != nil {
		return 0, nil, err
	}
	if code == frame.Subscribe {
		r.increment(link, topic)
	} else {
		r.decrement(link, topic)
	}
	return code, topic, nil
}

// Handle applies an inbound control frame and mirrors it through the sender.
func (r *Registry) Handle(link Link, control frame.Frame) (frame.ControlCode, []byte, error) {
	code, topic, err := frame.DecodeControl(control)
	if err != nil {
		return 0, nil, err
	}
	if code == frame.Subscribe {
		return code, topic, r.Subscribe(link, topic)
	}
	return code, topic, r.Unsubscribe(link, topic)
}

func (r *Registry) increment(link Link, topic []byte) {
	topics, ok := r.links[link]
	if !ok {
		topics = make(map[string]int)
		r.links[link] = topics
	}
	topics[string(topic)]++
}

func (r *Registry) decrement(link Link, topic []byte) {
	topics, ok := r.links[link]
	if !ok {
		return
	}
	key := string(topic)
	count, ok := topics[key]
	if !ok {
		return
	}
	if count <= 1 {
		delete(topics, key)
		if len(topics) == 0 {
			delete(r.links, link)
		}
		return
	}
	topics[key] = count - 1
}

func (r *Registry) emit(link Link, control frame.Frame) error {
	if r.sender == nil {
		return nil
	}
	if err := r.sender(link, control); err != nil {
		return errors.WrapTransient(err, "Registry", "emit", "mirror control frame")
	}
	return nil
}

// IsActive reports whether the exact (link, topic) entry has a positive count.
func (r *Registry) IsActive(link Link, topic []byte) bool {
	return r.Count(link, topic) > 0
}

// Count returns the reference count of (link, topic).
func (r *Registry) Count(link Link, topic []byte) int {
	return r.links[link][string(topic)]
}

// Topics returns the active topics on link in byte order.
func (r *Registry) Topics(link Link) [][]byte {
	topics := r.links[link]
	out := make([][]byte, 0, len(topics))
	for t := range topics {
		out = append(out, []byte(t))
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i], out[j]) < 0 })
	return out
}

// Links returns every link holding at least one active topic, sorted.
func (r *Registry) Links() []Link {
	out := make([]Link, 0, len(r.links))
	for l := range r.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DropLink removes every entry of a departed link. Each topic is returned once
// per reference it held so callers can propagate the matching UNSUBSCRIBEs.
func (r *Registry) DropLink(link Link) [][]byte {
	topics, ok := r.links[link]
	if !ok {
		return nil
	}
	delete(r.links, link)

	keys := make([]string, 0, len(topics))
	for t := range topics {
		keys = append(keys, t)
	}
	sort.Strings(keys)

	var dropped [][]byte
	for _, t := range keys {
		for i := 0; i < topics[t]; i++ {
			dropped = append(dropped, []byte(t))
		}
	}
	return dropped
}

// Matches reports whether any active topic on link is a prefix of msgTopic.
func (r *Registry) Matches(link Link, msgTopic []byte) bool {
	for t := range r.links[link] {
		if Match([]byte(t), msgTopic) {
			return true
		}
	}
	return false
}

// Match is the prefix rule shared with every peer: an empty subscription
// matches all topics.
func Match(subTopic, msgTopic []byte) bool {
	return bytes.HasPrefix(msgTopic, subTopic)
}
