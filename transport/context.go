package transport

import (
	"fmt"
	"net"
	"sync"

	"github.com/sjohnr/jzmq-sdk-sub001/errors"
	"github.com/sjohnr/jzmq-sdk-sub001/frame"
)

// Context owns the inproc namespace and the inproc handle table. Sockets
// created from different Contexts cannot reach each other over inproc.
type Context struct {
	mu      sync.Mutex
	inproc  map[string]*pipeListener
	refs    map[uint32]any
	nextRef uint32
}

// NewContext creates an empty, independent context.
func NewContext() *Context {
	return &Context{
		inproc: make(map[string]*pipeListener),
		refs:   make(map[uint32]any),
	}
}

// Ref stores v in the handle table and returns a reference that can travel
// between sockets of this context as a 4-byte frame.
func (c *Context) Ref(v any) frame.Frame {
	c.mu.Lock()
	defer c.mu.Unlock()

	for {
		c.nextRef++
		if _, taken := c.refs[c.nextRef]; !taken && c.nextRef != 0 {
			break
		}
	}
	c.refs[c.nextRef] = v
	return frame.EncodeInprocRef(c.nextRef)
}

// Deref resolves a reference frame produced by Ref.
func (c *Context) Deref(f frame.Frame) (any, error) {
	ref, err := frame.ParseInprocRef(f)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.refs[ref]
	if !ok {
		return nil, fmt.Errorf("%w: %d", errors.ErrUnknownRef, ref)
	}
	return v, nil
}

// Release drops a reference. Releasing an unknown reference is a no-op.
func (c *Context) Release(f frame.Frame) {
	ref, err := frame.ParseInprocRef(f)
	if err != nil {
		return
	}
	c.mu.Lock()
	delete(c.refs, ref)
	c.mu.Unlock()
}

func (c *Context) bindInproc(name string) (*pipeListener, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.inproc[name]; exists {
		return nil, fmt.Errorf("%w: inproc://%s", errors.ErrAddressInUse, name)
	}
	l := newPipeListener(name, func() { c.unbindInproc(name) })
	c.inproc[name] = l
	return l, nil
}

func (c *Context) unbindInproc(name string) {
	c.mu.Lock()
	delete(c.inproc, name)
	c.mu.Unlock()
}

func (c *Context) dialInproc(name string) (net.Conn, error) {
	c.mu.Lock()
	l, ok := c.inproc[name]
	c.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("%w: inproc://%s", errors.ErrNotBound, name)
	}
	return l.dial()
}
