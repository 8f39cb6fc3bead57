// Package buffer provides a generic, thread-safe bounded queue with an
// overflow policy. Sockets use it for their send and receive high-water marks.
//
// Statistics are always collected. Readers that want to park instead of poll
// wait on Ready, which is signalled after every successful write.
package buffer

// Buffer represents a bounded FIFO parameterized by item type T.
type Buffer[T any] interface {
	// Write adds an item. When the buffer is full the overflow policy decides
	// which item is lost; DropNewest reports the loss as errors.ErrBufferFull.
	Write(item T) error

	// Read retrieves and removes the oldest item.
	Read() (T, bool)

	// ReadBatch retrieves and removes up to max items.
	ReadBatch(max int) []T

	// Peek returns the oldest item without removing it.
	Peek() (T, bool)

	Size() int
	Capacity() int
	IsFull() bool
	IsEmpty() bool

	// Clear removes all items and returns them.
	Clear() []T

	// Ready is signalled after a write; it holds at most one pending signal.
	Ready() <-chan struct{}

	Stats() *Statistics

	// Close rejects further writes. Items already queued stay readable.
	Close() error
}

// OverflowPolicy defines how the buffer behaves when it reaches capacity.
type OverflowPolicy int

const (
	// DropOldest removes the oldest item to make room for new items.
	DropOldest OverflowPolicy = iota

	// DropNewest drops new items when the buffer is full.
	DropNewest
)

// String returns a human-readable representation of the overflow policy.
func (p OverflowPolicy) String() string {
	switch p {
	case DropOldest:
		return "DropOldest"
	case DropNewest:
		return "DropNewest"
	default:
		return "Unknown"
	}
}

// DropCallback is called, outside the buffer lock, with each dropped item.
type DropCallback[T any] func(item T)

// Option configures buffer behavior.
type Option[T any] func(*bufferOptions[T])

type bufferOptions[T any] struct {
	overflowPolicy OverflowPolicy
	dropCallback   DropCallback[T]
}

// WithOverflowPolicy sets the overflow behavior. Defaults to DropOldest.
func WithOverflowPolicy[T any](policy OverflowPolicy) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.overflowPolicy = policy
	}
}

// WithDropCallback sets a callback invoked for every dropped item.
func WithDropCallback[T any](callback DropCallback[T]) Option[T] {
	return func(opts *bufferOptions[T]) {
		opts.dropCallback = callback
	}
}

// NewCircularBuffer creates a ring buffer holding at most capacity items.
// A non-positive capacity is raised to 1.
func NewCircularBuffer[T any](capacity int, options ...Option[T]) Buffer[T] {
	opts := &bufferOptions[T]{overflowPolicy: DropOldest}
	for _, opt := range options {
		if opt != nil {
			opt(opts)
		}
	}
	return newCircularBuffer(capacity, opts)
}
