package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorClass tells callers whether retrying can help.
type ErrorClass int

const (
	// ErrorTransient may succeed on retry.
	ErrorTransient ErrorClass = iota
	// ErrorInvalid will fail the same way every time.
	ErrorInvalid
	// ErrorFatal stops the component.
	ErrorFatal
)

func (ec ErrorClass) String() string {
	switch ec {
	case ErrorTransient:
		return "transient"
	case ErrorInvalid:
		return "invalid"
	case ErrorFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

var (
	// Wire errors
	ErrMalformedFrame   = errors.New("malformed frame")
	ErrEncoding         = errors.New("encoding error")
	ErrTransportFailure = errors.New("transport failure")

	// Transport errors
	ErrClosed               = errors.New("socket closed")
	ErrUnsupportedTransport = errors.New("unsupported transport")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrAddressInUse         = errors.New("address already in use")
	ErrNotBound             = errors.New("endpoint not bound")
	ErrIncompatiblePeer     = errors.New("incompatible peer socket")
	ErrUnsupported          = errors.New("operation not supported by socket kind")
	ErrUnknownRef           = errors.New("unknown inproc reference")
	ErrBufferFull           = errors.New("buffer full")

	ErrAlreadyStarted = errors.New("component already started")

	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing required configuration")
)

// ClassifiedError carries an error class along the wrap chain.
type ClassifiedError struct {
	Class ErrorClass
	Err   error
}

func (ce *ClassifiedError) Error() string { return ce.Err.Error() }

func (ce *ClassifiedError) Unwrap() error { return ce.Err }

// New is errors.New, re-exported so callers need a single errors import.
func New(text string) error {
	return errors.New(text)
}

// Is is errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

func classOf(err error) (ErrorClass, bool) {
	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Class, true
	}
	return 0, false
}

// IsTransient reports whether err is worth retrying: transport failures,
// full queues, cancelled or expired contexts, network timeouts and refused
// or reset connections.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorTransient
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	return errors.Is(err, ErrTransportFailure) ||
		errors.Is(err, ErrNotBound) ||
		errors.Is(err, ErrBufferFull) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// IsFatal reports whether err should stop the component.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorFatal
	}
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingConfig) ||
		errors.Is(err, ErrAddressInUse)
}

// IsInvalid reports whether err stems from input that can never be accepted.
func IsInvalid(err error) bool {
	if err == nil {
		return false
	}
	if class, ok := classOf(err); ok {
		return class == ErrorInvalid
	}
	return errors.Is(err, ErrMalformedFrame) ||
		errors.Is(err, ErrEncoding) ||
		errors.Is(err, ErrInvalidAddress) ||
		errors.Is(err, ErrUnknownRef)
}

// Wrap annotates err as "component.method: action failed: err".
func Wrap(err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s.%s: %s failed: %w", component, method, action, err)
}

func wrapClass(class ErrorClass, err error, component, method, action string) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Class: class, Err: Wrap(err, component, method, action)}
}

// WrapTransient is Wrap plus the transient class.
func WrapTransient(err error, component, method, action string) error {
	return wrapClass(ErrorTransient, err, component, method, action)
}

// WrapFatal is Wrap plus the fatal class.
func WrapFatal(err error, component, method, action string) error {
	return wrapClass(ErrorFatal, err, component, method, action)
}

// WrapInvalid is Wrap plus the invalid class.
func WrapInvalid(err error, component, method, action string) error {
	return wrapClass(ErrorInvalid, err, component, method, action)
}

// Malformed returns ErrMalformedFrame annotated with a reason.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedFrame, fmt.Sprintf(format, args...))
}
