package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorClass_String(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorTransient, "transient"},
		{ErrorInvalid, "invalid"},
		{ErrorFatal, "fatal"},
		{ErrorClass(999), "unknown"},
	}

	for _, test := range tests {
		t.Run(test.expected, func(t *testing.T) {
			assert.Equal(t, test.expected, test.class.String())
		})
	}
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"transport failure", ErrTransportFailure, true},
		{"buffer full", ErrBufferFull, true},
		{"not bound", ErrNotBound, true},
		{"context deadline exceeded", context.DeadlineExceeded, true},
		{"context canceled", context.Canceled, true},
		{"malformed frame", ErrMalformedFrame, false},
		{"connection refused", fmt.Errorf("dial tcp: %w", syscall.ECONNREFUSED), true},
		{"network timeout", &net.DNSError{Err: "i/o timeout", IsTimeout: true}, true},
		{"plain error", errors.New("peer said no"), false},
		{"classified transient", &ClassifiedError{Class: ErrorTransient, Err: fmt.Errorf("test")}, true},
		{"classified fatal", &ClassifiedError{Class: ErrorFatal, Err: fmt.Errorf("test")}, false},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			assert.Equal(t, test.expected, IsTransient(test.err))
		})
	}
}

func TestIsInvalid(t *testing.T) {
	assert.False(t, IsInvalid(nil))
	assert.True(t, IsInvalid(ErrMalformedFrame))
	assert.True(t, IsInvalid(ErrEncoding))
	assert.True(t, IsInvalid(Malformed("declared length %d exceeds %d", 24, 1)))
	assert.True(t, IsInvalid(ErrInvalidAddress))
	assert.False(t, IsInvalid(ErrTransportFailure))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.True(t, IsFatal(ErrInvalidConfig))
	assert.True(t, IsFatal(ErrAddressInUse))
	assert.False(t, IsFatal(ErrMalformedFrame))
}

func TestWrap(t *testing.T) {
	assert.Nil(t, Wrap(nil, "comp", "method", "action"))

	err := Wrap(ErrMalformedFrame, "forwarder", "handleLocal", "decode topic")
	assert.Equal(t, "forwarder.handleLocal: decode topic failed: malformed frame", err.Error())
	assert.True(t, errors.Is(err, ErrMalformedFrame))
	assert.True(t, IsInvalid(err))
}

func TestWrapClassified(t *testing.T) {
	base := fmt.Errorf("boom")

	transient := WrapTransient(base, "transport", "Send", "write")
	fatal := WrapFatal(base, "forwarder", "Init", "bind")
	invalid := WrapInvalid(base, "config", "Validate", "poll interval")

	assert.True(t, IsTransient(transient))
	assert.True(t, IsFatal(fatal))
	assert.True(t, IsInvalid(invalid))

	var ce *ClassifiedError
	assert.True(t, errors.As(fatal, &ce))
	assert.Equal(t, ErrorFatal, ce.Class)
	assert.Equal(t, "forwarder.Init: bind failed: boom", fatal.Error())
	assert.True(t, errors.Is(fatal, base))

	assert.Nil(t, WrapTransient(nil, "a", "b", "c"))
	assert.Nil(t, WrapFatal(nil, "a", "b", "c"))
	assert.Nil(t, WrapInvalid(nil, "a", "b", "c"))
}
