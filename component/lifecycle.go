package component

import (
	"context"
)

// State represents the current lifecycle state of a component
type State int

const (
	// StateStopped indicates the component is not running. It is the initial state.
	StateStopped State = iota
	// StateRunning indicates the component owns its endpoints and is processing
	StateRunning
	// StateFailed indicates the component could not start
	StateFailed
)

// String returns a string representation of the component state
func (cs State) String() string {
	switch cs {
	case StateStopped:
		return "stopped"
	case StateRunning:
		return "running"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Device is a component that binds its own endpoints and runs a loop on its
// own goroutine until destroyed:
//   - Init(ctx) error   // bind, connect and start; ctx bounds the loop
//   - Destroy() error   // cooperative stop, idempotent
type Device interface {
	Discoverable
	Init(ctx context.Context) error
	Destroy() error
	State() State
}

// IsDevice checks if a component supports the device lifecycle
func IsDevice(comp Discoverable) bool {
	_, ok := comp.(Device)
	return ok
}
