package health

import "time"

const (
	stateHealthy   = "healthy"
	stateDegraded  = "degraded"
	stateUnhealthy = "unhealthy"
)

// NewHealthy creates a healthy status.
func NewHealthy(component, message string) Status {
	return newStatus(component, stateHealthy, message)
}

// NewUnhealthy creates an unhealthy status.
func NewUnhealthy(component, message string) Status {
	return newStatus(component, stateUnhealthy, message)
}

// NewDegraded creates a degraded status.
func NewDegraded(component, message string) Status {
	return newStatus(component, stateDegraded, message)
}

func newStatus(component, state, message string) Status {
	return Status{
		Component: component,
		Healthy:   state == stateHealthy,
		Status:    state,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// Aggregate rolls sub-statuses up into one. The worst state wins: any
// unhealthy child makes the aggregate unhealthy, otherwise any degraded child
// makes it degraded.
func Aggregate(component string, subs []Status) Status {
	if len(subs) == 0 {
		return NewHealthy(component, "no forwarders configured")
	}

	worst := stateHealthy
	for _, sub := range subs {
		switch {
		case sub.IsUnhealthy():
			worst = stateUnhealthy
		case sub.IsDegraded() && worst == stateHealthy:
			worst = stateDegraded
		}
	}

	var status Status
	switch worst {
	case stateUnhealthy:
		status = NewUnhealthy(component, "one or more forwarders are unhealthy")
	case stateDegraded:
		status = NewDegraded(component, "one or more forwarders are degraded")
	default:
		status = NewHealthy(component, "all forwarders are healthy")
	}
	status.SubStatuses = append([]Status(nil), subs...)
	return status
}
