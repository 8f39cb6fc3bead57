package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/sjohnr/jzmq-sdk-sub001/component"
)

var (
	endpointRegex   = regexp.MustCompile(`(?:tcp|inproc|wss?|https?|e?pgm)://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	portRegex       = regexp.MustCompile(`:\d{2,5}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|key|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Status represents the health state of a component or system
type Status struct {
	Component   string    `json:"component"`
	Healthy     bool      `json:"healthy"` // true if status is "healthy"
	Status      string    `json:"status"`  // "healthy", "unhealthy", "degraded"
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	SubStatuses []Status  `json:"sub_statuses,omitempty"`
	Metrics     *Metrics  `json:"metrics,omitempty"`
}

// Metrics contains health-related metrics
type Metrics struct {
	Uptime       time.Duration `json:"uptime"`
	ErrorCount   int           `json:"error_count"`
	LastActivity time.Time     `json:"last_activity,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == stateHealthy
}

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool {
	return s.Status == stateDegraded
}

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool {
	return s.Status == stateUnhealthy
}

// sanitizeErrorMessage replaces endpoint addresses, paths, IPs, ports and
// credential assignments with placeholders.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}

	// endpoints first, they contain paths and ports
	sanitized := endpointRegex.ReplaceAllString(err, "[ENDPOINT]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	sanitized = portRegex.ReplaceAllString(sanitized, "[PORT]")

	lower := strings.ToLower(sanitized)
	for _, word := range []string{"password", "token", "key", "secret", "credential"} {
		if strings.Contains(lower, word) {
			sanitized = credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
			break
		}
	}

	return sanitized
}

// FromComponentHealth converts a component.HealthStatus to a health.Status.
// A healthy component that has recorded errors is reported as degraded.
func FromComponentHealth(name string, ch component.HealthStatus) Status {
	var status Status
	switch {
	case !ch.Healthy:
		status = NewUnhealthy(name, "Component not running")
	case ch.ErrorCount > 0:
		status = NewDegraded(name, "Component running with errors")
	default:
		status = NewHealthy(name, "Component healthy")
	}

	if ch.LastError != "" {
		status.Message = sanitizeErrorMessage(ch.LastError)
	}

	status.Metrics = &Metrics{
		Uptime:       ch.Uptime,
		ErrorCount:   ch.ErrorCount,
		LastActivity: ch.LastCheck,
	}
	return status
}

// FromComponents aggregates the health of every component under one system name.
func FromComponents(system string, components []component.Discoverable) Status {
	subs := make([]Status, 0, len(components))
	for _, c := range components {
		subs = append(subs, FromComponentHealth(c.Meta().Name, c.Health()))
	}
	return Aggregate(system, subs)
}
