// Package health turns component health reports into the three-state status
// served by the process /health endpoint.
//
// A component is healthy, degraded (running but has recorded errors, such as
// dropped malformed frames or failed sends) or unhealthy (not running). The
// process status aggregates every component: any unhealthy child makes the
// whole unhealthy, otherwise any degraded child makes it degraded.
//
// Error messages copied from components are sanitized so that endpoint
// addresses and credentials do not leak through an unauthenticated endpoint.
package health
