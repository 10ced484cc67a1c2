// Package health answers the admin liveness and readiness endpoints.
//
// These describe this process, not the host it reports on: a failing
// database probe shows up on the dashboard and in metrics but never makes
// the service unready, since partial dashboards are still useful.
//
// [ShutdownGate] flips readiness off at the start of shutdown so the proxy
// stops routing before listeners close.
package health
