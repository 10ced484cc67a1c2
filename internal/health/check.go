package health

import (
	"context"
	"net/http"
	"sync/atomic"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

// Check is evaluated per request: nil is healthy, an error carries the reason.
type Check interface{ Check(context.Context) error }

// CheckFunc adapts a function into a Check.
type CheckFunc func(context.Context) error

func (f CheckFunc) Check(ctx context.Context) error { return f(ctx) }

// Fixed always passes, or always fails with reason.
func Fixed(ok bool, reason string) CheckFunc {
	if ok {
		return func(context.Context) error { return nil }
	}
	if reason == "" {
		reason = "unhealthy"
	}
	err := xerrors.New(reason)
	return func(context.Context) error { return err }
}


// ShutdownGate fails readiness once closed. The zero value is open.
type ShutdownGate struct {
	closed atomic.Bool
	reason atomic.Pointer[string]
}

// Close fails readiness with reason ("shutting down" when empty).
func (g *ShutdownGate) Close(reason string) {
	if reason == "" {
		reason = "shutting down"
	}
	g.reason.Store(&reason)
	g.closed.Store(true)
}

func (g *ShutdownGate) Closed() bool { return g.closed.Load() }

func (g *ShutdownGate) Check(context.Context) error {
	if !g.closed.Load() {
		return nil
	}
	if r := g.reason.Load(); r != nil {
		return xerrors.New(*r)
	}
	return xerrors.New("shutting down")
}

// Handler writes 200 with okBody when c passes (or is nil), else 503 with
// the reason.
func Handler(c Check, okBody string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		if c != nil {
			if err := c.Check(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(okBody + "\n"))
	}
}

// HealthzHandler is the liveness endpoint.
func HealthzHandler(c Check) http.HandlerFunc { return Handler(c, "ok") }

// ReadyzHandler is the readiness endpoint.
func ReadyzHandler(c Check) http.HandlerFunc { return Handler(c, "ready") }
