package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/health"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
)

type Options struct {
	Logger log.Logger
	Port   int

	// Routes mounts the application, normally dashboard.Handler.Routes.
	Routes func(chi.Router)

	// Health and Readiness are also exposed on the public port for load
	// balancers that cannot reach the admin port. Nil leaves them unrouted.
	Health    health.Check
	Readiness health.Check

	MetricsMW   func(http.Handler) http.Handler
	RateLimitMW func(http.Handler) http.Handler

	// TrustedHops is the number of reverse proxies allowed to speak for the
	// client address and scheme.
	TrustedHops int

	UseRecoverMW bool
	OnPanic      func()
}
