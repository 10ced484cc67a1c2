package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/health"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/httpmw"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/xerrors"
)

// MaxRequestBody caps request bodies; the dashboard only serves GET.
const MaxRequestBody = 1024

// NewHandler builds the public handler. main owns the *http.Server so it
// can drain on shutdown.
func NewHandler(opts *Options) http.Handler {
	r := chi.NewRouter()

	// route-aware middleware has to run inside the router to see the pattern
	r.Use(middleware.Compress(5,
		"text/html",
		"text/css",
		"application/json",
	))
	r.Use(middleware.GetHead)
	r.Use(httpmw.AnnotateHTTPRoute)
	if opts.MetricsMW != nil {
		r.Use(opts.MetricsMW)
	}
	r.Use(httpmw.AccessLog())
	r.Use(httpmw.MaxBody(MaxRequestBody))

	if opts.Health != nil {
		r.Method(http.MethodGet, "/-/healthy", health.HealthzHandler(opts.Health))
	}
	if opts.Readiness != nil {
		r.Method(http.MethodGet, "/-/ready", health.ReadyzHandler(opts.Readiness))
	}
	if opts.Routes != nil {
		opts.Routes(r)
	}

	var recoverMW httpmw.Middleware
	if opts.UseRecoverMW {
		recoverMW = httpmw.Recover(opts.Logger, opts.OnPanic)
	}

	return httpmw.Chain(r,
		// security headers need the transport to decide on HSTS
		httpmw.TransportSecurity(opts.TrustedHops),
		// outside recover so 429 and 500 responses carry them too
		httpmw.SecurityHeaders,
		recoverMW,
		httpmw.RequestID("X-Request-Id"),
		httpmw.ClientIPWithOptions(httpmw.ClientIPOptions{TrustedHops: opts.TrustedHops}),
		// after client IP so buckets are keyed by the resolved address
		opts.RateLimitMW,
		tracing,
		httpmw.TraceResponseHeaders("X-Trace-Id", "X-Span-Id"),
		httpmw.WithLogger(opts.Logger),
	)
}

// shouldTrace skips health checks and static assets.
func shouldTrace(p string) bool {
	if p == "/-/healthy" || p == "/-/ready" || p == "/favicon.ico" || p == "/robots.txt" {
		return false
	}
	if strings.HasPrefix(p, "/static/") {
		return false
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".svg", ".ico", ".woff2", ".map":
		return false
	}
	return true
}

func tracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(
		next,
		"http.server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTrace(r.URL.Path)
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			// AnnotateHTTPRoute renames the span once chi has matched
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithPublicEndpointFn(func(*http.Request) bool { return true }),
	)
}

// Server timeout defaults. Probes are bounded well below WriteTimeout.
const (
	DefaultReadHeaderTimeout = 5 * time.Second
	DefaultReadTimeout       = 10 * time.Second
	DefaultWriteTimeout      = 15 * time.Second
	DefaultIdleTimeout       = 60 * time.Second
	DefaultMaxHeaderBytes    = 64 << 10
	DefaultShutdownTimeout   = 5 * time.Second
)

func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		ReadTimeout:       DefaultReadTimeout,
		WriteTimeout:      DefaultWriteTimeout,
		IdleTimeout:       DefaultIdleTimeout,
		MaxHeaderBytes:    DefaultMaxHeaderBytes,
	}
}

// Start listens on opts.Port (default 8080) and serves in the background.
// The returned stop drains in-flight requests and is safe to call twice.
func Start(ctx context.Context, opts *Options) (func(context.Context) error, error) {
	port := opts.Port
	if port == 0 {
		port = 8080
	}
	addr := fmt.Sprintf(":%d", port)

	srv := NewServer(addr, NewHandler(opts))

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, xerrors.Wrapf(err, "listen %s", addr)
	}

	go func() {
		opts.Logger.Info(ctx, "http server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			opts.Logger.Error(ctx, err, "http server error")
		}
	}()

	var once sync.Once
	stop := func(sctx context.Context) (retErr error) {
		once.Do(func() {
			opts.Logger.Info(sctx, "http server shutting down")
			c, cancel := context.WithTimeout(sctx, DefaultShutdownTimeout)
			defer cancel()
			retErr = srv.Shutdown(c)
		})
		return retErr
	}
	return stop, nil
}
