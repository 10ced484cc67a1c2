package httpmw

import (
	"bufio"
	"context"
	"errors"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
)

var errNoHijack = errors.New("httpmw: underlying ResponseWriter does not implement http.Hijacker")

// accessWriter records what AccessLog reports. When the request span is
// recording it also opens a "response.write" child span on the first byte,
// so slow probes show up as time-to-first-byte and slow clients as write
// blocking.
type accessWriter struct {
	http.ResponseWriter
	ctx   context.Context
	start time.Time

	status  int
	written int64

	started bool
	span    trace.Span
	blocked time.Duration
	err     error
}

func (aw *accessWriter) begin() {
	if aw.started {
		return
	}
	aw.started = true
	if !trace.SpanFromContext(aw.ctx).IsRecording() {
		return
	}
	_, aw.span = otel.Tracer("linnemanlabs/httpmw").Start(aw.ctx, "response.write",
		trace.WithAttributes(attribute.Float64("http.server.ttfb_seconds", time.Since(aw.start).Seconds())))
}

func (aw *accessWriter) end() {
	if aw.span == nil {
		return
	}
	aw.span.SetAttributes(
		attribute.Int("http.response.status_code", aw.code()),
		attribute.Int64("http.response.body.size", aw.written),
		attribute.Float64("http.server.write.block_seconds", aw.blocked.Seconds()),
	)
	if aw.err != nil {
		aw.span.RecordError(aw.err)
		aw.span.SetStatus(codes.Error, aw.err.Error())
	}
	aw.span.End()
}

func (aw *accessWriter) code() int {
	if aw.status == 0 {
		return http.StatusOK
	}
	return aw.status
}

func (aw *accessWriter) WriteHeader(code int) {
	aw.begin()
	aw.status = code
	t := time.Now()
	aw.ResponseWriter.WriteHeader(code)
	aw.blocked += time.Since(t)
}

func (aw *accessWriter) Write(b []byte) (int, error) {
	aw.begin()
	if aw.status == 0 {
		aw.status = http.StatusOK
	}
	t := time.Now()
	n, err := aw.ResponseWriter.Write(b)
	aw.blocked += time.Since(t)
	aw.written += int64(n)
	if aw.err == nil {
		aw.err = err
	}
	return n, err
}

func (aw *accessWriter) Flush() {
	if f, ok := aw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (aw *accessWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := aw.ResponseWriter.(http.Hijacker); ok {
		return h.Hijack()
	}
	return nil, nil, errNoHijack
}

// WithLogger puts a request logger in the context. It carries only values
// the server derived itself; query strings, host and user agent stay out.
func WithLogger(base log.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			peer, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				peer = r.RemoteAddr
			}
			client := ClientIPFromContext(ctx)
			if client == "" {
				client = peer
			}
			kv := []any{
				"request_id", RequestIDFromContext(ctx),
				"client.address", client,
				"network.peer.address", peer,
				"url.scheme", schemeFromRequest(r),
			}

			if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
				attrs := make([]attribute.KeyValue, 0, len(kv)/2)
				for i := 0; i < len(kv); i += 2 {
					attrs = append(attrs, attribute.String(kv[i].(string), kv[i+1].(string)))
				}
				span.SetAttributes(attrs...)
			}

			L := base.With(append(kv, "http.request.method", r.Method, "url.path", r.URL.Path)...)
			next.ServeHTTP(w, r.WithContext(log.WithContext(ctx, L)))
		})
	}
}

// quiet reports paths that never get an access log line.
func quiet(p string) bool {
	switch p {
	case "/-/ready", "/-/healthy":
		return true
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".css", ".js", ".png", ".svg", ".ico", ".woff2", ".map":
		return true
	}
	return false
}

// AccessLog writes one "http request" line per request. Mount it inside the
// router so the chi pattern is known; unmatched requests log the raw path.
func AccessLog() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			aw := &accessWriter{ResponseWriter: w, ctx: r.Context(), start: time.Now()}
			next.ServeHTTP(aw, r)
			aw.end()

			if quiet(r.URL.Path) {
				return
			}
			route := routePattern(r)
			if route == "unmatched" {
				route = r.URL.Path
			}

			ctx := r.Context()
			log.FromContext(ctx).Info(ctx, "http request",
				"http.response.status_code", aw.code(),
				"http.server.request.duration", time.Since(aw.start).Seconds(),
				"http.response.body.size", aw.written,
				"http.request.body.size", max(r.ContentLength, 0),
				"http.route", route,
			)
		})
	}
}

// schemeFromRequest prefers the TransportSecurity decision. Without it the
// first X-Forwarded-Proto value, the URL scheme and the TLS state are tried
// in turn. The result is always "http" or "https".
func schemeFromRequest(r *http.Request) string {
	if t, ok := TransportFromContext(r.Context()); ok {
		return t.Scheme()
	}
	first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-Proto"), ",")
	candidates := []string{strings.TrimSpace(first)}
	if r.URL != nil {
		candidates = append(candidates, r.URL.Scheme)
	}
	for _, c := range candidates {
		if c = strings.ToLower(c); c == "http" || c == "https" {
			return c
		}
	}
	if r.TLS != nil {
		return "https"
	}
	return "http"
}

// Scope tags the request logger and span with the handler serving it.
func Scope(handler string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if span := trace.SpanFromContext(ctx); span.IsRecording() {
				span.SetAttributes(attribute.String("app.handler", handler))
			}
			ctx = log.WithContext(ctx, log.FromContext(ctx).With("handler", handler))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
