package httpmw

import (
	"context"
	"net/http"
	"strings"
)

type transportKey struct{}

// Transport is how a request reached the service. It satisfies the HTTPS
// probe's request context.
type Transport struct {
	// TLS is set when this process terminated TLS itself.
	TLS bool
	// Forwarded is set when a trusted proxy reported https.
	Forwarded bool
}

func (t Transport) Encrypted() bool { return t.TLS || t.Forwarded }

// Scheme is "https" or "http".
func (t Transport) Scheme() string {
	if t.Encrypted() {
		return "https"
	}
	return "http"
}

// RequestTransport inspects r. X-Forwarded-Proto is believed only from a
// private peer when trustedHops > 0, the same rule ClientIPWithOptions uses
// for X-Forwarded-For.
func RequestTransport(r *http.Request, trustedHops int) Transport {
	t := Transport{TLS: r.TLS != nil}
	if t.TLS {
		return t
	}
	if _, trusted, ok := peerAddr(r, trustedHops); !ok || !trusted {
		return t
	}
	xfp := r.Header.Get("X-Forwarded-Proto")
	if xfp == "" {
		return t
	}
	proto, ok := forwardedEntry(xfp, trustedHops)
	if !ok {
		// single-value form: most proxies overwrite rather than append
		proto = strings.TrimSpace(xfp)
	}
	t.Forwarded = strings.EqualFold(proto, "https")
	return t
}

// TransportSecurity stores the request's Transport in the context.
func TransportSecurity(trustedHops int) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t := RequestTransport(r, trustedHops)
			next.ServeHTTP(w, r.WithContext(WithTransport(r.Context(), t)))
		})
	}
}

func WithTransport(ctx context.Context, t Transport) context.Context {
	return context.WithValue(ctx, transportKey{}, t)
}

// TransportFromContext returns the stored Transport; ok is false when the
// middleware did not run.
func TransportFromContext(ctx context.Context) (Transport, bool) {
	t, ok := ctx.Value(transportKey{}).(Transport)
	return t, ok
}
