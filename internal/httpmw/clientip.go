package httpmw

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ClientIPOptions configures how much of the forwarding chain is trusted.
type ClientIPOptions struct {
	// TrustedHops is the number of trusted reverse proxies between the client
	// and this server. 0 = no proxies (forwarded headers ignored), 1 = single
	// nginx or ALB (rightmost entry), 2 = CDN + ALB (second from end), etc.
	TrustedHops int
}

// ClientIP stores the client address in the request context, trusting no
// proxies.
func ClientIP(next http.Handler) http.Handler {
	return ClientIPWithOptions(ClientIPOptions{})(next)
}

// ClientIPWithOptions returns middleware that extracts the client IP using the
// given options. Forwarded headers from untrusted peers are stripped so that
// nothing downstream can be fooled by them.
func ClientIPWithOptions(opts ClientIPOptions) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := extractRealClientAddr(r, opts.TrustedHops)
			next.ServeHTTP(w, r.WithContext(WithClientIP(r.Context(), ip)))
		})
	}
}

// peerAddr splits RemoteAddr into an IP string and reports whether the peer
// is allowed to speak for the client: a private address with trusted hops
// configured. ok is false when RemoteAddr is unusable.
func peerAddr(r *http.Request, trustedHops int) (addr string, trusted, ok bool) {
	if r.RemoteAddr == "" {
		return "0.0.0.0", false, false
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr, false, false
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return "0.0.0.0", false, false
	}
	return host, trustedHops > 0 && (ip.IsPrivate() || ip.IsLoopback()), true
}

func stripForwarded(r *http.Request) {
	r.Header.Del("X-Forwarded-For")
	r.Header.Del("X-Forwarded-Proto")
}

// forwardedEntry picks the entry written by the outermost trusted proxy,
// counting trustedHops from the right. ok is false when the header has
// fewer entries than trusted proxies.
func forwardedEntry(header string, trustedHops int) (string, bool) {
	parts := strings.Split(header, ",")
	idx := len(parts) - trustedHops
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(parts[idx]), true
}

func extractRealClientAddr(r *http.Request, trustedHops int) string {
	addr, trusted, ok := peerAddr(r, trustedHops)
	if !ok {
		return addr
	}
	if !trusted {
		stripForwarded(r)
		return addr
	}

	xf := r.Header.Get("X-Forwarded-For")
	if xf == "" {
		return addr
	}
	candidate, ok := forwardedEntry(xf, trustedHops)
	if !ok {
		// fewer entries than proxies: misconfiguration or spoofing, fail closed
		stripForwarded(r)
		return addr
	}
	if net.ParseIP(candidate) != nil {
		return candidate
	}
	return addr
}

func ClientIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey{}).(string)
	return ip
}

func WithClientIP(ctx context.Context, ip string) context.Context {
	if ip == "" {
		return ctx
	}
	return context.WithValue(ctx, clientIPKey{}, ip)
}
