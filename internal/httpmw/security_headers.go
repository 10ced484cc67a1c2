package httpmw

import "net/http"

// Security note: CSRF protection is not implemented because it is not applicable.
// The dashboard is stateless (no cookies, no sessions) and read-only (GET only).

// dashboardCSP allows the embedded stylesheet and nothing else; the pages
// carry no scripts.
const dashboardCSP = "default-src 'none'; style-src 'self'; img-src 'self'; base-uri 'none'; form-action 'none'; frame-ancestors 'self'; object-src 'none'"

// SecurityHeaders adds the response hardening headers. HSTS is only sent on
// encrypted requests, as browsers ignore it over plain HTTP and it would
// otherwise mislead anyone reading the headers of an HTTP ONLY deployment.
func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()

		t, ok := TransportFromContext(r.Context())
		if !ok {
			t = Transport{TLS: r.TLS != nil}
		}
		if t.Encrypted() {
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		h.Set("Content-Security-Policy", dashboardCSP)
		h.Set("X-Content-Type-Options", "nosniff")
		// the dashboard may be framed by the CMS page on the same origin
		h.Set("X-Frame-Options", "SAMEORIGIN")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Permissions-Policy", "accelerometer=(), camera=(), geolocation=(), gyroscope=(), magnetometer=(), microphone=(), payment=(), usb=()")
		h.Set("X-Permitted-Cross-Domain-Policies", "none")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		h.Set("Cross-Origin-Resource-Policy", "same-origin")

		next.ServeHTTP(w, r)
	})
}
