// internal/httpmw/maxbody.go

package httpmw

import "net/http"

// MaxBody limits request bodies. A declared Content-Length over the limit is
// rejected up front with 413; chunked bodies fail when read past the limit.
// The dashboard only serves GET, so the limit is normally tiny.
func MaxBody(limit int64) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}
