package httpmw

import "net/http"

// Middleware wraps a handler. Plain func(http.Handler) http.Handler values
// convert implicitly, so chi middleware composes with these.
type Middleware = func(http.Handler) http.Handler

// Chain wraps h so that mws[0] runs first. Nil entries are skipped, which
// lets callers leave optional middleware unset.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}
