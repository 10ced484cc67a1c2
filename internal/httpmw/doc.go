// Package httpmw provides HTTP middleware for the public dashboard server.
//
// httpserver.NewHandler composes it in two layers. Outside the router,
// outermost first: transport security, security headers, recover, request
// ID, client IP, rate limiting, tracing, trace headers, request logger.
// Inside the chi router, where the route pattern is known: route
// annotation, metrics, access log, body limit.
//
// User-supplied data (query strings, user-agent, cookies, host) is kept
// out of logs to prevent PII leaks and log injection. Forwarded headers are
// only honoured from a private peer when trusted hops are configured.
package httpmw
