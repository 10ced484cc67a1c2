// Package ratelimit throttles dashboard requests per client address.
//
// Every dashboard request runs the probe set, including a database round
// trip, so the limit protects the database as much as this process.
//
// State is in memory and per process. It does not help against
// distributed floods or bandwidth abuse; upstream filtering handles those.
// Once MaxClients addresses are tracked, new addresses share a single
// overflow bucket instead of growing the map.
package ratelimit
