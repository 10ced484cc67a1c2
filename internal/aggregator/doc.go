// Package aggregator runs a fixed registry of probes once per call and
// assembles the results, together with static display facts, into an
// immutable Snapshot whose every string is already redacted and escaped.
//
// Collect never fails. A probe that errors, panics or outlives its timeout
// degrades its own entry and nothing else.
package aggregator
