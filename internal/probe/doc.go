// Package probe holds single-shot checks against one external dependency
// each. A probe never returns an error: every failure, including a missing
// dependency, a failed check or an I/O error, is folded into a Status.
//
// The dependencies themselves are reached through small capability
// interfaces ([DBHandle], [RequestContext], [MarkerSource]) so hosts inject
// real adapters and tests inject fakes.
package probe
