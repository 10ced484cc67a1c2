// Package markersrc provides the places marker files can live: the local
// filesystem and an S3 bucket. Both satisfy probe.MarkerSource.
package markersrc

// MaxMarkerBytes caps how much of a marker is read. Markers carry a
// timestamp or a short note, never a payload.
const MaxMarkerBytes = 4 << 10
