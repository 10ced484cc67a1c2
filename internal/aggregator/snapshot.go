package aggregator

import (
	"encoding/json"
	"time"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/probe"
)

// ProbeResult is one probe's escaped Status.
type ProbeResult struct {
	Name string
	probe.Status
	Duration time.Duration
}

// Field is a display fact, already redacted and escaped.
type Field struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Snapshot is the result of one Collect. It is never modified after
// construction; accessors hand out copies.
type Snapshot struct {
	takenAt time.Time
	elapsed time.Duration

	probes     []ProbeResult
	probeIndex map[string]int
	fields     []Field
	fieldIndex map[string]int
}

func newSnapshot(takenAt time.Time, probes []ProbeResult, fields []Field) Snapshot {
	s := Snapshot{
		takenAt:    takenAt,
		probes:     probes,
		probeIndex: make(map[string]int, len(probes)),
		fields:     fields,
		fieldIndex: make(map[string]int, len(fields)),
	}
	for i, p := range probes {
		s.probeIndex[p.Name] = i
	}
	for i, f := range fields {
		s.fieldIndex[f.Name] = i
	}
	return s
}

func (s Snapshot) TakenAt() time.Time     { return s.takenAt }
func (s Snapshot) Elapsed() time.Duration { return s.elapsed }
func (s Snapshot) Len() int               { return len(s.probes) }

// Probes returns results in registration order.
func (s Snapshot) Probes() []ProbeResult {
	return append([]ProbeResult(nil), s.probes...)
}

func (s Snapshot) Status(name string) (probe.Status, bool) {
	i, ok := s.probeIndex[name]
	if !ok {
		return probe.Status{}, false
	}
	return s.probes[i].Status, true
}

// Fields returns display fields in configuration order.
func (s Snapshot) Fields() []Field {
	return append([]Field(nil), s.fields...)
}

func (s Snapshot) Field(name string) (string, bool) {
	i, ok := s.fieldIndex[name]
	if !ok {
		return "", false
	}
	return s.fields[i].Value, true
}

// Healthy reports whether every probe passed.
func (s Snapshot) Healthy() bool { return len(s.Failed()) == 0 }

// Failed lists the names of failed probes in registration order.
func (s Snapshot) Failed() []string {
	var out []string
	for _, p := range s.probes {
		if !p.OK {
			out = append(out, p.Name)
		}
	}
	return out
}

type probeJSON struct {
	Name       string `json:"name"`
	OK         bool   `json:"ok"`
	Detail     string `json:"detail,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type snapshotJSON struct {
	TakenAt   time.Time   `json:"taken_at"`
	ElapsedMS int64       `json:"elapsed_ms"`
	Healthy   bool        `json:"healthy"`
	Probes    []probeJSON `json:"probes"`
	Fields    []Field     `json:"fields"`
}

// MarshalJSON keeps registration and configuration order by emitting arrays.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	out := snapshotJSON{
		TakenAt:   s.takenAt.UTC(),
		ElapsedMS: s.elapsed.Milliseconds(),
		Healthy:   s.Healthy(),
		Probes:    make([]probeJSON, len(s.probes)),
		Fields:    s.Fields(),
	}
	if out.Fields == nil {
		out.Fields = []Field{}
	}
	for i, p := range s.probes {
		out.Probes[i] = probeJSON{
			Name:       p.Name,
			OK:         p.OK,
			Detail:     p.Detail,
			DurationMS: p.Duration.Milliseconds(),
		}
	}
	return json.Marshal(out)
}
