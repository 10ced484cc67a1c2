package aggregator

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/probe"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/redact"
)

// DefaultTimeout bounds a single probe when Options.Timeout is unset.
const DefaultTimeout = 2 * time.Second

// Entry is one named probe in the registry.
type Entry struct {
	Name  string
	Probe probe.Probe
}

// Fact is a static display value echoed into the Snapshot. A fact with a
// Secret never exposes the raw value; only its masked form is displayed.
type Fact struct {
	Name   string
	Value  string
	Secret *redact.Credential
}

// SecretFact builds a fact whose value is a credential.
func SecretFact(name, raw string) Fact {
	c := redact.NewCredential(raw)
	return Fact{Name: name, Secret: &c}
}

func (f Fact) display() string {
	if f.Secret != nil {
		return f.Secret.Masked()
	}
	return redact.OrUnknown(f.Value)
}

// Observer receives per-probe and per-pass measurements, e.g. for metrics.
type Observer interface {
	ObserveProbe(name string, st probe.Status, d time.Duration)
	ObserveCollect(d time.Duration, failed int)
}

type Options struct {
	// Timeout applies to each probe separately.
	Timeout time.Duration
	// Parallel runs probes concurrently and joins before assembling.
	Parallel bool
	Observer Observer
}

// Aggregator owns its registry; it is fixed at construction and safe to
// Collect from concurrently.
type Aggregator struct {
	entries []Entry
	facts   []Fact
	opts    Options
	tracer  trace.Tracer
}

// New copies entries and facts. A repeated name replaces the earlier probe
// or value but keeps the earlier position.
func New(entries []Entry, facts []Fact, opts Options) *Aggregator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	a := &Aggregator{
		opts:   opts,
		tracer: otel.Tracer("linnemanlabs/aggregator"),
	}

	seen := make(map[string]int, len(entries))
	for _, e := range entries {
		if i, ok := seen[e.Name]; ok {
			a.entries[i].Probe = e.Probe
			continue
		}
		seen[e.Name] = len(a.entries)
		a.entries = append(a.entries, e)
	}

	seenFact := make(map[string]int, len(facts))
	for _, f := range facts {
		if i, ok := seenFact[f.Name]; ok {
			a.facts[i] = f
			continue
		}
		seenFact[f.Name] = len(a.facts)
		a.facts = append(a.facts, f)
	}
	return a
}

// Collect runs every probe exactly once and returns a fully populated
// Snapshot: one result per probe and one field per fact.
func (a *Aggregator) Collect(ctx context.Context) Snapshot {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	ctx, span := a.tracer.Start(ctx, "sysops.collect",
		trace.WithAttributes(
			attribute.Int("sysops.probes", len(a.entries)),
			attribute.Bool("sysops.parallel", a.opts.Parallel),
		),
	)
	defer span.End()

	results := make([]ProbeResult, len(a.entries))
	if a.opts.Parallel && len(a.entries) > 1 {
		// errgroup only as a join barrier: runOne never returns an error, so
		// no probe is ever canceled because another one failed
		var g errgroup.Group
		for i, e := range a.entries {
			g.Go(func() error {
				results[i] = a.runOne(ctx, e)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i, e := range a.entries {
			results[i] = a.runOne(ctx, e)
		}
	}

	snap := newSnapshot(start, results, a.displayFields())
	failed := len(snap.Failed())
	snap.elapsed = time.Since(start)

	span.SetAttributes(attribute.Int("sysops.failed", failed))
	if failed > 0 {
		span.SetStatus(codes.Error, "one or more probes failed")
	}
	if a.opts.Observer != nil {
		a.opts.Observer.ObserveCollect(snap.elapsed, failed)
	}
	return snap
}

func (a *Aggregator) runOne(ctx context.Context, e Entry) ProbeResult {
	ctx, span := a.tracer.Start(ctx, "sysops.probe",
		trace.WithAttributes(attribute.String("sysops.probe", e.Name)),
	)
	defer span.End()

	start := time.Now()
	st := a.runWithTimeout(ctx, e.Probe)
	d := time.Since(start)

	span.SetAttributes(attribute.Bool("sysops.probe.ok", st.OK))
	if !st.OK {
		span.SetStatus(codes.Error, st.Detail)
		log.FromContext(ctx).Warn(ctx, "probe failed",
			"probe", e.Name,
			"detail", st.Detail,
			"duration_ms", d.Milliseconds(),
		)
	}
	if a.opts.Observer != nil {
		a.opts.Observer.ObserveProbe(e.Name, st, d)
	}

	return ProbeResult{
		Name: e.Name,
		Status: probe.Status{
			OK:     st.OK,
			Detail: redact.EscapeForDisplay(st.Detail),
		},
		Duration: d,
	}
}

// outcome is a probe result plus the context error seen when the probe
// returned; a non-nil late means the result was produced after the
// deadline or cancellation and is not trusted.
type outcome struct {
	st   probe.Status
	late error
}

// runWithTimeout abandons a probe that ignores its deadline; the buffered
// channel lets the straggler finish without blocking.
func (a *Aggregator) runWithTimeout(ctx context.Context, p probe.Probe) probe.Status {
	ctx, cancel := context.WithTimeout(ctx, a.opts.Timeout)
	defer cancel()

	ch := make(chan outcome, 1)
	go func() {
		st := probe.Run(ctx, p)
		ch <- outcome{st: st, late: ctx.Err()}
	}()
	return await(ctx, ch)
}

// await prefers a result that was ready in time over the context ending,
// even when both are ready together.
func await(ctx context.Context, ch <-chan outcome) probe.Status {
	select {
	case o := <-ch:
		if o.late != nil {
			return deadlineStatus(o.late)
		}
		return o.st
	case <-ctx.Done():
		select {
		case o := <-ch:
			if o.late == nil {
				return o.st
			}
		default:
		}
		return deadlineStatus(ctx.Err())
	}
}

func deadlineStatus(err error) probe.Status {
	if errors.Is(err, context.DeadlineExceeded) {
		return probe.TimedOut()
	}
	return probe.Fail(err.Error())
}

func (a *Aggregator) displayFields() []Field {
	out := make([]Field, len(a.facts))
	for i, f := range a.facts {
		out[i] = Field{Name: f.Name, Value: redact.EscapeForDisplay(f.display())}
	}
	return out
}
