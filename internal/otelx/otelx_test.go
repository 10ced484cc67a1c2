package otelx

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInit_Disabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Options{Enabled: false, Endpoint: "ignored:1"})
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("provider = %T, want sdk provider", otel.GetTracerProvider())
	}

	_, span := otel.Tracer("test").Start(context.Background(), "sysops.collect")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Fatal("disabled tracing should still mint span ids")
	}
	if span.IsRecording() || span.SpanContext().IsSampled() {
		t.Fatal("disabled tracing must not record or sample")
	}
}

func TestInit_Propagator(t *testing.T) {
	shutdown, _ := Init(context.Background(), Options{})
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	fields := otel.GetTextMapPropagator().Fields()
	joined := strings.Join(fields, ",")
	for _, want := range []string{"traceparent", "baggage"} {
		if !strings.Contains(joined, want) {
			t.Errorf("propagator fields %v missing %s", fields, want)
		}
	}

	h := http.Header{}
	h.Set("traceparent", "00-0102030405060708090a0b0c0d0e0f10-0102030405060708-01")
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(h))
	_, span := otel.Tracer("test").Start(ctx, "child")
	defer span.End()
	if got := span.SpanContext().TraceID().String(); got != "0102030405060708090a0b0c0d0e0f10" {
		t.Fatalf("trace id not propagated: %s", got)
	}
}

func TestInit_EnabledRequiresEndpoint(t *testing.T) {
	if _, err := Init(context.Background(), Options{Enabled: true}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}

func TestInit_Enabled_ReturnsPromptly(t *testing.T) {
	start := time.Now()
	shutdown, err := Init(context.Background(), Options{
		Enabled:   true,
		Endpoint:  "127.0.0.1:1",
		Sample:    1,
		Service:   "linnemanlabs-sysops",
		Component: "server",
		Version:   "v0.0.0-test",
	})
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Fatalf("Init took %v", elapsed)
	}
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// nothing is listening, so a flush error is fine
	_ = shutdown(ctx)
}

func TestSampler(t *testing.T) {
	tests := []struct {
		ratio float64
		want  string
	}{
		{0, "root:AlwaysOffSampler"},
		{-1, "root:AlwaysOffSampler"},
		{1, "root:AlwaysOnSampler"},
		{2, "root:AlwaysOnSampler"},
		{0.25, "root:TraceIDRatioBased{0.25}"},
	}
	for _, tt := range tests {
		if got := sampler(tt.ratio).Description(); !strings.Contains(got, tt.want) {
			t.Errorf("sampler(%v) = %s, want it to contain %s", tt.ratio, got, tt.want)
		}
	}
}

func TestLoopbackEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":               true,
		"127.0.0.1:4317":               true,
		"[::1]:4317":                   true,
		"otel-collector.internal:4317": false,
		"10.0.0.5:4317":                false,
		"":                             false,
	}
	for endpoint, want := range tests {
		if got := loopbackEndpoint(endpoint); got != want {
			t.Errorf("loopbackEndpoint(%q) = %v, want %v", endpoint, got, want)
		}
	}
}

func TestServiceName(t *testing.T) {
	if got := serviceName(Options{Service: "sysops", Component: "server"}); got != "sysops.server" {
		t.Errorf("got %q", got)
	}
	if got := serviceName(Options{Service: "sysops"}); got != "sysops" {
		t.Errorf("got %q", got)
	}
}
