package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: " INFO ", want: slog.LevelInfo},
		{in: "Warning", want: slog.LevelWarn},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "", wantErr: true},
		{in: "trace", wantErr: true},
		{in: "fatal", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLevel(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestFromContext(t *testing.T) {
	stored, err := New(Options{App: "linnemanlabs-sysops", Writer: io.Discard})
	if err != nil {
		t.Fatal(err)
	}
	bg := context.Background()

	if got := FromContext(WithContext(bg, stored)); got != stored {
		t.Fatal("stored logger not returned")
	}

	// every miss falls back to a usable no-op logger
	misses := map[string]context.Context{
		"empty":      bg,
		"nil logger": WithContext(bg, nil),
		"wrong type": context.WithValue(bg, ctxKey{}, "probe"),
		"nil ctx":    nil,
	}
	for name, ctx := range misses {
		got := FromContext(ctx)
		if _, ok := got.(nopLogger); !ok {
			t.Errorf("%s: got %T, want nop", name, got)
			continue
		}
		got.With("probe", "database").Error(bg, errors.New("down"), "probe failed")
		if err := got.Sync(); err != nil {
			t.Errorf("%s: Sync = %v", name, err)
		}
	}
}

func TestWithContext_ChildOnly(t *testing.T) {
	a := Nop().With("component", "aggregator")
	b, _ := New(Options{Writer: io.Discard})

	parent := WithContext(context.Background(), a)
	child := WithContext(parent, b)

	if FromContext(parent) != a || FromContext(child) != b {
		t.Fatal("WithContext should shadow in the child and leave the parent alone")
	}
}
