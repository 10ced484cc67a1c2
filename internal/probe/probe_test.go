package probe

import (
	"context"
	"strings"
	"testing"
)

// Status constructors

func TestStatus_Constructors(t *testing.T) {
	tests := []struct {
		name string
		got  Status
		want Status
	}{
		{"ok", OK(), Status{OK: true}},
		{"ok with detail", OKWith("2024-01-01T00:00"), Status{OK: true, Detail: "2024-01-01T00:00"}},
		{"fail", Fail("connection refused"), Status{Detail: "connection refused"}},
		{"fail default", Fail(""), Status{Detail: DetailUnknownError}},
		{"timed out", TimedOut(), Status{Detail: "timed out"}},
		{"unavailable", Unavailable("database"), Status{Detail: "database not available"}},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %+v, want %+v", tt.name, tt.got, tt.want)
		}
	}
}

// Func / Static

func TestFunc_ImplementsProbe(t *testing.T) {
	var _ Probe = Func(func(context.Context) Status { return OK() })
}

func TestStatic(t *testing.T) {
	p := Static(Fail("down"))
	for i := 0; i < 3; i++ {
		if st := p.Run(context.Background()); st.OK || st.Detail != "down" {
			t.Fatalf("Static run %d = %+v", i, st)
		}
	}
}

// Run

func TestRun_NilProbe(t *testing.T) {
	st := Run(context.Background(), nil)
	if st.OK || st.Detail != "probe not available" {
		t.Fatalf("Run(nil) = %+v", st)
	}
}

func TestRun_RecoversPanic(t *testing.T) {
	st := Run(context.Background(), Func(func(context.Context) Status {
		panic("driver exploded")
	}))
	if st.OK {
		t.Fatal("panicking probe should fail")
	}
	if !strings.HasPrefix(st.Detail, DetailPanicked) || !strings.Contains(st.Detail, "driver exploded") {
		t.Fatalf("detail = %q", st.Detail)
	}
}

func TestRun_PassesContext(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")
	var got context.Context
	Run(ctx, Func(func(c context.Context) Status {
		got = c
		return OK()
	}))
	if got.Value(ctxKey{}) != "v" {
		t.Fatal("context not passed to probe")
	}
}
