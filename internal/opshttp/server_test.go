package opshttp

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/health"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
)

func getFreePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("find free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()
	return port
}

// serve runs one request through the admin handler from a loopback peer.
func serve(t *testing.T, opts *Options, path string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	r.RemoteAddr = "127.0.0.1:40000"
	rec := httptest.NewRecorder()
	Handler(log.Nop(), opts).ServeHTTP(rec, r)
	return rec
}

func TestHandler_Endpoints(t *testing.T) {
	metrics := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("# HELP sysops_probe_ok\n"))
	})

	tests := []struct {
		name     string
		opts     Options
		path     string
		wantCode int
		wantBody string
	}{
		{"healthy", Options{Health: health.Fixed(true, "")}, "/-/healthy", http.StatusOK, "ok"},
		{"unhealthy", Options{Health: health.Fixed(false, "wedged")}, "/-/healthy", http.StatusServiceUnavailable, "wedged"},
		{"ready", Options{Readiness: health.Fixed(true, "")}, "/-/ready", http.StatusOK, "ready"},
		{"not ready", Options{Readiness: health.Fixed(false, "shutting down")}, "/-/ready", http.StatusServiceUnavailable, "shutting down"},
		{"metrics", Options{Metrics: metrics}, "/metrics", http.StatusOK, "sysops_probe_ok"},
		{"metrics unset", Options{}, "/metrics", http.StatusNotFound, ""},
		{"pprof enabled", Options{EnablePprof: true}, "/debug/pprof/", http.StatusOK, "heap"},
		{"pprof disabled", Options{}, "/debug/pprof/", http.StatusNotFound, ""},
		{"pprof subpath disabled", Options{}, "/debug/pprof/heap", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, &tt.opts, tt.path)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			if !strings.Contains(rec.Body.String(), tt.wantBody) {
				t.Fatalf("body = %q, want %q", rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandler_ReadinessFollowsGate(t *testing.T) {
	var gate health.ShutdownGate
	opts := &Options{Readiness: &gate}

	if rec := serve(t, opts, "/-/ready"); rec.Code != http.StatusOK {
		t.Fatalf("open gate: %d", rec.Code)
	}
	gate.Close("")
	if rec := serve(t, opts, "/-/ready"); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("closed gate: %d", rec.Code)
	}
}

func TestHandler_RecoversPanics(t *testing.T) {
	panics := 0
	opts := &Options{
		Health:  health.CheckFunc(func(context.Context) error { panic("boom") }),
		OnPanic: func() { panics++ },
	}
	if rec := serve(t, opts, "/-/healthy"); rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if panics != 1 {
		t.Fatalf("OnPanic calls = %d", panics)
	}
}

func TestRequireNonPublicNetwork(t *testing.T) {
	tests := []struct {
		addr string
		want int
	}{
		{"127.0.0.1:1", http.StatusOK},
		{"[::1]:1", http.StatusOK},
		{"10.0.0.1:1", http.StatusOK},
		{"172.16.0.1:1", http.StatusOK},
		{"192.168.1.1:1", http.StatusOK},
		{"169.254.1.1:1", http.StatusOK},
		{"[::ffff:10.0.0.1]:1", http.StatusOK},
		{"8.8.8.8:1", http.StatusForbidden},
		{"203.0.113.1:1", http.StatusForbidden},
		{"[::ffff:8.8.8.8]:1", http.StatusForbidden},
		{"999.999.999.999:1", http.StatusForbidden},
		{"not-an-address", http.StatusForbidden},
		{"", http.StatusForbidden},
	}
	h := requireNonPublicNetwork(log.Nop(), http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody)
			r.RemoteAddr = tt.addr
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, r)
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestStart_ServesAndStops(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()

	stop, err := Start(ctx, log.Nop(), &Options{Port: port, Health: health.Fixed(true, "")})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/-/healthy", port)
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("status = %d body = %q", resp.StatusCode, body)
	}

	for i := 0; i < 3; i++ {
		if err := stop(ctx); err != nil {
			t.Fatalf("stop #%d: %v", i+1, err)
		}
	}
	if _, err := http.Get(url); err == nil {
		t.Fatal("server still accepting connections after stop")
	}
}

func TestStart_PortConflict(t *testing.T) {
	port := getFreePort(t)
	ctx := context.Background()

	stop, err := Start(ctx, log.Nop(), &Options{Port: port})
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}
	t.Cleanup(func() { _ = stop(ctx) })

	if _, err := Start(ctx, log.Nop(), &Options{Port: port}); err == nil {
		t.Fatal("expected error for port conflict")
	}
}
