package cfg

import (
	"flag"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"
)

const testPrefix = "SYSOPSTEST_"

// load registers flags on a private FlagSet, parses args, then applies env
// overrides. It returns the config and every message FillFromEnv logged.
func load(t *testing.T, args []string, env map[string]string) (App, []string) {
	t.Helper()
	for k, v := range env {
		t.Setenv(testPrefix+k, v)
	}
	fs := flag.NewFlagSet("sysops", flag.ContinueOnError)
	var c App
	Register(fs, &c)
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse %v: %v", args, err)
	}
	var msgs []string
	FillFromEnv(fs, testPrefix, func(format string, a ...any) {
		msgs = append(msgs, fmt.Sprintf(format, a...))
	})
	return c, msgs
}

func defaults() App {
	return App{
		LogJSON:         true,
		LogLevel:        "info",
		StacktraceLevel: "error",
		HTTPPort:        8080,
		AdminPort:       9000,
		EnablePprof:     true,
		ProbeTimeout:    2 * time.Second,
		ProbeParallel:   true,
		RateLimitRPS:    5,
		RateLimitBurst:  10,
	}
}

func TestRegister_Defaults(t *testing.T) {
	c, msgs := load(t, nil, nil)
	if !reflect.DeepEqual(c, defaults()) {
		t.Fatalf("defaults:\n got %+v\nwant %+v", c, defaults())
	}
	if len(msgs) != 0 {
		t.Fatalf("unexpected messages %v", msgs)
	}
	if err := Validate(c); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

// Each source sets the same values; flags and env must land identically.
func TestSources(t *testing.T) {
	want := defaults()
	want.LogJSON = false
	want.HTTPPort = 8088
	want.EnablePprof = false
	want.EnableTracing = true
	want.OTLPEndpoint = "otel:4317"
	want.TraceSample = 0.25
	want.SiteConfig = "/etc/sysops/site.yaml"
	want.DBDSNSSMParam = "/app/sysops/db-dsn"
	want.ProbeTimeout = 750 * time.Millisecond
	want.ProbeParallel = false
	want.TrustedHops = 1
	want.RateLimitRPS = 2.5

	t.Run("flags", func(t *testing.T) {
		c, _ := load(t, []string{
			"-log-json=false",
			"-http-port=8088",
			"-enable-pprof=false",
			"-enable-tracing",
			"-otlp-endpoint=otel:4317",
			"-trace-sample=0.25",
			"-site-config=/etc/sysops/site.yaml",
			"-db-dsn-ssm-param=/app/sysops/db-dsn",
			"-probe-timeout=750ms",
			"-probe-parallel=false",
			"-trusted-hops=1",
			"-rate-limit-rps=2.5",
		}, nil)
		if !reflect.DeepEqual(c, want) {
			t.Fatalf("\n got %+v\nwant %+v", c, want)
		}
	})

	t.Run("env", func(t *testing.T) {
		c, msgs := load(t, nil, map[string]string{
			"LOG_JSON":         "false",
			"HTTP_PORT":        "8088",
			"ENABLE_PPROF":     "false",
			"ENABLE_TRACING":   "true",
			"OTLP_ENDPOINT":    "otel:4317",
			"TRACE_SAMPLE":     "0.25",
			"SITE_CONFIG":      "/etc/sysops/site.yaml",
			"DB_DSN_SSM_PARAM": "/app/sysops/db-dsn",
			"PROBE_TIMEOUT":    "750ms",
			"PROBE_PARALLEL":   "false",
			"TRUSTED_HOPS":     "1",
			"RATE_LIMIT_RPS":   "2.5",
		})
		if !reflect.DeepEqual(c, want) {
			t.Fatalf("\n got %+v\nwant %+v", c, want)
		}
		if len(msgs) != 0 {
			t.Fatalf("unexpected messages %v", msgs)
		}
	})
}

func TestFillFromEnv_CLIWins(t *testing.T) {
	c, msgs := load(t,
		[]string{"-http-port=9090", "-probe-parallel=true"},
		map[string]string{"HTTP_PORT": "7777", "PROBE_PARALLEL": "false", "LOG_LEVEL": "debug"},
	)
	if c.HTTPPort != 9090 || !c.ProbeParallel {
		t.Fatalf("cli values lost: port=%d parallel=%v", c.HTTPPort, c.ProbeParallel)
	}
	if c.LogLevel != "debug" {
		t.Fatalf("env without a cli flag should apply, LogLevel = %q", c.LogLevel)
	}
	if len(msgs) != 2 {
		t.Fatalf("want one message per overridden env var, got %v", msgs)
	}
	for _, m := range msgs {
		if !strings.Contains(m, "overrides env") {
			t.Errorf("message %q", m)
		}
	}
}

func TestFillFromEnv_InvalidKeepsDefault(t *testing.T) {
	c, msgs := load(t, nil, map[string]string{"PROBE_TIMEOUT": "soon"})
	if c.ProbeTimeout != 2*time.Second {
		t.Fatalf("ProbeTimeout = %s, want default", c.ProbeTimeout)
	}
	if len(msgs) != 1 || !strings.Contains(msgs[0], "ignoring invalid env") {
		t.Fatalf("messages = %v", msgs)
	}
}

func TestFillFromEnv_NeverEchoesDSN(t *testing.T) {
	_, msgs := load(t,
		[]string{"-db-dsn=wp_admin:cli-secret@tcp(db:3306)/wordpress"},
		map[string]string{"DB_DSN": "wp_admin:env-secret@tcp(db:3306)/wordpress"},
	)
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
	if strings.Contains(msgs[0], "secret") || !strings.Contains(msgs[0], "[redacted]") {
		t.Fatalf("dsn not redacted: %s", msgs[0])
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr []string
	}{
		{"tracing and profiling", []string{
			"-enable-pyroscope", "-pyro-server=https://pyro:4040", "-pyro-tenant=ops",
			"-enable-tracing", "-otlp-endpoint=otel:4317", "-trace-sample=0.2",
		}, nil},
		{"dsn from flag", []string{"-db-dsn=wp_admin:pw@tcp(db:3306)/wordpress"}, nil},
		{"ports", []string{"-http-port=0", "-admin-port=70000"},
			[]string{"invalid HTTP_PORT", "invalid ADMIN_PORT"}},
		{"same port", []string{"-http-port=9000"}, []string{"must differ"}},
		{"levels", []string{"-log-level=nope", "-stacktrace-level=loud"},
			[]string{"invalid LOG_LEVEL", "invalid STACKTRACE_LEVEL"}},
		{"sample", []string{"-trace-sample=2"}, []string{"invalid TRACE_SAMPLE"}},
		{"pyroscope", []string{"-enable-pyroscope", "-pyro-server=not-a-url"},
			[]string{"PYRO_SERVER must be a URL", "PYRO_TENANT required"}},
		{"pyroscope server", []string{"-enable-pyroscope", "-pyro-tenant=ops"},
			[]string{"PYRO_SERVER required"}},
		{"otlp", []string{"-enable-tracing", "-otlp-endpoint=otel"},
			[]string{"OTLP_ENDPOINT must be host:port"}},
		{"otlp missing", []string{"-enable-tracing"}, []string{"OTLP_ENDPOINT required"}},
		{"both dsn sources", []string{"-db-dsn=u:p@tcp(db:3306)/wp", "-db-dsn-ssm-param=/app/db"},
			[]string{"mutually exclusive"}},
		{"relative ssm param", []string{"-db-dsn-ssm-param=app/db"},
			[]string{"DB_DSN_SSM_PARAM must be an absolute"}},
		{"probe timeout", []string{"-probe-timeout=0s"}, []string{"invalid PROBE_TIMEOUT"}},
		{"probe timeout cap", []string{"-probe-timeout=31s"}, []string{"invalid PROBE_TIMEOUT"}},
		{"hops", []string{"-trusted-hops=11"}, []string{"invalid TRUSTED_HOPS"}},
		{"rate limit", []string{"-rate-limit-rps=0", "-rate-limit-burst=0"},
			[]string{"invalid RATE_LIMIT_RPS", "invalid RATE_LIMIT_BURST"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := load(t, tt.args, nil)
			err := Validate(c)
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("want errors %v, got nil", tt.wantErr)
			}
			for _, sub := range tt.wantErr {
				if !strings.Contains(err.Error(), sub) {
					t.Errorf("error %q missing %q", err, sub)
				}
			}
		})
	}
}
