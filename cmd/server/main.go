package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/cfg"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/dashboard"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/dbhandle"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/health"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/markersrc"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/opshttp"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/probe"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/ratelimit"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/secrets"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/httpserver"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/log"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/metrics"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/otelx"
	"github.com/keithlinneman/linnemanlabs-sysops/internal/prof"
	v "github.com/keithlinneman/linnemanlabs-sysops/internal/version"
)

// drainDelay gives the proxy time to see /-/ready fail before listeners close.
const drainDelay = 10 * time.Second

// dbCloser is satisfied by both dbhandle.SQL and dbhandle.Null.
type dbCloser interface {
	probe.DBHandle
	Close() error
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	vi := v.Get()

	var conf cfg.App
	var showVersion bool

	cfg.Register(flag.CommandLine, &conf)
	flag.BoolVar(&showVersion, "V", false, "Print version+build information and exit")
	flag.Parse()

	if showVersion {
		fmt.Println(vi.Short())
		os.Exit(0)
	}

	cfg.FillFromEnv(flag.CommandLine, cfg.EnvPrefix, func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	if err := cfg.Validate(conf); err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(1)
	}

	// Validate already checked both levels
	lvl, _ := log.ParseLevel(conf.LogLevel)
	stackLvl, _ := log.ParseLevel(conf.StacktraceLevel)
	lg, err := log.New(log.Options{
		App:             v.AppName,
		Version:         vi.Version,
		Level:           lvl,
		StacktraceLevel: stackLvl,
		JSON:            conf.LogJSON,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger init error:", err)
		os.Exit(1)
	}
	defer lg.Sync()
	L := lg.With("component", "server")
	ctx = log.WithContext(ctx, L)

	L.Info(ctx, "initializing application",
		"version", vi.Version,
		"commit", vi.Commit,
		"build_id", vi.BuildId,
		"go_version", vi.GoVersion,
		"http_port", conf.HTTPPort,
		"admin_port", conf.AdminPort,
		"enable_pprof", conf.EnablePprof,
		"enable_pyroscope", conf.EnablePyroscope,
		"enable_tracing", conf.EnableTracing,
		"otlp_endpoint", conf.OTLPEndpoint,
		"trace_sample", conf.TraceSample,
		"site_config", conf.SiteConfig,
		"db_dsn_ssm_param", conf.DBDSNSSMParam,
		"probe_timeout", conf.ProbeTimeout,
		"probe_parallel", conf.ProbeParallel,
		"trusted_hops", conf.TrustedHops,
	)

	m := metrics.New()
	m.SetBuildInfoFromVersion(v.AppName, "server", vi)

	stopProf, err := prof.Start(ctx, prof.Options{
		Enabled:       conf.EnablePyroscope,
		AppName:       v.AppName,
		ServerAddress: conf.PyroServer,
		TenantID:      conf.PyroTenantID,
		Tags: map[string]string{
			"app":       v.AppName,
			"component": "server",
			"version":   vi.Version,
			"commit":    vi.Commit,
		},
	})
	if err != nil {
		L.Error(ctx, err, "pyroscope start failed", "pyro_server", conf.PyroServer)
	}
	m.SetProfilingActive(conf.EnablePyroscope && err == nil)
	defer stopProf()

	shutdownOTEL, err := otelx.Init(ctx, otelx.Options{
		Enabled:   conf.EnableTracing,
		Endpoint:  conf.OTLPEndpoint,
		Sample:    conf.TraceSample,
		Service:   v.AppName,
		Component: "server",
		Version:   vi.Version,
	})
	if err != nil {
		L.Error(ctx, err, "otel init failed")
		shutdownOTEL = func(context.Context) error { return nil }
	}
	defer func() { _ = shutdownOTEL(context.Background()) }()

	site, err := cfg.LoadSite(conf.SiteConfig)
	if err != nil {
		L.Error(ctx, err, "failed to load site config", "path", conf.SiteConfig)
		os.Exit(1)
	}

	// AWS is only needed for the SSM DSN or the S3 marker
	var awsCfg *aws.Config
	if conf.DBDSNSSMParam != "" || site.Backup.MarkerS3Bucket != "" {
		c, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			L.Error(ctx, err, "failed to load AWS config")
			os.Exit(1)
		}
		awsCfg = &c
	}

	dsn := conf.DBDSN
	if conf.DBDSNSSMParam != "" {
		dsn, err = secrets.NewSSM(ssm.NewFromConfig(*awsCfg)).Get(ctx, conf.DBDSNSSMParam)
		if err != nil {
			// the probe reports the database as unavailable; the dashboard still serves
			L.Error(ctx, err, "failed to resolve database DSN", "param", conf.DBDSNSSMParam)
			dsn = ""
		}
	}

	db := openDatabase(ctx, L, dsn)
	defer func() { _ = db.Close() }()

	target := dbhandle.Describe(dsn)
	site.FillDatabase(target.Host, target.Name, target.User)

	var markers probe.MarkerSource = markersrc.OS{}
	if site.Backup.MarkerS3Bucket != "" {
		src, err := markersrc.NewS3(s3.NewFromConfig(*awsCfg), site.Backup.MarkerS3Bucket)
		if err != nil {
			L.Error(ctx, err, "failed to create S3 marker source")
			os.Exit(1)
		}
		markers = src
		L.Info(ctx, "backup marker read from S3", "bucket", src.Bucket(), "key", site.MarkerLocation())
	}

	dash, err := dashboard.New(dashboard.Options{
		Registry:    dashboard.DefaultRegistry(db, markers, site.MarkerLocation()),
		Facts:       site.Facts(),
		Timeout:     conf.ProbeTimeout,
		Parallel:    conf.ProbeParallel,
		Observer:    m,
		TrustedHops: conf.TrustedHops,
	})
	if err != nil {
		L.Error(ctx, err, "failed to create dashboard")
		os.Exit(1)
	}

	var gate health.ShutdownGate

	limiter := ratelimit.New(ctx,
		ratelimit.WithRate(conf.RateLimitRPS, conf.RateLimitBurst),
		ratelimit.WithOnDenied(m.IncRateLimitDenied),
		// logged once per client until its bucket is evicted
		ratelimit.WithOnFirstDenied(func(ip string) {
			L.Warn(ctx, "rate limit triggered", "client.address", ip)
		}),
		ratelimit.WithOnCapacity(func() {
			m.IncRateLimitCapacity()
			L.Warn(ctx, "rate limit client table full, new clients share one bucket")
		}),
	)

	siteHTTPStop, err := httpserver.Start(ctx, &httpserver.Options{
		Logger:       L,
		Port:         conf.HTTPPort,
		Routes:       dash.Routes,
		Health:       health.Fixed(true, ""),
		Readiness:    &gate,
		MetricsMW:    m.Middleware,
		RateLimitMW:  limiter.Middleware,
		TrustedHops:  conf.TrustedHops,
		UseRecoverMW: true,
		OnPanic:      m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start http listener")
		os.Exit(1)
	}
	defer func() { _ = siteHTTPStop(context.Background()) }()

	// admin listener is also restricted to non-public peers in middleware
	opsHTTPStop, err := opshttp.Start(ctx, L, &opshttp.Options{
		Port:        conf.AdminPort,
		Metrics:     m.Handler(),
		EnablePprof: conf.EnablePprof,
		Health:      health.Fixed(true, ""),
		Readiness:   &gate,
		OnPanic:     m.IncHttpPanic,
	})
	if err != nil {
		L.Error(ctx, err, "failed to start ops http listener")
		os.Exit(1)
	}
	defer func() { _ = opsHTTPStop(context.Background()) }()

	if err := notifySystemd(); err != nil {
		L.Debug(ctx, "systemd notify skipped", "reason", err.Error())
	}

	<-ctx.Done()
	stop()

	bg := context.Background()
	L.Info(bg, "shutdown signal received")

	gate.Close("draining")
	L.Info(bg, "shutdown gate closed, draining", "delay", drainDelay)

	forceCh := make(chan os.Signal, 1)
	signal.Notify(forceCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-time.After(drainDelay):
	case <-forceCh:
		L.Warn(bg, "second signal received, skipping drain")
	}
	signal.Stop(forceCh)

	shutdownCtx, cancel := context.WithTimeout(bg, 10*time.Second)
	defer cancel()

	if err := siteHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "http server shutdown")
	}
	if err := opsHTTPStop(shutdownCtx); err != nil {
		L.Error(bg, err, "ops http server shutdown")
	}
	if err := shutdownOTEL(shutdownCtx); err != nil {
		L.Error(bg, err, "otel shutdown")
	}

	L.Info(bg, "shutdown complete")
}

// openDatabase never fails: without a usable DSN the probe reports the
// database as unavailable instead.
func openDatabase(ctx context.Context, L log.Logger, dsn string) dbCloser {
	if dsn == "" {
		L.Warn(ctx, "no database DSN configured, database probe will fail")
		return dbhandle.Null{}
	}
	db, err := dbhandle.Open(dsn)
	if err != nil {
		L.Error(ctx, err, "invalid database DSN, database probe will fail")
		return dbhandle.Null{}
	}
	return db
}

func notifySystemd() error {
	// set by systemd for Type=notify units
	addr := os.Getenv("NOTIFY_SOCKET")
	if addr == "" {
		return fmt.Errorf("NOTIFY_SOCKET not set")
	}
	conn, err := net.Dial("unixgram", addr)
	if err != nil {
		return fmt.Errorf("systemd notify: dial: %w", err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("READY=1")); err != nil {
		return fmt.Errorf("systemd notify: write: %w", err)
	}
	return nil
}
