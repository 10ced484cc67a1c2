package opshttp

import (
	"net/http"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/health"
)

// Options configures the admin listener.
type Options struct {
	// Port defaults to 9000.
	Port        int
	Metrics     http.Handler
	EnablePprof bool
	Health      health.Check
	Readiness   health.Check
	// OnPanic runs for each recovered handler panic, e.g. a metrics counter.
	OnPanic func()
}
