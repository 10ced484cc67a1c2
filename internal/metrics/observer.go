package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/keithlinneman/linnemanlabs-sysops/internal/probe"
)

type probeMetrics struct {
	ok         *prometheus.GaugeVec
	duration   *prometheus.HistogramVec
	failures   *prometheus.CounterVec
	collectDur prometheus.Histogram
	collects   *prometheus.CounterVec
	lastFailed prometheus.Gauge
}

func newProbeMetrics() probeMetrics {
	name := []string{"probe"}
	return probeMetrics{
		ok: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "sysops_probe_ok",
			Help: "Outcome of the most recent run of each probe (1 ok, 0 failed)",
		}, name),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sysops_probe_duration_seconds",
			Help:    "Probe run time, including runs cut short by the probe timeout",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}, name),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sysops_probe_failures_total",
			Help: "Failed probe runs by probe",
		}, name),
		collectDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sysops_collect_duration_seconds",
			Help:    "Time to assemble one snapshot",
			Buckets: latencyBuckets,
		}),
		collects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sysops_collections_total",
			Help: "Snapshots assembled by result (healthy|degraded)",
		}, []string{"result"}),
		lastFailed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sysops_last_collect_failed_probes",
			Help: "Failed probes in the most recent snapshot",
		}),
	}
}

func (p probeMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(p.ok, p.duration, p.failures, p.collectDur, p.collects, p.lastFailed)
}

// ObserveProbe and ObserveCollect make ServerMetrics an aggregator.Observer.
func (m *ServerMetrics) ObserveProbe(name string, st probe.Status, d time.Duration) {
	p := m.probes
	p.duration.WithLabelValues(name).Observe(d.Seconds())
	if st.OK {
		p.ok.WithLabelValues(name).Set(1)
		return
	}
	p.ok.WithLabelValues(name).Set(0)
	p.failures.WithLabelValues(name).Inc()
}

func (m *ServerMetrics) ObserveCollect(d time.Duration, failed int) {
	p := m.probes
	p.collectDur.Observe(d.Seconds())
	p.lastFailed.Set(float64(failed))
	result := "healthy"
	if failed > 0 {
		result = "degraded"
	}
	p.collects.WithLabelValues(result).Inc()
}
