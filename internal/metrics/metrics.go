// Package metrics records per-run outcome counters and exports them as a
// node-exporter textfile-collector snapshot. The process is a one-shot CI
// job, so there is no scrape endpoint; the textfile is the hand-off.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"downcheck/internal/pipeline"
)

// Recorder owns a private registry so parallel test runs never collide on
// the global one.
type Recorder struct {
	registry *prometheus.Registry

	projectsTotal *prometheus.CounterVec
	runDuration   prometheus.Gauge
	runOK         prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		projectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "downcheck_projects_total",
				Help: "Downstream projects by run outcome.",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "downcheck_run_duration_seconds",
				Help: "Wall-clock duration of the compatibility run.",
			},
		),
		runOK: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "downcheck_run_success",
				Help: "1 when every downstream project passed, else 0.",
			},
		),
	}
	r.registry.MustRegister(r.projectsTotal, r.runDuration, r.runOK)
	return r
}

// Observe records one finished run.
func (r *Recorder) Observe(rep *pipeline.Report) {
	for _, res := range rep.Results {
		r.projectsTotal.WithLabelValues(string(res.Status)).Inc()
	}
	r.runDuration.Set(rep.Elapsed.Seconds())
	if rep.OK() {
		r.runOK.Set(1)
	} else {
		r.runOK.Set(0)
	}
}

// WriteTextfile writes the registry snapshot in exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// Gatherer exposes the private registry, for tests.
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.registry }
