// Package metrics exposes supervisor state as Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Set bundles the supervisor's collectors. Label "service" is the unique
// process name.
type Set struct {
	RestartsTotal *prometheus.CounterVec
	SpawnFailures *prometheus.CounterVec
	ProcessUp     *prometheus.GaugeVec
	CPUPercent    *prometheus.GaugeVec
	MemoryMB      *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates and registers the collector set on a fresh registry.
func New() *Set {
	s := &Set{
		RestartsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_restarts_total",
				Help: "Total automatic restarts per service",
			},
			[]string{"service"},
		),
		SpawnFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "procwatch_spawn_failures_total",
				Help: "Total failed spawn attempts per service",
			},
			[]string{"service"},
		),
		ProcessUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procwatch_process_up",
				Help: "1 while the service has a live OS process",
			},
			[]string{"service"},
		),
		CPUPercent: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procwatch_process_cpu_percent",
				Help: "Most recent CPU usage sample per service",
			},
			[]string{"service"},
		),
		MemoryMB: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "procwatch_process_memory_mb",
				Help: "Most recent resident memory sample per service, in MB",
			},
			[]string{"service"},
		),
		registry: prometheus.NewRegistry(),
	}

	s.registry.MustRegister(s.RestartsTotal)
	s.registry.MustRegister(s.SpawnFailures)
	s.registry.MustRegister(s.ProcessUp)
	s.registry.MustRegister(s.CPUPercent)
	s.registry.MustRegister(s.MemoryMB)
	return s
}

// Handler returns the scrape endpoint for this set.
func (s *Set) Handler() http.Handler {
	return promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})
}

// Forget drops all series for a service after its record is removed.
func (s *Set) Forget(service string) {
	labels := prometheus.Labels{"service": service}
	s.RestartsTotal.Delete(labels)
	s.SpawnFailures.Delete(labels)
	s.ProcessUp.Delete(labels)
	s.CPUPercent.Delete(labels)
	s.MemoryMB.Delete(labels)
}
