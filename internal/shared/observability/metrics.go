package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	RunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopebind_runs_total",
		Help: "Total number of hierarchy resolution runs by outcome.",
	}, []string{"outcome"})

	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scopebind_run_seconds",
		Help:    "Time spent resolving one hierarchy.",
		Buckets: prometheus.DefBuckets,
	})

	SitesResolved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopebind_sites_total",
		Help: "Total number of injection sites by result.",
	}, []string{"result"})

	DiagnosticsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scopebind_diagnostics_total",
		Help: "Total number of diagnostics by class.",
	}, []string{"class"})

	GlobalRegistrations = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scopebind_global_registrations",
		Help: "Global objects registered by the most recent run.",
	})

	PendingIndirections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scopebind_pending_indirections",
		Help: "Indirection objects awaiting provisioning after the most recent run.",
	})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scopebind_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	HistoryWriteErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scopebind_history_write_errors_total",
		Help: "Total number of run snapshots that could not be persisted.",
	})
)
