// Package metrics holds the daemon's prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry collects everything the daemon exports; the HTTP server
// serves it on /metrics.
var Registry = prometheus.NewRegistry()

var (
	Cycles = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "zfs_autosnapd_cycles_total",
		Help: "Completed fetch-decide-act cycles.",
	})
	SnapshotsCreated = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "zfs_autosnapd_snapshots_created_total",
		Help: "Snapshots created by the daemon.",
	})
	SnapshotsDestroyed = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "zfs_autosnapd_snapshots_destroyed_total",
		Help: "Expired snapshots destroyed by the daemon.",
	})
	StoreErrors = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "zfs_autosnapd_store_errors_total",
		Help: "Errors talking to zfs, including retried listing failures.",
	})
	ConfiguredDatasets = promauto.With(Registry).NewGauge(prometheus.GaugeOpts{
		Name: "zfs_autosnapd_configured_datasets",
		Help: "Datasets carrying a retention policy at the last listing.",
	})
)
