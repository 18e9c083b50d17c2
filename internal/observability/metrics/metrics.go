// Package metrics provides Prometheus instrumentation for contraconf.
//
// A CLI run is too short to be scraped, so metrics live on a private
// registry and are written once at exit in the node_exporter textfile
// format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "contraconf"

var (
	enabled  bool
	registry *prometheus.Registry

	// Resolver metrics
	resolutionsTotal *prometheus.CounterVec

	// Collaborator metrics
	rpcProbesTotal     *prometheus.CounterVec
	verificationsTotal *prometheus.CounterVec
	explorerDuration   *prometheus.HistogramVec
	lastRunTimestamp   *prometheus.GaugeVec
)

// Init initializes the metrics system. Calling it again starts from an
// empty registry.
func Init(enabledFlag bool) {
	enabled = enabledFlag
	registry = nil

	if !enabled {
		return
	}

	registry = prometheus.NewRegistry()
	factory := promauto.With(registry)

	// Resolution counter
	resolutionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Total number of configuration resolutions by intent and outcome",
		},
		[]string{"intent", "result"},
	)

	// RPC probe counter
	rpcProbesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rpc_probes_total",
			Help:      "Total number of RPC endpoint probes",
		},
		[]string{"network", "result"},
	)

	// Verification counter
	verificationsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Total number of source verification runs",
		},
		[]string{"provider", "result"},
	)

	// Explorer request duration histogram
	explorerDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "explorer_request_duration_seconds",
			Help:      "Block explorer API latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"action", "result"},
	)

	// Last run gauge
	lastRunTimestamp = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last contraconf command finished",
		},
		[]string{"command", "result"},
	)
}

// Enabled returns whether metrics are enabled.
func Enabled() bool {
	return enabled
}

// WriteTextfile writes all metrics to path for the node_exporter textfile
// collector. The file is replaced atomically.
func WriteTextfile(path string) error {
	if !enabled || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, registry)
}
