// Package metrics exposes the scan engine's counters as Prometheus metrics.
// It is a pure observer: nothing in internal/scan imports this package,
// consistent with the core's rule of staying ignorant of its collaborators.
// A caller (typically internal/httpapi) feeds it heartbeats and finished
// results.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"portsweep/internal/scan"
)

var (
	probesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portsweep",
		Name:      "probes_total",
		Help:      "Probes completed, partitioned by terminal state.",
	}, []string{"state"})

	probeRTT = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portsweep",
		Name:      "probe_rtt_seconds",
		Help:      "Round-trip time of completed probes.",
		Buckets:   prometheus.DefBuckets,
	})

	hostsCompleted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "portsweep",
		Name:      "hosts_completed_total",
		Help:      "Hosts that finished scanning, partitioned by terminal state.",
	}, []string{"state"})

	openPortsFound = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "portsweep",
		Name:      "open_ports_found_total",
		Help:      "Open ports discovered across all scans.",
	})

	runDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "portsweep",
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of a full Engine.Scan call.",
		Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 120, 300, 600},
	})
)

// ObserveHeartbeat accepts one HeartbeatEvent and records nothing from it:
// a heartbeat carries no per-probe RTT, and ObserveHost records every
// counter once a host finishes.
func ObserveHeartbeat(ev scan.HeartbeatEvent) {
	_ = ev // progress-only signal; retained for a future per-address gauge
}

// ObserveHost records one completed host's stats into the counters.
func ObserveHost(host scan.HostResult) {
	stats := host.Stats.Snapshot()
	probesTotal.WithLabelValues("open").Add(float64(stats.OpenCount))
	probesTotal.WithLabelValues("closed").Add(float64(stats.ClosedCount))
	probesTotal.WithLabelValues("filtered").Add(float64(stats.FilteredCount))

	for _, p := range host.OpenPorts {
		probeRTT.Observe(p.RTT.Seconds())
	}

	hostsCompleted.WithLabelValues(host.State.String()).Inc()
	openPortsFound.Add(float64(len(host.OpenPorts)))
}

// ObserveRun records one full scan's wall-clock duration.
func ObserveRun(elapsed time.Duration) {
	runDuration.Observe(elapsed.Seconds())
}
