// Package metrics exposes prometheus instrumentation for the discovery daemon.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActiveStreams tracks the number of open provider connections.
	ActiveStreams = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hackhub_active_provider_streams",
		Help: "Number of currently open provider event streams",
	})

	// RecordsTotal tracks pipeline outcomes per provider.
	RecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackhub_records_total",
		Help: "Total records seen by the ingestion pipeline by provider and outcome",
	}, []string{"provider", "outcome"})

	// StreamTerminations tracks how provider connections ended.
	StreamTerminations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackhub_stream_terminations_total",
		Help: "Total provider stream terminal events by provider and reason",
	}, []string{"provider", "reason"})

	// RunDuration tracks the wall time of a full search run.
	RunDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hackhub_run_duration_seconds",
		Help:    "Wall time from run start until the last provider stream closed",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	// SnapshotWrites tracks persistence mirror outcomes.
	SnapshotWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hackhub_snapshot_writes_total",
		Help: "Total snapshot mirror writes by result",
	}, []string{"result"})
)

// Pipeline outcome labels for RecordsTotal.
const (
	OutcomeAccepted  = "accepted"
	OutcomeDuplicate = "duplicate"
	OutcomeFiltered  = "filtered"
	OutcomeMalformed = "malformed"
)

// IncRecord records one pipeline outcome for a provider.
func IncRecord(provider, outcome string) {
	RecordsTotal.WithLabelValues(provider, outcome).Inc()
}

// IncStreamTermination records how a provider connection ended.
func IncStreamTermination(provider, reason string) {
	StreamTerminations.WithLabelValues(provider, reason).Inc()
}

// ObserveRunDuration records the duration of a completed run.
func ObserveRunDuration(d time.Duration) {
	RunDuration.Observe(d.Seconds())
}

// IncSnapshotWrite records a snapshot mirror write outcome.
func IncSnapshotWrite(ok bool) {
	result := "failure"
	if ok {
		result = "success"
	}
	SnapshotWrites.WithLabelValues(result).Inc()
}
