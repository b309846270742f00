package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SpawnsTotal tracks the total number of workers spawned.
var SpawnsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "readerpool_spawns_total",
		Help: "Total number of worker processes spawned",
	},
	[]string{"pool"},
)

// SpawnFailuresTotal tracks spawn attempts that did not produce a tracked worker.
var SpawnFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "readerpool_spawn_failures_total",
		Help: "Total spawn failures by reason",
	},
	[]string{"pool", "reason"},
)

// ForkLatency tracks how long process creation took.
var ForkLatency = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "readerpool_fork_latency_seconds",
		Help:    "Latency of worker process creation",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"pool"},
)

// WorkerExitsTotal tracks worker exits by cause.
var WorkerExitsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "readerpool_worker_exits_total",
		Help: "Total worker exits by cause",
	},
	[]string{"pool", "cause"},
)

// RotationsTotal tracks full-generation rotations.
var RotationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "readerpool_rotations_total",
		Help: "Total generation rotations",
	},
	[]string{"pool"},
)

// ReapDuration tracks how long a rotation spent reaping the old generation.
var ReapDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "readerpool_reap_duration_seconds",
		Help:    "Time spent reaping the old generation during rotation",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"pool"},
)

// LiveWorkers tracks the current number of live workers in the active generation.
var LiveWorkers = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "readerpool_live_workers",
		Help: "Current live workers in the active generation",
	},
	[]string{"pool"},
)

// TargetSize tracks the configured target pool size.
var TargetSize = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "readerpool_target_size",
		Help: "Configured target worker count",
	},
	[]string{"pool"},
)

// GenerationAge tracks the age of the active generation.
var GenerationAge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "readerpool_generation_age_seconds",
		Help: "Age of the active generation",
	},
	[]string{"pool"},
)

// RetiredWorkers tracks pids parked on the retired drain list.
var RetiredWorkers = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "readerpool_retired_workers",
		Help: "Workers signalled during rotation but not yet reaped",
	},
	[]string{"pool"},
)
