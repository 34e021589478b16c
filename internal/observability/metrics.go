package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered globally, so every binary exposes the full set
// (with zero values for the parts it does not run).

// namespace prefixes every metric (adentity_...).
const namespace = "adentity"

// Outcomes recorded by ContextValuesTotal.
const (
	OutcomeSaved       = "saved"
	OutcomeDropped     = "dropped"
	OutcomeRejected    = "rejected"
	OutcomePassthrough = "passthrough"
)

var (
	// Admin API

	// ControlPlaneReqDuration is adentity_control_plane_http_handling_seconds.
	ControlPlaneReqDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_handling_seconds",
		Help:      "Admin API request latency by route",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	// ControlPlaneReqTotal is adentity_control_plane_http_requests_total.
	ControlPlaneReqTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "http_requests_total",
		Help:      "Admin API requests by route and status code",
	}, []string{"method", "route", "code"})

	// UpdatePublishTotal counts update events pushed to the queue by the control plane.
	UpdatePublishTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "control_plane",
		Name:      "update_publish_total",
		Help:      "Update events published to the sync queue",
	}, []string{"status"})

	// Context assignments

	// ContextValuesTotal counts normalized assignment values per outcome.
	// Metric: adentity_context_values_total
	ContextValuesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "context_values_total",
		Help:      "Context assignment values processed by the normalizer",
	}, []string{"outcome"})

	// ContextFormBuildDuration measures the time to build an assignment form.
	ContextFormBuildDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "context_form_build_seconds",
		Help:      "Time taken to build context assignment forms",
		Buckets:   []float64{.0005, .001, .0025, .005, .010, .025, .050, .100},
	})

	// Placement option cache (otter)

	PlacementCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "placement_cache",
		Name:      "hits_total",
		Help:      "Placement option lookups served from memory",
	})

	PlacementCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "placement_cache",
		Name:      "misses_total",
		Help:      "Placement option lookups that reloaded from the store",
	})

	PlacementCacheInvalidations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "placement_cache",
		Name:      "invalidations_total",
		Help:      "Placement option cache invalidations after writes",
	})

	// Syncer workers

	// SyncerJobDuration measures one job including retries.
	SyncerJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "job_processing_duration_seconds",
		Help:      "Time to reload a record and write it to the read model",
		Buckets:   prometheus.DefBuckets,
	})

	SyncerJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "jobs_total",
		Help:      "Queue events handled by record kind and outcome",
	}, []string{"kind", "status"}) // kind: placement, field; status: success, fail

	SyncerHydrationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "syncer",
		Name:      "hydrations_total",
		Help:      "Full read model rebuilds",
	}, []string{"status"})

	RedisQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "redis_queue_depth",
		Help:      "Update events waiting in the sync queue",
	})
)

var (
	// Database (pgxpool)

	// DatabasePoolConnections reports pool sizes by state (total, idle, in_use, max).
	DatabasePoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_connections",
		Help:      "Connections in the PostgreSQL pool by state",
	}, []string{"state"})

	DatabasePoolAcquireCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_count_total",
		Help:      "Successful connection acquisitions from the pool",
	})

	DatabasePoolAcquireDuration = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_acquire_duration_seconds_total",
		Help:      "Total time spent acquiring connections",
	})

	DatabasePoolWaitCount = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "database",
		Name:      "pool_wait_count_total",
		Help:      "Acquisitions that had to wait for a free connection",
	})
)

var (
	// Redis pool and read model

	RedisPoolConnections = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_connections",
		Help:      "Connections in the Redis pool by state (total, idle, stale)",
	}, []string{"state"})

	RedisPoolHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_hits_total",
		Help:      "Times a free connection was found in the pool",
	})

	RedisPoolMisses = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_misses_total",
		Help:      "Times a new connection had to be dialed",
	})

	RedisPoolTimeouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "redis",
		Name:      "pool_timeouts_total",
		Help:      "Times a wait for a connection timed out",
	})

	// ReadModelWritesTotal counts compare-and-set outcomes (updated, skipped, repaired).
	ReadModelWritesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "read_model",
		Name:      "writes_total",
		Help:      "Versioned read model writes by kind and result",
	}, []string{"kind", "result"})
)
