package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Client-side instrumentation for job orchestration. Registered on the
// default registry so embedders expose them through their own /metrics
// handler.
var (
	Submissions = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qdispatch",
		Subsystem: "jobs",
		Name:      "submissions_total",
		Help:      "Number of circuit execution requests handed to workers",
	})

	ParameterUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qdispatch",
		Subsystem: "jobs",
		Name:      "parameter_updates_total",
		Help:      "Number of parameter-update requests sent on resolved jobs",
	})

	Resolved = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qdispatch",
		Subsystem: "jobs",
		Name:      "resolved_total",
		Help:      "Number of job results decoded successfully",
	})

	RemoteErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "qdispatch",
		Subsystem: "jobs",
		Name:      "remote_errors_total",
		Help:      "Number of results carrying a worker-reported error",
	})

	ResultWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qdispatch",
		Subsystem: "jobs",
		Name:      "result_wait_seconds",
		Help:      "Wall-clock time spent blocked waiting for a worker result",
		Buckets:   prometheus.ExponentialBuckets(0.001, 4, 12),
	})

	DistributedBatchSize = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "qdispatch",
		Subsystem: "dispatch",
		Name:      "batch_size",
		Help:      "Number of circuits per distributed submission",
		Buckets:   prometheus.LinearBuckets(1, 1, 16),
	})
)
