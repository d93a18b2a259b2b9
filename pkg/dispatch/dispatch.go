package dispatch

import (
	"fmt"

	"github.com/qdispatch/qdispatch/pkg/circuit"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/metrics"
	"github.com/qdispatch/qdispatch/pkg/qjob"
	"github.com/qdispatch/qdispatch/pkg/worker"
)

// EndpointCountError reports more circuits than workers. No partial
// dispatch happens; nothing was sent.
type EndpointCountError struct {
	Circuits int
	Workers  int
}

func (e *EndpointCountError) Error() string {
	return fmt.Sprintf("not enough workers: %d circuits were given, but only %d workers", e.Circuits, e.Workers)
}

// transpilationKeys are run arguments rejected in distributed mode:
// distributed submissions never compile client-side.
var transpilationKeys = map[string]bool{
	"transpile":      true,
	"initial_layout": true,
	"opt_level":      true,
}

// Dispatcher submits ensembles of circuits that communicate with each
// other. It owns no state between calls; the logical-to-physical
// correspondence built during one dispatch is never shared.
type Dispatcher struct {
	logger *logging.Logger
}

// New creates a dispatcher. A nil logger disables logging.
func New(logger *logging.Logger) *Dispatcher {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Dispatcher{logger: logger}
}

// SubmitDistributed sends each circuit to the worker at the same position:
// circuit i runs on worker i, and that positional pairing — not any name
// matching — decides the physical address every peer reference resolves to.
// Each circuit is deep-copied before its communication instructions are
// rewritten, so caller-owned circuits are never mutated.
//
// Handles are returned in input order. A failing submission aborts the
// remaining ones and surfaces the error; already submitted jobs are neither
// retried nor rolled back, and are returned alongside the error.
func (d *Dispatcher) SubmitDistributed(circuits []interface{}, workers []*worker.Worker, runArgs map[string]interface{}) ([]*qjob.Job, error) {
	// Validate and snapshot every circuit before any network activity
	snapshots := make([]*circuit.Snapshot, len(circuits))
	for i, circ := range circuits {
		snap, err := circuit.NewSnapshot(circ)
		if err != nil {
			return nil, fmt.Errorf("circuit %d: %w", i, err)
		}
		snapshots[i] = snap
	}

	if len(snapshots) > len(workers) {
		return nil, &EndpointCountError{Circuits: len(snapshots), Workers: len(workers)}
	}
	if len(snapshots) < len(workers) {
		d.logger.Warn("more workers provided than circuits; trailing workers will remain unused",
			map[string]interface{}{"circuits": len(snapshots), "workers": len(workers), "unused": len(workers) - len(snapshots)})
	}

	// Positional logical-to-physical correspondence
	correspondence := make(map[string]string, len(snapshots))
	for i, snap := range snapshots {
		correspondence[snap.ID] = workers[i].ID
	}

	// Rewrite peer references to physical worker ids
	rewritten := make([]*circuit.Snapshot, len(snapshots))
	for i, snap := range snapshots {
		r, err := snap.Rewritten(correspondence)
		if err != nil {
			return nil, err
		}
		rewritten[i] = r
	}

	params := filterRunArgs(runArgs, d.logger)

	metrics.DistributedBatchSize.Observe(float64(len(rewritten)))

	jobs := make([]*qjob.Job, 0, len(rewritten))
	for i, snap := range rewritten {
		job, err := workers[i].Submit(snap, params)
		if err != nil {
			return jobs, fmt.Errorf("submitting circuit %d to worker %q: %w", i, workers[i].ID, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// filterRunArgs drops transpilation-related keys with a single aggregate
// warning.
func filterRunArgs(runArgs map[string]interface{}, logger *logging.Logger) map[string]interface{} {
	params := make(map[string]interface{}, len(runArgs))
	warned := false
	for k, v := range runArgs {
		if transpilationKeys[k] {
			if !warned {
				logger.Warn("transpilation arguments are not supported for distributed submissions and will be ignored")
				warned = true
			}
			continue
		}
		params[k] = v
	}
	return params
}
