package worker

import (
	"fmt"
	"sync"

	"github.com/qdispatch/qdispatch/pkg/backend"
	"github.com/qdispatch/qdispatch/pkg/circuit"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/qjob"
	"github.com/qdispatch/qdispatch/pkg/transpile"
	"github.com/qdispatch/qdispatch/pkg/transport"
)

// Worker is the client-side handle for one remote execution endpoint. The
// connection is established lazily on the first submission and is then
// owned exclusively by the jobs submitted through this handle: the
// transport serves one request at a time per connection.
type Worker struct {
	ID       string
	Name     string
	Family   string
	Endpoint string
	Backend  *backend.Backend

	client     transport.Client
	transpiler transpile.Transpiler
	logger     *logging.Logger

	mu        sync.Mutex
	connected bool
}

// New creates a worker handle. No network activity happens until the first
// submission.
func New(id, name, family, endpoint string, b *backend.Backend, client transport.Client, logger *logging.Logger) *Worker {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Worker{
		ID:       id,
		Name:     name,
		Family:   family,
		Endpoint: endpoint,
		Backend:  b,
		client:   client,
		logger:   logger.WithField("worker", id),
	}
}

// SetTranspiler injects the compiler used when RunOptions.Transpile is set
func (w *Worker) SetTranspiler(t transpile.Transpiler) {
	w.transpiler = t
}

// RunOptions control one submission through Run
type RunOptions struct {
	// Transpile compiles the circuit against the worker's backend before
	// submission. Requires a transpiler to be injected.
	Transpile bool
	// InitialLayout maps virtual qubits to physical qubits for compilation
	InitialLayout []int
	// OptimizationLevel is the compiler effort; 1 when unset
	OptimizationLevel int
	// Params are run-parameter overrides merged on top of the defaults
	Params map[string]interface{}
}

// Run submits one circuit to the worker and returns its job handle.
// Circuits carrying communication instructions are rejected: they must be
// dispatched as an ensemble (dispatch.SubmitDistributed) so that peer
// references can be rewritten.
func (w *Worker) Run(circ interface{}, opts *RunOptions) (*qjob.Job, error) {
	if opts == nil {
		opts = &RunOptions{}
	}

	snap, err := circuit.NewSnapshot(circ)
	if err != nil {
		return nil, err
	}
	if snap.HasCC || snap.HasQC {
		return nil, fmt.Errorf("circuit %q has communication instructions and cannot run on a single worker; use distributed dispatch", snap.ID)
	}

	if opts.Transpile {
		if w.transpiler == nil {
			return nil, fmt.Errorf("worker %q has no transpiler configured", w.ID)
		}
		level := opts.OptimizationLevel
		if level == 0 {
			level = 1
		}
		snap, err = w.transpiler.Transpile(snap, w.Backend, transpile.Options{
			InitialLayout:     opts.InitialLayout,
			OptimizationLevel: level,
		})
		if err != nil {
			return nil, fmt.Errorf("transpilation failed for circuit %q: %w", snap.ID, err)
		}
		w.logger.Debug("transpilation done", map[string]interface{}{"circuit": snap.ID})
	}

	return w.Submit(snap, opts.Params)
}

// Submit is the single-job submission path: it connects lazily, builds the
// job handle and fires the request. It performs no communication-circuit
// check; the distributed dispatcher calls it with rewritten snapshots.
func (w *Worker) Submit(snap *circuit.Snapshot, params map[string]interface{}) (*qjob.Job, error) {
	if err := w.connect(); err != nil {
		return nil, err
	}

	job, err := qjob.New(w.client, w.Backend, snap, params, w.logger)
	if err != nil {
		return nil, err
	}
	if err := job.Submit(); err != nil {
		return nil, err
	}
	w.logger.Debug("job submitted", map[string]interface{}{"circuit": job.CircuitID()})
	return job, nil
}

// connect establishes the transport connection once
func (w *Worker) connect() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.connected {
		return nil
	}
	if err := w.client.Connect(w.Endpoint); err != nil {
		return fmt.Errorf("worker %q: %w", w.ID, err)
	}
	w.connected = true
	w.logger.Debug("connection established", map[string]interface{}{"endpoint": w.Endpoint})
	return nil
}

func (w *Worker) String() string {
	return fmt.Sprintf("Worker(%s, %s)", w.ID, w.Endpoint)
}
