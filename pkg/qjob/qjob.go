package qjob

import (
	"encoding/json"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/qdispatch/qdispatch/pkg/backend"
	"github.com/qdispatch/qdispatch/pkg/circuit"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/metrics"
	"github.com/qdispatch/qdispatch/pkg/result"
	"github.com/qdispatch/qdispatch/pkg/transport"
)

// Job is the client-side handle for one circuit submitted to one worker.
// It owns the circuit snapshot, the execution configuration, at most one
// in-flight request and the cached decoded result.
//
// Lifecycle: constructed and configured together, then submitted, then
// resolved when the result is read; a resolved job may be reconfigured with
// new parameters any number of times, looping back to submitted. The state
// machine in state.go guarantees two requests are never in flight on the
// same handle.
type Job struct {
	mu sync.Mutex

	client   transport.Client
	backend  *backend.Backend
	snapshot *circuit.Snapshot
	config   ExecutionConfig
	payload  []byte

	req     transport.Request
	result  *result.Result
	updated bool
	state   State

	logger *logging.Logger
}

// New builds a job handle from any accepted circuit representation (see
// circuit.NewSnapshot) and the caller's run-parameter overrides. It does
// not contact the network; call Submit to start execution.
func New(client transport.Client, b *backend.Backend, circ interface{}, overrides map[string]interface{}, logger *logging.Logger) (*Job, error) {
	if logger == nil {
		logger = logging.Discard()
	}

	snap, err := circuit.NewSnapshot(circ)
	if err != nil {
		return nil, err
	}

	cfg := newExecutionConfig(snap, overrides)
	payload, err := json.Marshal(requestPayload{
		ID:           snap.ID,
		Config:       cfg,
		Instructions: snap.Instructions,
		SendingTo:    snap.SendingTo,
		IsDynamic:    snap.IsDynamic,
		HasCC:        snap.HasCC,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize execution request for circuit %q: %w", snap.ID, err)
	}

	logger.Debug("job configured", map[string]interface{}{"circuit": snap.ID, "shots": cfg.Shots})
	return &Job{
		client:   client,
		backend:  b,
		snapshot: snap,
		config:   cfg,
		payload:  payload,
		state:    StateConfigured,
		logger:   logger.WithField("circuit", snap.ID),
	}, nil
}

// CircuitID returns the identifier of the submitted circuit
func (j *Job) CircuitID() string { return j.snapshot.ID }

// Snapshot returns a copy of the circuit snapshot the job was built from
func (j *Job) Snapshot() *circuit.Snapshot { return j.snapshot.Clone() }

// Config returns the execution configuration of the current cycle
func (j *Job) Config() ExecutionConfig { return j.config }

// State returns the current lifecycle state
func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Submit hands the execution request to the worker without blocking for the
// result. Submitting a job that already carries a request logs a warning
// and does nothing.
func (j *Job) Submit() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.req != nil {
		j.logger.Warn("job has already been submitted")
		return nil
	}

	req, err := j.client.SendCircuit(j.payload)
	if err != nil {
		return &SubmissionError{CircuitID: j.snapshot.ID, Err: err}
	}
	if err := ValidateTransition(j.state, StateSubmitted); err != nil {
		return &JobError{CircuitID: j.snapshot.ID, Reason: err.Error()}
	}
	j.state = StateSubmitted
	j.req = req
	metrics.Submissions.Inc()
	j.logger.Debug("circuit sent")
	return nil
}

// Result blocks until the worker resolves the in-flight request, decodes
// the payload and caches it. A job that was never submitted returns
// (nil, nil), which distinguishes "never submitted" from "failed". A
// worker-reported error surfaces as *result.RemoteExecutionError and leaves
// the cache unset.
func (j *Job) Result() (*result.Result, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.req == nil || !j.req.Valid() {
		j.logger.Debug("no request in flight; returning empty result")
		return nil, nil
	}

	if j.result == nil || !j.updated {
		start := time.Now()
		body, err := j.req.Get()
		metrics.ResultWaitSeconds.Observe(time.Since(start).Seconds())
		if err != nil {
			return nil, fmt.Errorf("error while reading the result of circuit %q: %w", j.snapshot.ID, err)
		}

		res, err := result.Decode(body, j.snapshot.ID, j.snapshot.Registers)
		if err != nil {
			if _, remote := err.(*result.RemoteExecutionError); remote {
				metrics.RemoteErrors.Inc()
			}
			return nil, err
		}
		j.result = res
		j.updated = true
		if err := ValidateTransition(j.state, StateResolved); err == nil {
			j.state = StateResolved
		}
		metrics.Resolved.Inc()
	}

	if j.backend.RequiresEqualClbits() && j.snapshot.NumClbits != j.snapshot.NumQubits {
		j.logger.Warn("simulator requires the classical-bit count to equal the qubit count; classical bits may appear rewritten",
			map[string]interface{}{"num_clbits": j.snapshot.NumClbits, "num_qubits": j.snapshot.NumQubits})
	}

	return j.result, nil
}

// UpgradeParameters reassigns the parametric gates of a previously
// submitted circuit and triggers a re-simulation. Any pending request is
// force-drained first, its value discarded, so the handle never carries two
// requests at once. The remote circuit is assumed parametric with the same
// gate family as at submission; no arity re-validation happens client-side.
func (j *Job) UpgradeParameters(params []float64) error {
	if params == nil {
		return &ParameterTypeError{Reason: "a parameter sequence is required"}
	}
	for i, p := range params {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return &ParameterTypeError{Reason: fmt.Sprintf("parameter %d is not a real number", i)}
		}
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.req == nil {
		return &JobError{CircuitID: j.snapshot.ID, Reason: "cannot upgrade parameters before the job is submitted"}
	}

	// Drain the pending response if nobody consumed it, discarding the
	// value. Requests and parameter updates must be strictly serialized on
	// one worker connection.
	if !j.updated && j.req.Valid() {
		if _, err := j.req.Get(); err != nil {
			return fmt.Errorf("error while draining the pending result of circuit %q: %w", j.snapshot.ID, err)
		}
		if err := ValidateTransition(j.state, StateResolved); err == nil {
			j.state = StateResolved
		}
	}

	payload, err := json.Marshal(parameterPayload{Params: params})
	if err != nil {
		return fmt.Errorf("failed to serialize parameters for circuit %q: %w", j.snapshot.ID, err)
	}

	req, err := j.client.SendParameters(payload)
	if err != nil {
		return &SubmissionError{CircuitID: j.snapshot.ID, Err: err}
	}
	if err := ValidateTransition(j.state, StateSubmitted); err != nil {
		return &JobError{CircuitID: j.snapshot.ID, Reason: err.Error()}
	}
	j.state = StateSubmitted
	j.req = req
	j.updated = false
	metrics.ParameterUpdates.Inc()
	j.logger.Debug("parameters sent", map[string]interface{}{"count": len(params)})
	return nil
}

// TimeTaken returns the duration in seconds of the cached result. It fails
// with *JobError when no result has ever resolved.
func (j *Job) TimeTaken() (float64, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.req == nil {
		return 0, &JobError{CircuitID: j.snapshot.ID, Reason: "no job submitted"}
	}
	if j.result == nil {
		return 0, &JobError{CircuitID: j.snapshot.ID, Reason: "job not finished"}
	}
	return j.result.TimeTaken()
}
