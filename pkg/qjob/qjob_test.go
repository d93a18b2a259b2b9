package qjob

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/qdispatch/qdispatch/pkg/backend"
	"github.com/qdispatch/qdispatch/pkg/circuit"
	"github.com/qdispatch/qdispatch/pkg/logging"
	"github.com/qdispatch/qdispatch/pkg/transport"
)

// fakeRequest is an in-memory transport.Request that resolves to a fixed body
type fakeRequest struct {
	body  []byte
	err   error
	delay time.Duration
	gets  *int32
}

func (r *fakeRequest) Valid() bool { return true }

func (r *fakeRequest) Get() ([]byte, error) {
	if r.delay > 0 {
		time.Sleep(r.delay)
	}
	if r.gets != nil {
		atomic.AddInt32(r.gets, 1)
	}
	return r.body, r.err
}

// fakeClient records sent payloads and serves scripted responses
type fakeClient struct {
	circuitPayloads [][]byte
	paramPayloads   [][]byte

	responses [][]byte
	sendErr   error
	delay     time.Duration
	gets      int32
}

func (c *fakeClient) Connect(endpoint string) error { return nil }

func (c *fakeClient) SendCircuit(payload []byte) (transport.Request, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.circuitPayloads = append(c.circuitPayloads, payload)
	return c.nextRequest(), nil
}

func (c *fakeClient) SendParameters(payload []byte) (transport.Request, error) {
	if c.sendErr != nil {
		return nil, c.sendErr
	}
	c.paramPayloads = append(c.paramPayloads, payload)
	return c.nextRequest(), nil
}

func (c *fakeClient) nextRequest() transport.Request {
	body := []byte(`{"counts": {"0": 1024}, "time_taken": 0.1}`)
	if len(c.responses) > 0 {
		body = c.responses[0]
		c.responses = c.responses[1:]
	}
	return &fakeRequest{body: body, delay: c.delay, gets: &c.gets}
}

func testBackend() *backend.Backend {
	return &backend.Backend{Name: "test", Simulator: backend.SimulatorAer, NQubits: 8}
}

func testCircuit(id string) *circuit.Circuit {
	c := circuit.New(1, id)
	c.H(0).MeasureAll()
	return c
}

func newTestJob(t *testing.T, client *fakeClient, id string) *Job {
	t.Helper()
	job, err := New(client, testBackend(), testCircuit(id), nil, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return job
}

func TestNewDoesNotContactNetwork(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if len(client.circuitPayloads) != 0 {
		t.Error("New must not send anything")
	}
	if job.State() != StateConfigured {
		t.Errorf("Expected configured state, got %s", job.State())
	}
}

func TestNewRejectsInvalidCircuit(t *testing.T) {
	_, err := New(&fakeClient{}, testBackend(), 42, nil, nil)
	if err == nil {
		t.Fatal("Expected an error")
	}
	var formatErr *circuit.FormatError
	if !errors.As(err, &formatErr) {
		t.Errorf("Expected *circuit.FormatError, got %T", err)
	}
}

func TestConfigDefaults(t *testing.T) {
	job := newTestJob(t, &fakeClient{}, "circ")

	cfg := job.Config()
	if cfg.Shots != 1024 {
		t.Errorf("Expected 1024 shots, got %d", cfg.Shots)
	}
	if cfg.Method != "automatic" {
		t.Errorf("Expected method automatic, got %s", cfg.Method)
	}
	if cfg.Seed != 123123 {
		t.Errorf("Expected seed 123123, got %d", cfg.Seed)
	}
	if cfg.AvoidParallelization {
		t.Error("avoid_parallelization should default to false")
	}
	if cfg.NumQubits != 1 || cfg.NumClbits != 1 {
		t.Errorf("Expected bit counts from the circuit, got %d/%d", cfg.NumQubits, cfg.NumClbits)
	}
}

func TestConfigOverrides(t *testing.T) {
	overrides := map[string]interface{}{
		"shots":     4096,
		"method":    "statevector",
		"fake_flag": true,
	}
	job, err := New(&fakeClient{}, testBackend(), testCircuit("circ"), overrides, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	cfg := job.Config()
	if cfg.Shots != 4096 || cfg.Method != "statevector" {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if cfg.Extra["fake_flag"] != true {
		t.Errorf("Unknown overrides should be forwarded, got %v", cfg.Extra)
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	var flat map[string]interface{}
	if err := json.Unmarshal(data, &flat); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if flat["fake_flag"] != true || flat["shots"] != float64(4096) {
		t.Errorf("Config wire shape not flattened: %v", flat)
	}
}

func TestSubmitSendsPayloadOnce(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(client.circuitPayloads) != 1 {
		t.Fatalf("Expected 1 circuit payload, got %d", len(client.circuitPayloads))
	}
	if job.State() != StateSubmitted {
		t.Errorf("Expected submitted state, got %s", job.State())
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(client.circuitPayloads[0], &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if payload["id"] != "circ" {
		t.Errorf("Unexpected payload id %v", payload["id"])
	}
	if _, ok := payload["config"]; !ok {
		t.Error("Payload should carry the execution config")
	}

	// Second submit is a no-op, not an error
	if err := job.Submit(); err != nil {
		t.Fatalf("Second Submit failed: %v", err)
	}
	if len(client.circuitPayloads) != 1 {
		t.Errorf("Double submit must not send again, got %d payloads", len(client.circuitPayloads))
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	client := &fakeClient{sendErr: fmt.Errorf("connection refused")}
	job := newTestJob(t, client, "circ")

	err := job.Submit()
	var subErr *SubmissionError
	if !errors.As(err, &subErr) {
		t.Fatalf("Expected *SubmissionError, got %v", err)
	}
	if subErr.CircuitID != "circ" {
		t.Errorf("Expected circuit id circ, got %q", subErr.CircuitID)
	}
	if job.State() != StateConfigured {
		t.Errorf("Failed submission should leave the job configured, got %s", job.State())
	}
}

func TestResultBeforeSubmit(t *testing.T) {
	job := newTestJob(t, &fakeClient{}, "circ")

	res, err := job.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	if res != nil {
		t.Error("A never-submitted job must resolve to a nil result")
	}
}

func TestResultCaching(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	res, err := job.Result()
	if err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	counts, err := res.Counts()
	if err != nil {
		t.Fatalf("Counts failed: %v", err)
	}
	if counts["0"] != 1024 {
		t.Errorf("Unexpected counts %v", counts)
	}
	if job.State() != StateResolved {
		t.Errorf("Expected resolved state, got %s", job.State())
	}

	// A second read serves the cache without touching the transport
	if _, err := job.Result(); err != nil {
		t.Fatalf("Second Result failed: %v", err)
	}
	if atomic.LoadInt32(&client.gets) != 1 {
		t.Errorf("Expected 1 transport read, got %d", client.gets)
	}
}

func TestResultRemoteError(t *testing.T) {
	client := &fakeClient{responses: [][]byte{[]byte(`{"ERROR": "bad gate"}`)}}
	job := newTestJob(t, client, "circ")

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	_, err := job.Result()
	if err == nil {
		t.Fatal("Expected an error")
	}

	// The remote failure leaves no cached result behind
	_, err = job.TimeTaken()
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("Expected *JobError, got %v", err)
	}
}

func TestUpgradeParametersValidation(t *testing.T) {
	job := newTestJob(t, &fakeClient{}, "circ")

	tests := []struct {
		name   string
		params []float64
	}{
		{"nil", nil},
		{"nan", []float64{0.1, math.NaN()}},
		{"inf", []float64{math.Inf(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := job.UpgradeParameters(tt.params)
			var typeErr *ParameterTypeError
			if !errors.As(err, &typeErr) {
				t.Errorf("Expected *ParameterTypeError, got %v", err)
			}
		})
	}
}

func TestUpgradeParametersBeforeSubmit(t *testing.T) {
	job := newTestJob(t, &fakeClient{}, "circ")

	err := job.UpgradeParameters([]float64{0.5})
	var jobErr *JobError
	if !errors.As(err, &jobErr) {
		t.Fatalf("Expected *JobError, got %v", err)
	}
}

func TestUpgradeParametersDrainsPendingRequest(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	// Two back-to-back upgrades with nobody reading results in between.
	// Each must drain the previous in-flight request before sending.
	if err := job.UpgradeParameters([]float64{0.1}); err != nil {
		t.Fatalf("First upgrade failed: %v", err)
	}
	if atomic.LoadInt32(&client.gets) != 1 {
		t.Errorf("Expected the submission to be drained once, got %d reads", client.gets)
	}

	if err := job.UpgradeParameters([]float64{0.2}); err != nil {
		t.Fatalf("Second upgrade failed: %v", err)
	}
	if atomic.LoadInt32(&client.gets) != 2 {
		t.Errorf("Expected the first upgrade to be drained, got %d reads", client.gets)
	}

	if len(client.paramPayloads) != 2 {
		t.Fatalf("Expected 2 parameter payloads, got %d", len(client.paramPayloads))
	}
	var payload map[string]interface{}
	if err := json.Unmarshal(client.paramPayloads[1], &payload); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	params, ok := payload["params"].([]interface{})
	if !ok || len(params) != 1 || params[0] != 0.2 {
		t.Errorf("Unexpected parameter payload %v", payload)
	}
}

func TestUpgradeAfterResolvedSkipsDrain(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := job.Result(); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	if err := job.UpgradeParameters([]float64{0.3}); err != nil {
		t.Fatalf("Upgrade failed: %v", err)
	}
	// One read for Result, none for the drain
	if atomic.LoadInt32(&client.gets) != 1 {
		t.Errorf("Consumed result should not be drained again, got %d reads", client.gets)
	}

	// The upgrade invalidates the cache; the next read hits the transport
	if _, err := job.Result(); err != nil {
		t.Fatalf("Result after upgrade failed: %v", err)
	}
	if atomic.LoadInt32(&client.gets) != 2 {
		t.Errorf("Expected a fresh transport read after the upgrade, got %d", client.gets)
	}
}

func TestTimeTaken(t *testing.T) {
	client := &fakeClient{}
	job := newTestJob(t, client, "circ")

	if _, err := job.TimeTaken(); err == nil {
		t.Error("TimeTaken before submission should fail")
	}

	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := job.TimeTaken(); err == nil {
		t.Error("TimeTaken before the result resolves should fail")
	}

	if _, err := job.Result(); err != nil {
		t.Fatalf("Result failed: %v", err)
	}
	seconds, err := job.TimeTaken()
	if err != nil {
		t.Fatalf("TimeTaken failed: %v", err)
	}
	if seconds != 0.1 {
		t.Errorf("Expected 0.1 seconds, got %g", seconds)
	}
}

func TestResultWarnsOnUnequalClbits(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.WARN, false)
	logger.SetOutput(&buf)

	// Distributed simulator, but the circuit declares an extra register
	b := &backend.Backend{Name: "dist", Simulator: backend.SimulatorDistributed, NQubits: 8}
	c := circuit.New(1, "circ")
	c.AddRegister("extra", 1)
	c.H(0).MeasureAll()

	job, err := New(&fakeClient{}, b, c, nil, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := job.Submit(); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if _, err := job.Result(); err != nil {
		t.Fatalf("Result failed: %v", err)
	}

	if !strings.Contains(buf.String(), "classical") {
		t.Errorf("Expected a clbits warning, got: %s", buf.String())
	}
}

func TestGatherPreservesOrder(t *testing.T) {
	// The slow job comes first: its result must still land at index 0
	slow := &fakeClient{delay: 30 * time.Millisecond, responses: [][]byte{[]byte(`{"counts": {"0": 1}}`)}}
	fast := &fakeClient{responses: [][]byte{[]byte(`{"counts": {"1": 1}}`)}}

	jobA := newTestJob(t, slow, "circ-a")
	jobB := newTestJob(t, fast, "circ-b")

	for _, j := range []*Job{jobA, jobB} {
		if err := j.Submit(); err != nil {
			t.Fatalf("Submit failed: %v", err)
		}
	}

	results, err := Gather([]*Job{jobA, jobB})
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].CircuitID() != "circ-a" || results[1].CircuitID() != "circ-b" {
		t.Errorf("Results out of input order: %s, %s", results[0].CircuitID(), results[1].CircuitID())
	}
}

func TestGatherNilJobs(t *testing.T) {
	if _, err := Gather(nil); err == nil {
		t.Error("Gather(nil) should fail")
	}
	if _, err := Gather([]*Job{nil}); err == nil {
		t.Error("Gather with a nil element should fail")
	}
}

func TestGatherNeverSubmittedYieldsNilEntry(t *testing.T) {
	job := newTestJob(t, &fakeClient{}, "circ")

	results, err := Gather([]*Job{job})
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	if results[0] != nil {
		t.Error("A never-submitted job should gather to a nil result")
	}
}

func TestValidateTransition(t *testing.T) {
	valid := []struct{ from, to State }{
		{StateConfigured, StateSubmitted},
		{StateSubmitted, StateResolved},
		{StateResolved, StateSubmitted},
	}
	for _, tt := range valid {
		if err := ValidateTransition(tt.from, tt.to); err != nil {
			t.Errorf("Expected %s -> %s to be valid: %v", tt.from, tt.to, err)
		}
	}

	invalid := []struct{ from, to State }{
		{StateConfigured, StateResolved},
		{StateResolved, StateConfigured},
		{StateSubmitted, StateConfigured},
	}
	for _, tt := range invalid {
		if err := ValidateTransition(tt.from, tt.to); err == nil {
			t.Errorf("Expected %s -> %s to be rejected", tt.from, tt.to)
		}
	}
}
