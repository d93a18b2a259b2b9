package result

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/qdispatch/qdispatch/pkg/circuit"
)

// ErrEmptyPayload is returned when a worker response carries no payload
var ErrEmptyPayload = errors.New("empty result payload")

// RemoteExecutionError reports a failure the worker itself signalled during
// simulation. It carries the worker-reported message and is never retried.
type RemoteExecutionError struct {
	CircuitID string
	Message   string
}

func (e *RemoteExecutionError) Error() string {
	if e.CircuitID != "" {
		return fmt.Sprintf("remote execution failed for circuit %q: %s", e.CircuitID, e.Message)
	}
	return fmt.Sprintf("remote execution failed: %s", e.Message)
}

// DecodeError reports a response payload whose shape is not one of the two
// accepted forms.
type DecodeError struct {
	CircuitID string
	Missing   string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode result for circuit %q: no %s field in payload", e.CircuitID, e.Missing)
}

// Result is the decoded outcome of one simulation. The raw payload is kept
// verbatim; counts and duration are derived on access.
//
// Two payload shapes are accepted:
//
//	{"results":[{"data":{"counts":{...}},"time_taken":<seconds>}]}
//	{"counts":{...},"time_taken":<seconds>}
type Result struct {
	raw       map[string]interface{}
	circuitID string
	registers circuit.RegisterLayout
}

// Decode turns a raw worker response into a Result. An empty payload fails
// with ErrEmptyPayload; an explicit {"ERROR": msg} payload fails with
// *RemoteExecutionError carrying the worker's message. The register layout
// is kept for multi-register bitstring reconstruction.
func Decode(raw []byte, circuitID string, registers circuit.RegisterLayout) (*Result, error) {
	if len(raw) == 0 {
		return nil, ErrEmptyPayload
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("result payload for circuit %q is not a JSON object: %w", circuitID, err)
	}
	if payload == nil {
		return nil, ErrEmptyPayload
	}

	if msg, ok := payload["ERROR"]; ok {
		return nil, &RemoteExecutionError{CircuitID: circuitID, Message: fmt.Sprintf("%v", msg)}
	}

	return &Result{raw: payload, circuitID: circuitID, registers: registers}, nil
}

// CircuitID returns the identifier of the circuit that produced the result
func (r *Result) CircuitID() string { return r.circuitID }

// Raw returns the payload as decoded from the wire
func (r *Result) Raw() map[string]interface{} { return r.raw }

// Counts returns the measurement bitstring distribution. When the circuit
// declared more than one classical register, each bitstring is split into
// contiguous groups matching the register widths in declaration order,
// joined by single spaces. A bitstring shorter than the declared total
// width yields truncated trailing groups; this is not guarded.
func (r *Result) Counts() (map[string]int, error) {
	data, err := r.lookup("counts")
	if err != nil {
		return nil, err
	}

	rawCounts, ok := data.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("counts for circuit %q: expected object, got %T", r.circuitID, data)
	}

	counts := make(map[string]int, len(rawCounts))
	for bitstring, v := range rawCounts {
		n, ok := v.(float64)
		if !ok {
			return nil, fmt.Errorf("counts for circuit %q: non-numeric count for %q", r.circuitID, bitstring)
		}
		key := bitstring
		if len(r.registers) > 1 {
			key = divide(bitstring, r.registers.Widths())
		}
		counts[key] = int(n)
	}
	return counts, nil
}

// TimeTaken returns the simulation duration in seconds
func (r *Result) TimeTaken() (float64, error) {
	data, err := r.lookup("time_taken")
	if err != nil {
		return 0, err
	}
	seconds, ok := data.(float64)
	if !ok {
		return 0, fmt.Errorf("time_taken for circuit %q: expected number, got %T", r.circuitID, data)
	}
	return seconds, nil
}

// lookup finds a field under either of the two accepted payload shapes.
// counts lives under results[0].data in the nested shape; time_taken lives
// directly under results[0].
func (r *Result) lookup(field string) (interface{}, error) {
	if results, ok := r.raw["results"].([]interface{}); ok && len(results) > 0 {
		if entry, ok := results[0].(map[string]interface{}); ok {
			if field == "counts" {
				if data, ok := entry["data"].(map[string]interface{}); ok {
					if v, ok := data[field]; ok {
						return v, nil
					}
				}
			} else if v, ok := entry[field]; ok {
				return v, nil
			}
		}
		return nil, &DecodeError{CircuitID: r.circuitID, Missing: field}
	}
	if v, ok := r.raw[field]; ok {
		return v, nil
	}
	return nil, &DecodeError{CircuitID: r.circuitID, Missing: field}
}

// divide splits a bitstring into contiguous groups of the given lengths,
// joined by single spaces.
func divide(bitstring string, lengths []int) string {
	if len(lengths) == 0 {
		return bitstring
	}
	parts := make([]string, 0, len(lengths))
	start := 0
	for _, length := range lengths {
		end := start + length
		if start > len(bitstring) {
			start = len(bitstring)
		}
		if end > len(bitstring) {
			end = len(bitstring)
		}
		parts = append(parts, bitstring[start:end])
		start += length
	}
	return strings.Join(parts, " ")
}

func (r *Result) String() string {
	counts, err := r.Counts()
	if err != nil {
		return fmt.Sprintf("%s: <undecodable: %v>", r.circuitID, err)
	}
	seconds, err := r.TimeTaken()
	if err != nil {
		return fmt.Sprintf("%s: {counts: %v}", r.circuitID, counts)
	}
	return fmt.Sprintf("%s: {counts: %v, time_taken: %g s}", r.circuitID, counts, seconds)
}
