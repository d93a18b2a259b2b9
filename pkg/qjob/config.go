package qjob

import (
	"encoding/json"

	"github.com/qdispatch/qdispatch/pkg/circuit"
)

// Defaults applied to every submission unless overridden by the caller
const (
	DefaultShots  = 1024
	DefaultMethod = "automatic"
	DefaultSeed   = 123123
)

// ExecutionConfig carries the run-time parameters of one submission. It is
// built once per submission cycle from the defaults, the circuit snapshot
// and the caller's overrides; caller keys win. Extra holds overrides that
// are not standard fields and are forwarded to the worker untouched.
type ExecutionConfig struct {
	Shots                int    `json:"shots"`
	Method               string `json:"method"`
	AvoidParallelization bool   `json:"avoid_parallelization"`
	NumClbits            int    `json:"num_clbits"`
	NumQubits            int    `json:"num_qubits"`
	Seed                 int64  `json:"seed"`

	Extra map[string]interface{} `json:"-"`
}

// newExecutionConfig merges caller overrides on top of the defaults and the
// snapshot's bit counts.
func newExecutionConfig(snap *circuit.Snapshot, overrides map[string]interface{}) ExecutionConfig {
	cfg := ExecutionConfig{
		Shots:     DefaultShots,
		Method:    DefaultMethod,
		NumClbits: snap.NumClbits,
		NumQubits: snap.NumQubits,
		Seed:      DefaultSeed,
	}
	for key, value := range overrides {
		switch key {
		case "shots":
			if n, ok := toInt(value); ok {
				cfg.Shots = n
				continue
			}
		case "method":
			if s, ok := value.(string); ok {
				cfg.Method = s
				continue
			}
		case "avoid_parallelization":
			if b, ok := value.(bool); ok {
				cfg.AvoidParallelization = b
				continue
			}
		case "num_clbits":
			if n, ok := toInt(value); ok {
				cfg.NumClbits = n
				continue
			}
		case "num_qubits":
			if n, ok := toInt(value); ok {
				cfg.NumQubits = n
				continue
			}
		case "seed":
			if n, ok := toInt(value); ok {
				cfg.Seed = int64(n)
				continue
			}
		}
		if cfg.Extra == nil {
			cfg.Extra = make(map[string]interface{})
		}
		cfg.Extra[key] = value
	}
	return cfg
}

// MarshalJSON flattens the standard fields and the extra overrides into one
// object, the shape the workers expect.
func (c ExecutionConfig) MarshalJSON() ([]byte, error) {
	merged := map[string]interface{}{
		"shots":                 c.Shots,
		"method":                c.Method,
		"avoid_parallelization": c.AvoidParallelization,
		"num_clbits":            c.NumClbits,
		"num_qubits":            c.NumQubits,
		"seed":                  c.Seed,
	}
	for k, v := range c.Extra {
		merged[k] = v
	}
	return json.Marshal(merged)
}

func toInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return int(n), true
	default:
		return 0, false
	}
}

// requestPayload is the serialized execution request handed to a worker
type requestPayload struct {
	ID           string                `json:"id"`
	Config       ExecutionConfig       `json:"config"`
	Instructions []circuit.Instruction `json:"instructions"`
	SendingTo    []string              `json:"sending_to"`
	IsDynamic    bool                  `json:"is_dynamic"`
	HasCC        bool                  `json:"has_cc"`
}

// parameterPayload is the serialized parameter update sent on the dedicated
// parameter channel.
type parameterPayload struct {
	Params []float64 `json:"params"`
}
