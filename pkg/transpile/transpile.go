package transpile

import (
	"fmt"

	"github.com/qdispatch/qdispatch/pkg/backend"
	"github.com/qdispatch/qdispatch/pkg/circuit"
)

// Options control client-side compilation
type Options struct {
	InitialLayout     []int
	OptimizationLevel int
}

// Transpiler compiles a circuit for a target backend: same representation
// in and out. Compilation is an external concern; embedders inject an
// implementation when they want client-side transpilation.
type Transpiler interface {
	Transpile(snap *circuit.Snapshot, target *backend.Backend, opts Options) (*circuit.Snapshot, error)
}

// Binder assigns a parameter vector to the parametric gates of a circuit,
// producing a new snapshot.
type Binder interface {
	Bind(snap *circuit.Snapshot, params []float64) (*circuit.Snapshot, error)
}

// Passthrough is a Transpiler that returns the circuit unchanged
type Passthrough struct{}

func (Passthrough) Transpile(snap *circuit.Snapshot, _ *backend.Backend, _ Options) (*circuit.Snapshot, error) {
	return snap.Clone(), nil
}

// parametricGates are the gate families that accept a rotation parameter
var parametricGates = map[string]bool{
	"rx": true,
	"ry": true,
	"rz": true,
}

// RotationBinder assigns parameters positionally to the rotation gates
// (rx, ry, rz) of a circuit. Only rotation gates are considered parametric.
type RotationBinder struct{}

func (RotationBinder) Bind(snap *circuit.Snapshot, params []float64) (*circuit.Snapshot, error) {
	out := snap.Clone()
	next := 0
	for i := range out.Instructions {
		if !parametricGates[out.Instructions[i].Name] {
			continue
		}
		if next >= len(params) {
			return nil, fmt.Errorf("circuit %q has more parametric gates than the %d parameters provided", snap.ID, len(params))
		}
		out.Instructions[i].Params = []float64{params[next]}
		next++
	}
	if next != len(params) {
		return nil, fmt.Errorf("circuit %q has %d parametric gates but %d parameters were provided", snap.ID, next, len(params))
	}
	return out, nil
}
