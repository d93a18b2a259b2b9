package backend

import "fmt"

// Simulator kinds a worker can report. The distributed simulator requires
// the classical-bit count of a circuit to equal its qubit count; decoding
// results for circuits that break that invariant may show overwritten
// classical bits.
const (
	SimulatorAer         = "AerSimulator"
	SimulatorMunich      = "MunichSimulator"
	SimulatorDistributed = "CunqaSimulator"
)

// Backend is the static description of the device a worker emulates. It is
// used for compile-time decisions only; it never changes after the worker
// registry is loaded.
type Backend struct {
	Name               string  `json:"name" yaml:"name"`
	Version            string  `json:"version,omitempty" yaml:"version,omitempty"`
	Description        string  `json:"description,omitempty" yaml:"description,omitempty"`
	Simulator          string  `json:"simulator" yaml:"simulator"`
	NQubits            int     `json:"n_qubits" yaml:"n_qubits"`
	BasisGates         []string `json:"basis_gates,omitempty" yaml:"basis_gates,omitempty"`
	Gates              []string `json:"gates,omitempty" yaml:"gates,omitempty"`
	CouplingMap        [][]int `json:"coupling_map,omitempty" yaml:"coupling_map,omitempty"`
	CustomInstructions string  `json:"custom_instructions,omitempty" yaml:"custom_instructions,omitempty"`
	NoisePath          string  `json:"noise_path,omitempty" yaml:"noise_path,omitempty"`
}

// RequiresEqualClbits reports whether the backend's simulator kind carries
// the invariant that the classical-bit count must equal the qubit count.
func (b *Backend) RequiresEqualClbits() bool {
	return b != nil && b.Simulator == SimulatorDistributed
}

func (b *Backend) String() string {
	return fmt.Sprintf("Backend(%s, %s, %d qubits)", b.Name, b.Simulator, b.NQubits)
}
