package circuit

import (
	"fmt"

	"github.com/google/uuid"
)

// Circuit is the communication-aware circuit builder. It accumulates
// instructions and tracks whether the circuit takes part in classical or
// quantum exchanges with peer circuits. A Circuit is mutable while being
// built; submission converts it into an immutable Snapshot.
type Circuit struct {
	id           string
	numQubits    int
	numClbits    int
	registers    RegisterLayout
	instructions []Instruction
	sendingTo    []string
	hasCC        bool
	hasQC        bool
	dynamic      bool
}

// New creates a circuit with numQubits qubits and a single classical
// register of the same width. When no id is given, a random one is
// assigned.
func New(numQubits int, id ...string) *Circuit {
	circuitID := ""
	if len(id) > 0 {
		circuitID = id[0]
	}
	if circuitID == "" {
		circuitID = uuid.NewString()
	}
	bits := make([]int, numQubits)
	for i := range bits {
		bits[i] = i
	}
	return &Circuit{
		id:        circuitID,
		numQubits: numQubits,
		numClbits: numQubits,
		registers: RegisterLayout{{Name: "c", Bits: bits}},
		sendingTo: []string{},
	}
}

// AddRegister appends a named classical register of the given width. The
// new bits are indexed after the existing ones.
func (c *Circuit) AddRegister(name string, size int) *Circuit {
	bits := make([]int, size)
	for i := range bits {
		bits[i] = c.numClbits + i
	}
	c.numClbits += size
	c.registers = append(c.registers, ClassicalRegister{Name: name, Bits: bits})
	return c
}

// ID returns the logical circuit identifier
func (c *Circuit) ID() string { return c.id }

// NumQubits returns the number of qubits
func (c *Circuit) NumQubits() int { return c.numQubits }

// NumClbits returns the number of classical bits
func (c *Circuit) NumClbits() int { return c.numClbits }

// HasClassicalComm reports whether the circuit exchanges classical signals
// with peer circuits.
func (c *Circuit) HasClassicalComm() bool { return c.hasCC }

// HasQuantumComm reports whether the circuit exchanges quantum signals with
// peer circuits.
func (c *Circuit) HasQuantumComm() bool { return c.hasQC }

// MarkDynamic flags the circuit as dynamic regardless of communication
// instructions.
func (c *Circuit) MarkDynamic() *Circuit {
	c.dynamic = true
	return c
}

func (c *Circuit) add(in Instruction) *Circuit {
	c.instructions = append(c.instructions, in)
	return c
}

// H applies a Hadamard gate
func (c *Circuit) H(qubit int) *Circuit {
	return c.add(Instruction{Name: "h", Qubits: []int{qubit}})
}

// X applies a Pauli-X gate
func (c *Circuit) X(qubit int) *Circuit {
	return c.add(Instruction{Name: "x", Qubits: []int{qubit}})
}

// Y applies a Pauli-Y gate
func (c *Circuit) Y(qubit int) *Circuit {
	return c.add(Instruction{Name: "y", Qubits: []int{qubit}})
}

// Z applies a Pauli-Z gate
func (c *Circuit) Z(qubit int) *Circuit {
	return c.add(Instruction{Name: "z", Qubits: []int{qubit}})
}

// RX applies a rotation around the X axis
func (c *Circuit) RX(theta float64, qubit int) *Circuit {
	return c.add(Instruction{Name: "rx", Qubits: []int{qubit}, Params: []float64{theta}})
}

// RY applies a rotation around the Y axis
func (c *Circuit) RY(theta float64, qubit int) *Circuit {
	return c.add(Instruction{Name: "ry", Qubits: []int{qubit}, Params: []float64{theta}})
}

// RZ applies a rotation around the Z axis
func (c *Circuit) RZ(theta float64, qubit int) *Circuit {
	return c.add(Instruction{Name: "rz", Qubits: []int{qubit}, Params: []float64{theta}})
}

// CX applies a controlled-X gate
func (c *Circuit) CX(control, target int) *Circuit {
	return c.add(Instruction{Name: "cx", Qubits: []int{control, target}})
}

// Measure measures qubit into the classical bit with the same index
func (c *Circuit) Measure(qubit int) *Circuit {
	return c.add(Instruction{Name: "measure", Qubits: []int{qubit}, Clbits: []int{qubit}})
}

// MeasureAll measures every qubit into its matching classical bit
func (c *Circuit) MeasureAll() *Circuit {
	for q := 0; q < c.numQubits; q++ {
		c.Measure(q)
	}
	return c
}

// MeasureAndSend measures qubit and sends the outcome to the circuit with
// the given logical id. Marks the circuit as classically communicating.
func (c *Circuit) MeasureAndSend(qubit int, target string) *Circuit {
	c.hasCC = true
	c.sendingTo = append(c.sendingTo, target)
	return c.add(Instruction{Name: OpMeasureAndSend, Qubits: []int{qubit}, Circuits: []string{target}})
}

// RemoteCIf applies gate to qubit conditioned on a classical outcome
// received from the circuit with the given logical id.
func (c *Circuit) RemoteCIf(gate string, qubit int, source string) *Circuit {
	c.hasCC = true
	return c.add(Instruction{Name: OpRemoteCIf, Gate: gate, Qubits: []int{qubit}, Circuits: []string{source}})
}

// Recv receives a classical outcome from the circuit with the given logical
// id into a classical bit.
func (c *Circuit) Recv(clbit int, source string) *Circuit {
	c.hasCC = true
	return c.add(Instruction{Name: OpRecv, Clbits: []int{clbit}, Circuits: []string{source}})
}

// QSend teleports the state of qubit to the circuit with the given logical
// id. Marks the circuit as quantum communicating.
func (c *Circuit) QSend(qubit int, target string) *Circuit {
	c.hasQC = true
	c.sendingTo = append(c.sendingTo, target)
	return c.add(Instruction{Name: OpQSend, Qubits: []int{qubit}, Circuits: []string{target}})
}

// QRecv receives a teleported state into qubit from the circuit with the
// given logical id.
func (c *Circuit) QRecv(qubit int, source string) *Circuit {
	c.hasQC = true
	return c.add(Instruction{Name: OpQRecv, Qubits: []int{qubit}, Circuits: []string{source}})
}

// Expose makes qubit available as a remote control for the circuit with the
// given logical id.
func (c *Circuit) Expose(qubit int, target string) *Circuit {
	c.hasQC = true
	c.sendingTo = append(c.sendingTo, target)
	return c.add(Instruction{Name: OpExpose, Qubits: []int{qubit}, Circuits: []string{target}})
}

// RControl applies gate to qubit controlled by a qubit exposed by the
// circuit with the given logical id.
func (c *Circuit) RControl(gate string, qubit int, source string) *Circuit {
	c.hasQC = true
	return c.add(Instruction{Name: OpRControl, Gate: gate, Qubits: []int{qubit}, Circuits: []string{source}})
}

func (c *Circuit) String() string {
	return fmt.Sprintf("Circuit(%s, %d qubits, %d instructions)", c.id, c.numQubits, len(c.instructions))
}
