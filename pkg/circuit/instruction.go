package circuit

// Communication opcodes reference another circuit as a runtime peer for a
// classical or quantum signal exchange. Before dispatch they carry exactly
// one logical peer circuit id in Circuits; after distributed rewriting they
// carry exactly one physical worker id in Workers and no logical reference.
const (
	OpMeasureAndSend = "measure_and_send"
	OpRemoteCIf      = "remote_c_if"
	OpRecv           = "recv"
	OpQSend          = "qsend"
	OpQRecv          = "qrecv"
	OpExpose         = "expose"
	OpRControl       = "rcontrol"
)

var communicationOps = map[string]bool{
	OpMeasureAndSend: true,
	OpRemoteCIf:      true,
	OpRecv:           true,
	OpQSend:          true,
	OpQRecv:          true,
	OpExpose:         true,
	OpRControl:       true,
}

// IsCommunicationOp reports whether name is one of the opcodes that carry a
// peer circuit reference.
func IsCommunicationOp(name string) bool {
	return communicationOps[name]
}

// Instruction is one operation of a circuit. Qubits and Clbits are operand
// indices. Gate names the conditioned gate for remote_c_if and rcontrol.
type Instruction struct {
	Name     string    `json:"name"`
	Qubits   []int     `json:"qubits,omitempty"`
	Clbits   []int     `json:"clbits,omitempty"`
	Params   []float64 `json:"params,omitempty"`
	Gate     string    `json:"gate,omitempty"`
	Circuits []string  `json:"circuits,omitempty"`
	Workers  []string  `json:"qpus,omitempty"`
}

// clone returns a deep copy of the instruction
func (in Instruction) clone() Instruction {
	out := in
	out.Qubits = append([]int(nil), in.Qubits...)
	out.Clbits = append([]int(nil), in.Clbits...)
	out.Params = append([]float64(nil), in.Params...)
	out.Circuits = append([]string(nil), in.Circuits...)
	out.Workers = append([]string(nil), in.Workers...)
	return out
}
