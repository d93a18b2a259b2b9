package circuit

import (
	"encoding/json"
	"fmt"
)

// FormatError reports an unrecognized or malformed circuit representation.
// It is a caller bug and is never retried.
type FormatError struct {
	Reason string
	Field  string
}

func (e *FormatError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid circuit: %s (field %q)", e.Reason, e.Field)
	}
	return fmt.Sprintf("invalid circuit: %s", e.Reason)
}

// Doc is the raw instruction-list representation of a circuit, matching the
// JSON documents exchanged with workers.
type Doc struct {
	ID           string         `json:"id"`
	NumQubits    int            `json:"num_qubits"`
	NumClbits    int            `json:"num_clbits"`
	Registers    RegisterLayout `json:"classical_registers"`
	Instructions []Instruction  `json:"instructions"`
	SendingTo    []string       `json:"sending_to,omitempty"`
	HasCC        bool           `json:"has_cc,omitempty"`
	HasQC        bool           `json:"has_qc,omitempty"`
	IsDynamic    bool           `json:"is_dynamic,omitempty"`
}

// ForeignCircuit adapts a circuit object from another toolkit. Implementors
// expose enough structure to build a Snapshot; communication instructions
// are not expected from foreign circuits.
type ForeignCircuit interface {
	CircuitID() string
	NumQubits() int
	ClassicalRegisters() RegisterLayout
	CircuitInstructions() []Instruction
	IsDynamic() bool
}

// Snapshot is an immutable, fully-resolved description of one circuit at
// submission time. It never aliases caller-owned state: every conversion
// deep-copies, and rewriting produces a new Snapshot.
type Snapshot struct {
	ID           string
	NumQubits    int
	NumClbits    int
	Registers    RegisterLayout
	Instructions []Instruction
	SendingTo    []string
	HasCC        bool
	HasQC        bool
	IsDynamic    bool
}

// NewSnapshot converts any of the four accepted circuit representations into
// a Snapshot: the communication-aware builder (*Circuit), the raw
// instruction-list document (Doc or *Doc), a foreign circuit object
// (ForeignCircuit), or a textual JSON description (string or []byte).
// Unrecognized kinds fail with *FormatError.
func NewSnapshot(src interface{}) (*Snapshot, error) {
	switch c := src.(type) {
	case *Circuit:
		return snapshotFromBuilder(c)
	case Doc:
		return snapshotFromDoc(&c)
	case *Doc:
		return snapshotFromDoc(c)
	case ForeignCircuit:
		return snapshotFromForeign(c)
	case string:
		return snapshotFromText([]byte(c))
	case []byte:
		return snapshotFromText(c)
	case *Snapshot:
		return c.Clone(), nil
	default:
		return nil, &FormatError{Reason: fmt.Sprintf("unsupported representation %T", src)}
	}
}

func snapshotFromBuilder(c *Circuit) (*Snapshot, error) {
	if c == nil {
		return nil, &FormatError{Reason: "nil circuit"}
	}
	return &Snapshot{
		ID:           c.id,
		NumQubits:    c.numQubits,
		NumClbits:    c.numClbits,
		Registers:    c.registers.clone(),
		Instructions: cloneInstructions(c.instructions),
		SendingTo:    append([]string(nil), c.sendingTo...),
		HasCC:        c.hasCC,
		HasQC:        c.hasQC,
		IsDynamic:    c.hasCC || c.hasQC || c.dynamic,
	}, nil
}

func snapshotFromDoc(d *Doc) (*Snapshot, error) {
	if d == nil {
		return nil, &FormatError{Reason: "nil circuit document"}
	}
	if d.ID == "" {
		return nil, &FormatError{Reason: "missing circuit identifier", Field: "id"}
	}
	if d.Instructions == nil {
		return nil, &FormatError{Reason: "missing instruction list", Field: "instructions"}
	}
	if d.NumClbits == 0 {
		return nil, &FormatError{Reason: "missing classical-bit count", Field: "num_clbits"}
	}
	if len(d.Registers) == 0 {
		return nil, &FormatError{Reason: "missing classical-register layout", Field: "classical_registers"}
	}
	return &Snapshot{
		ID:           d.ID,
		NumQubits:    d.NumQubits,
		NumClbits:    d.NumClbits,
		Registers:    d.Registers.clone(),
		Instructions: cloneInstructions(d.Instructions),
		SendingTo:    append([]string(nil), d.SendingTo...),
		HasCC:        d.HasCC,
		HasQC:        d.HasQC,
		IsDynamic:    d.HasCC || d.HasQC || d.IsDynamic,
	}, nil
}

func snapshotFromForeign(c ForeignCircuit) (*Snapshot, error) {
	regs := c.ClassicalRegisters()
	if len(regs) == 0 {
		return nil, &FormatError{Reason: "missing classical-register layout", Field: "classical_registers"}
	}
	instrs := c.CircuitInstructions()
	if instrs == nil {
		return nil, &FormatError{Reason: "missing instruction list", Field: "instructions"}
	}
	return &Snapshot{
		ID:           c.CircuitID(),
		NumQubits:    c.NumQubits(),
		NumClbits:    regs.TotalBits(),
		Registers:    regs.clone(),
		Instructions: cloneInstructions(instrs),
		SendingTo:    []string{},
		IsDynamic:    c.IsDynamic(),
	}, nil
}

func snapshotFromText(data []byte) (*Snapshot, error) {
	var d Doc
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("cannot parse circuit text: %v", err)}
	}
	return snapshotFromDoc(&d)
}

func cloneInstructions(in []Instruction) []Instruction {
	out := make([]Instruction, len(in))
	for i, instr := range in {
		out[i] = instr.clone()
	}
	return out
}

// Clone returns a deep copy of the snapshot
func (s *Snapshot) Clone() *Snapshot {
	out := *s
	out.Registers = s.Registers.clone()
	out.Instructions = cloneInstructions(s.Instructions)
	out.SendingTo = append([]string(nil), s.SendingTo...)
	return &out
}

// Doc returns the snapshot as a raw instruction-list document
func (s *Snapshot) Doc() *Doc {
	c := s.Clone()
	return &Doc{
		ID:           c.ID,
		NumQubits:    c.NumQubits,
		NumClbits:    c.NumClbits,
		Registers:    c.Registers,
		Instructions: c.Instructions,
		SendingTo:    c.SendingTo,
		HasCC:        c.HasCC,
		HasQC:        c.HasQC,
		IsDynamic:    c.IsDynamic,
	}
}

// Rewritten returns a copy of the snapshot with every logical peer circuit
// reference replaced by the physical worker id it maps to in correspondence.
// Communication instructions end up carrying exactly one worker id and no
// logical reference; the circuit's own id is replaced the same way. The
// receiver is left untouched.
func (s *Snapshot) Rewritten(correspondence map[string]string) (*Snapshot, error) {
	out := s.Clone()

	for i := range out.Instructions {
		instr := &out.Instructions[i]
		if !IsCommunicationOp(instr.Name) {
			continue
		}
		if len(instr.Circuits) != 1 {
			return nil, fmt.Errorf("instruction %q of circuit %q carries %d peer references, want 1",
				instr.Name, s.ID, len(instr.Circuits))
		}
		physical, ok := correspondence[instr.Circuits[0]]
		if !ok {
			return nil, fmt.Errorf("circuit %q references peer %q which is not part of the batch",
				s.ID, instr.Circuits[0])
		}
		instr.Workers = []string{physical}
		instr.Circuits = nil
	}

	for i, peer := range out.SendingTo {
		physical, ok := correspondence[peer]
		if !ok {
			return nil, fmt.Errorf("circuit %q sends to %q which is not part of the batch", s.ID, peer)
		}
		out.SendingTo[i] = physical
	}

	physical, ok := correspondence[out.ID]
	if !ok {
		return nil, fmt.Errorf("circuit %q is not part of the batch correspondence", s.ID)
	}
	out.ID = physical

	return out, nil
}
