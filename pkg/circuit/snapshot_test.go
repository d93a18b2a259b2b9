package circuit

import (
	"encoding/json"
	"testing"
)

func TestNewSnapshotFromBuilder(t *testing.T) {
	c := New(2, "bell")
	c.H(0).CX(0, 1).MeasureAll()

	snap, err := NewSnapshot(c)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	if snap.ID != "bell" {
		t.Errorf("Expected id bell, got %s", snap.ID)
	}
	if snap.NumQubits != 2 || snap.NumClbits != 2 {
		t.Errorf("Expected 2 qubits and 2 clbits, got %d and %d", snap.NumQubits, snap.NumClbits)
	}
	if len(snap.Instructions) != 4 {
		t.Errorf("Expected 4 instructions, got %d", len(snap.Instructions))
	}
	if snap.IsDynamic || snap.HasCC || snap.HasQC {
		t.Error("Plain circuit should not be dynamic or communicating")
	}
}

func TestNewSnapshotGeneratesID(t *testing.T) {
	a := New(1)
	b := New(1)
	if a.ID() == "" || a.ID() == b.ID() {
		t.Errorf("Expected distinct generated ids, got %q and %q", a.ID(), b.ID())
	}
}

func TestNewSnapshotFromCommBuilder(t *testing.T) {
	c := New(1, "sender")
	c.H(0).MeasureAndSend(0, "receiver")

	snap, err := NewSnapshot(c)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	if !snap.HasCC {
		t.Error("measure_and_send should mark the circuit as classically communicating")
	}
	if !snap.IsDynamic {
		t.Error("Communicating circuit should be dynamic")
	}
	if len(snap.SendingTo) != 1 || snap.SendingTo[0] != "receiver" {
		t.Errorf("Expected sending_to [receiver], got %v", snap.SendingTo)
	}
}

func TestNewSnapshotFromDoc(t *testing.T) {
	doc := Doc{
		ID:        "circ-1",
		NumQubits: 2,
		NumClbits: 2,
		Registers: RegisterLayout{{Name: "c", Bits: []int{0, 1}}},
		Instructions: []Instruction{
			{Name: "h", Qubits: []int{0}},
			{Name: "measure", Qubits: []int{0}, Clbits: []int{0}},
		},
		HasCC: true,
	}

	snap, err := NewSnapshot(doc)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	if !snap.IsDynamic {
		t.Error("has_cc should imply is_dynamic")
	}

	// The snapshot must not alias the caller's document
	doc.Instructions[0].Name = "x"
	if snap.Instructions[0].Name != "h" {
		t.Error("Snapshot aliases the caller's instruction slice")
	}
}

func TestNewSnapshotFromDocMissingFields(t *testing.T) {
	tests := []struct {
		name string
		doc  Doc
	}{
		{"missing id", Doc{NumQubits: 1, NumClbits: 1, Registers: RegisterLayout{{Name: "c", Bits: []int{0}}}, Instructions: []Instruction{}}},
		{"missing instructions", Doc{ID: "x", NumQubits: 1, NumClbits: 1, Registers: RegisterLayout{{Name: "c", Bits: []int{0}}}}},
		{"missing clbits", Doc{ID: "x", NumQubits: 1, Registers: RegisterLayout{{Name: "c", Bits: []int{0}}}, Instructions: []Instruction{}}},
		{"missing registers", Doc{ID: "x", NumQubits: 1, NumClbits: 1, Instructions: []Instruction{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSnapshot(tt.doc)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if _, ok := err.(*FormatError); !ok {
				t.Errorf("Expected *FormatError, got %T", err)
			}
		})
	}
}

func TestNewSnapshotFromText(t *testing.T) {
	text := `{
		"id": "text-circ",
		"num_qubits": 1,
		"num_clbits": 1,
		"classical_registers": {"c": [0]},
		"instructions": [{"name": "h", "qubits": [0]}]
	}`

	snap, err := NewSnapshot(text)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	if snap.ID != "text-circ" {
		t.Errorf("Expected id text-circ, got %s", snap.ID)
	}
}

func TestNewSnapshotFromInvalidText(t *testing.T) {
	_, err := NewSnapshot("not a circuit")
	if err == nil {
		t.Fatal("Expected an error")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Errorf("Expected *FormatError, got %T", err)
	}
}

func TestNewSnapshotUnsupportedKind(t *testing.T) {
	_, err := NewSnapshot(42)
	if err == nil {
		t.Fatal("Expected an error")
	}
	if _, ok := err.(*FormatError); !ok {
		t.Errorf("Expected *FormatError, got %T", err)
	}
}

type fakeForeign struct{}

func (fakeForeign) CircuitID() string { return "foreign-1" }
func (fakeForeign) NumQubits() int    { return 3 }
func (fakeForeign) ClassicalRegisters() RegisterLayout {
	return RegisterLayout{{Name: "a", Bits: []int{0}}, {Name: "b", Bits: []int{1, 2}}}
}
func (fakeForeign) CircuitInstructions() []Instruction {
	return []Instruction{{Name: "h", Qubits: []int{0}}}
}
func (fakeForeign) IsDynamic() bool { return false }

func TestNewSnapshotFromForeign(t *testing.T) {
	snap, err := NewSnapshot(fakeForeign{})
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}
	if snap.NumClbits != 3 {
		t.Errorf("Expected clbits derived from registers (3), got %d", snap.NumClbits)
	}
	if len(snap.SendingTo) != 0 {
		t.Errorf("Foreign circuits should have no outgoing peers, got %v", snap.SendingTo)
	}
}

func TestRegisterLayoutJSONOrder(t *testing.T) {
	text := `{"zz": [0, 1], "aa": [2], "mm": [3, 4, 5]}`

	var layout RegisterLayout
	if err := json.Unmarshal([]byte(text), &layout); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := []string{"zz", "aa", "mm"}
	for i, name := range want {
		if layout[i].Name != name {
			t.Fatalf("Register %d: expected %s, got %s", i, name, layout[i].Name)
		}
	}

	widths := layout.Widths()
	if widths[0] != 2 || widths[1] != 1 || widths[2] != 3 {
		t.Errorf("Unexpected widths %v", widths)
	}

	out, err := json.Marshal(layout)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"zz":[0,1],"aa":[2],"mm":[3,4,5]}` {
		t.Errorf("Marshal lost declaration order: %s", out)
	}
}

func TestRewritten(t *testing.T) {
	a := New(1, "circuit_a")
	a.H(0).MeasureAndSend(0, "circuit_b")
	snapA, err := NewSnapshot(a)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	correspondence := map[string]string{
		"circuit_a": "worker-1",
		"circuit_b": "worker-2",
	}

	rewritten, err := snapA.Rewritten(correspondence)
	if err != nil {
		t.Fatalf("Rewritten failed: %v", err)
	}

	if rewritten.ID != "worker-1" {
		t.Errorf("Expected own id rewritten to worker-1, got %s", rewritten.ID)
	}

	var comm *Instruction
	for i := range rewritten.Instructions {
		if IsCommunicationOp(rewritten.Instructions[i].Name) {
			comm = &rewritten.Instructions[i]
		}
	}
	if comm == nil {
		t.Fatal("Communication instruction lost during rewrite")
	}
	if len(comm.Workers) != 1 || comm.Workers[0] != "worker-2" {
		t.Errorf("Expected physical reference [worker-2], got %v", comm.Workers)
	}
	if comm.Circuits != nil {
		t.Errorf("Logical reference should be dropped, got %v", comm.Circuits)
	}
	if rewritten.SendingTo[0] != "worker-2" {
		t.Errorf("Expected sending_to rewritten to worker-2, got %v", rewritten.SendingTo)
	}

	// The original snapshot must be untouched
	if snapA.ID != "circuit_a" || snapA.SendingTo[0] != "circuit_b" {
		t.Error("Rewritten mutated the source snapshot")
	}
}

func TestRewrittenUnknownPeer(t *testing.T) {
	a := New(1, "circuit_a")
	a.MeasureAndSend(0, "elsewhere")
	snap, err := NewSnapshot(a)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	_, err = snap.Rewritten(map[string]string{"circuit_a": "worker-1"})
	if err == nil {
		t.Fatal("Expected an error for a peer outside the batch")
	}
}

func TestSnapshotPayloadJSON(t *testing.T) {
	c := New(1, "sender")
	c.RemoteCIf("x", 0, "other")
	snap, err := NewSnapshot(c)
	if err != nil {
		t.Fatalf("NewSnapshot failed: %v", err)
	}

	data, err := json.Marshal(snap.Instructions)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded []map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded[0]["name"] != "remote_c_if" || decoded[0]["gate"] != "x" {
		t.Errorf("Unexpected wire shape: %v", decoded[0])
	}
	if _, ok := decoded[0]["qpus"]; ok {
		t.Error("Physical reference must not be present before rewriting")
	}
}
