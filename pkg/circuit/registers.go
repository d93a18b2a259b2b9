package circuit

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ClassicalRegister is one named group of classical bits. Bits holds the
// global classical-bit indices belonging to the register.
type ClassicalRegister struct {
	Name string
	Bits []int
}

// Size returns the bit width of the register
func (r ClassicalRegister) Size() int {
	return len(r.Bits)
}

// RegisterLayout is the ordered classical-register layout of a circuit.
// Declaration order is significant: result bitstrings are split into groups
// following this order.
type RegisterLayout []ClassicalRegister

// Widths returns the bit width of every register in declaration order
func (l RegisterLayout) Widths() []int {
	widths := make([]int, len(l))
	for i, r := range l {
		widths[i] = len(r.Bits)
	}
	return widths
}

// TotalBits returns the total number of classical bits in the layout
func (l RegisterLayout) TotalBits() int {
	total := 0
	for _, r := range l {
		total += len(r.Bits)
	}
	return total
}

func (l RegisterLayout) clone() RegisterLayout {
	out := make(RegisterLayout, len(l))
	for i, r := range l {
		out[i] = ClassicalRegister{Name: r.Name, Bits: append([]int(nil), r.Bits...)}
	}
	return out
}

// MarshalJSON encodes the layout as an object mapping register name to its
// bit indices, preserving declaration order.
func (l RegisterLayout) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(r.Name)
		if err != nil {
			return nil, err
		}
		bits, err := json.Marshal(r.Bits)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		buf.Write(bits)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object mapping register name to bit indices.
// Key order in the document is preserved, which a plain map decode would
// lose.
func (l *RegisterLayout) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("classical registers: expected object, got %v", tok)
	}

	out := RegisterLayout{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("classical registers: non-string key %v", keyTok)
		}
		var bits []int
		if err := dec.Decode(&bits); err != nil {
			return fmt.Errorf("classical register %q: %w", name, err)
		}
		out = append(out, ClassicalRegister{Name: name, Bits: bits})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*l = out
	return nil
}
