// Package fixture decodes the per-operator JSON test resources and caches
// them for the lifetime of a run.
package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/example/go-webnn-conformance/internal/operand"
)

// Case is one test resource: inputs, options and expected outputs, plus the
// operator-specific arguments some builders take outside of options.
type Case struct {
	Name     string   `json:"name"`
	Inputs   Inputs   `json:"inputs"`
	Options  Options  `json:"options"`
	Expected Expected `json:"expected"`

	Type             operand.DataType `json:"type,omitempty"`
	Axis             *int64           `json:"axis,omitempty"`
	NewShape         []int64          `json:"newShape,omitempty"`
	Starts           []int64          `json:"starts,omitempty"`
	Sizes            []int64          `json:"sizes,omitempty"`
	Splits           operand.Data     `json:"splits"`
	BeginningPadding []int64          `json:"beginningPadding,omitempty"`
	EndingPadding    []int64          `json:"endingPadding,omitempty"`
	OutputShape      []int64          `json:"outputShape,omitempty"`
}

// Operand is one named tensor in a fixture.
type Operand struct {
	Name     string           `json:"name,omitempty"`
	Type     operand.DataType `json:"type"`
	Shape    []int64          `json:"shape,omitempty"`
	Data     operand.Data     `json:"data"`
	Constant bool             `json:"constant,omitempty"`
}

// Descriptor returns the operand's type and shape. A missing shape is a
// rank-0 scalar.
func (o Operand) Descriptor() operand.Descriptor {
	return operand.NewDescriptor(o.Name, o.Type, o.Shape)
}

// HasShape reports whether the fixture declared a shape.
func (o Operand) HasShape() bool { return o.Shape != nil }

// Inputs holds the input operands in document order. Fixtures declare them
// either as an object keyed by name or as an array of named operands.
type Inputs struct {
	operands []Operand
	sequence bool
}

// NewInputs builds keyed inputs in the given order.
func NewInputs(operands ...Operand) Inputs {
	return Inputs{operands: append([]Operand(nil), operands...)}
}

func (in Inputs) Len() int { return len(in.operands) }

// At returns the i-th declared input.
func (in Inputs) At(i int) Operand { return in.operands[i] }

// Operands returns a copy of the inputs in declaration order.
func (in Inputs) Operands() []Operand {
	return append([]Operand(nil), in.operands...)
}

// Get finds an input by name.
func (in Inputs) Get(name string) (Operand, bool) {
	for _, op := range in.operands {
		if op.Name == name {
			return op, true
		}
	}

	return Operand{}, false
}

// IsSequence reports whether the fixture used the array form.
func (in Inputs) IsSequence() bool { return in.sequence }

func (in *Inputs) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var ops []Operand
		if err := json.Unmarshal(b, &ops); err != nil {
			return fmt.Errorf("fixture: decode inputs: %w", err)
		}

		*in = Inputs{operands: ops, sequence: true}

		return nil
	}

	var ops []Operand

	err := decodeOrdered(b, func(key string, dec *json.Decoder) error {
		var op Operand
		if err := dec.Decode(&op); err != nil {
			return fmt.Errorf("input %q: %w", key, err)
		}

		if op.Name == "" {
			op.Name = key
		}

		ops = append(ops, op)

		return nil
	})
	if err != nil {
		return fmt.Errorf("fixture: decode inputs: %w", err)
	}

	*in = Inputs{operands: ops}

	return nil
}

func (in Inputs) MarshalJSON() ([]byte, error) {
	if in.sequence {
		return json.Marshal(in.operands)
	}

	var buf bytes.Buffer

	buf.WriteByte('{')

	for i, op := range in.operands {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := json.Marshal(op.Name)
		if err != nil {
			return nil, err
		}

		val, err := json.Marshal(op)
		if err != nil {
			return nil, err
		}

		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}

	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// Expected holds the expected output record, or the sequence of records of
// a multi-output operator such as split.
type Expected struct {
	records  []Operand
	sequence bool
}

// Single builds a single-output expectation.
func Single(rec Operand) Expected {
	return Expected{records: []Operand{rec}}
}

// Sequence builds a multi-output expectation.
func Sequence(recs ...Operand) Expected {
	return Expected{records: append([]Operand(nil), recs...), sequence: true}
}

// Records returns the expected records in declaration order.
func (e Expected) Records() []Operand {
	return append([]Operand(nil), e.records...)
}

func (e Expected) IsSequence() bool { return e.sequence }

// Find returns the record whose name matches an output name.
func (e Expected) Find(name string) (Operand, error) {
	for _, rec := range e.records {
		if rec.Name == name {
			return rec, nil
		}
	}

	return Operand{}, fmt.Errorf("fixture: failed to get expected data sources and type by %q", name)
}

// PrecisionType is the data type tolerances are looked up by: the type of
// the first expected record.
func (e Expected) PrecisionType() operand.DataType {
	if len(e.records) == 0 {
		return ""
	}

	return e.records[0].Type
}

func (e *Expected) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '[' {
		var recs []Operand
		if err := json.Unmarshal(b, &recs); err != nil {
			return fmt.Errorf("fixture: decode expected: %w", err)
		}

		*e = Expected{records: recs, sequence: true}

		return nil
	}

	var rec Operand
	if err := json.Unmarshal(b, &rec); err != nil {
		return fmt.Errorf("fixture: decode expected: %w", err)
	}

	*e = Single(rec)

	return nil
}

func (e Expected) MarshalJSON() ([]byte, error) {
	if e.sequence {
		return json.Marshal(e.records)
	}

	if len(e.records) == 0 {
		return []byte("null"), nil
	}

	return json.Marshal(e.records[0])
}

// decodeOrdered walks a JSON object, handing each key to fn with the decoder
// positioned at the value.
func decodeOrdered(b []byte, fn func(key string, dec *json.Decoder) error) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}

	if tok == nil {
		return nil
	}

	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}

		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected object key, got %v", tok)
		}

		if err := fn(key, dec); err != nil {
			return err
		}
	}

	_, err = dec.Token()

	return err
}
