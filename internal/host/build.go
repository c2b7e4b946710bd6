package host

import (
	"fmt"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// optionOperandKeys are the options that carry operands rather than scalars.
var optionOperandKeys = []string{"bias", "scale", "c"}

// BuildGraph turns a case into a graph spec plus the buffers to compute it
// with: materialized non-constant inputs and zeroed outputs sized from the
// expected records. A scalar expected output without a shape gets one
// element.
func BuildGraph(op tolerance.Operator, c *fixture.Case) (GraphSpec, map[string]*buffer.Buffer, map[string]*buffer.Buffer, error) {
	spec := GraphSpec{
		Operator:         op,
		Name:             c.Name,
		Options:          c.Options,
		OptionOperands:   make(map[string]Operand),
		Type:             c.Type,
		Axis:             c.Axis,
		NewShape:         c.NewShape,
		Starts:           c.Starts,
		Sizes:            c.Sizes,
		Splits:           c.Splits,
		BeginningPadding: c.BeginningPadding,
		EndingPadding:    c.EndingPadding,
		OutputShape:      c.OutputShape,
	}

	inputs := make(map[string]*buffer.Buffer)

	for _, in := range c.Inputs.Operands() {
		desc := in.Descriptor()

		buf, err := buffer.MaterializeDescriptor(desc, in.Data)
		if err != nil {
			return GraphSpec{}, nil, nil, fmt.Errorf("host: build %s: %w", op, err)
		}

		if in.Constant {
			spec.Inputs = append(spec.Inputs, Operand{Descriptor: desc, Constant: buf})
			continue
		}

		spec.Inputs = append(spec.Inputs, Operand{Descriptor: desc})
		inputs[desc.Name] = buf
	}

	for _, key := range optionOperandKeys {
		o, err := optionOperand(c.Options, key)
		if err != nil {
			return GraphSpec{}, nil, nil, fmt.Errorf("host: build %s: %w", op, err)
		}

		if o != nil {
			spec.OptionOperands[key] = *o
		}
	}

	outputs := make(map[string]*buffer.Buffer)

	for _, rec := range c.Expected.Records() {
		shape := rec.Shape
		if !c.Expected.IsSequence() && !rec.HasShape() {
			shape = []int64{1}
		}

		desc := operand.NewDescriptor(rec.Name, rec.Type, shape)

		buf, err := buffer.ForDescriptor(desc)
		if err != nil {
			return GraphSpec{}, nil, nil, fmt.Errorf("host: build %s: output %q: %w", op, rec.Name, err)
		}

		spec.Outputs = append(spec.Outputs, desc)
		outputs[desc.Name] = buf
	}

	return spec, inputs, outputs, nil
}

// optionOperand materializes an operand-valued option. A bare number is a
// one-element float32 constant.
func optionOperand(opts fixture.Options, key string) (*Operand, error) {
	if !opts.Truthy(key) {
		return nil, nil
	}

	rec, ok, err := opts.Operand(key)
	if err != nil {
		return nil, err
	}

	if !ok {
		v, err := opts.Float(key, 0)
		if err != nil {
			return nil, err
		}

		desc := operand.NewDescriptor(key, operand.Float32, []int64{1})

		return &Operand{Descriptor: desc, Constant: buffer.FromFloat32s([]float32{float32(v)})}, nil
	}

	desc := rec.Descriptor()

	buf, err := buffer.MaterializeDescriptor(desc, rec.Data)
	if err != nil {
		return nil, fmt.Errorf("option %q: %w", key, err)
	}

	return &Operand{Descriptor: desc, Constant: buf}, nil
}
