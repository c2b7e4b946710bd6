// Package host describes the execution backend a conformance run drives:
// build a graph for one operator, then compute it with typed buffers.
package host

import (
	"context"
	"errors"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// ErrUnsupportedOperator is returned by Build for operators a backend does
// not implement. Runs report such cases as skipped.
var ErrUnsupportedOperator = errors.New("host: unsupported operator")

// Operand is one graph operand. Constant is set when the operand's data is
// baked into the graph instead of fed at compute time.
type Operand struct {
	operand.Descriptor
	Constant *buffer.Buffer
}

func (o Operand) IsConstant() bool { return o.Constant != nil }

// GraphSpec is everything a backend needs to build a single-operator graph.
type GraphSpec struct {
	Operator tolerance.Operator
	// Name is the fixture case the graph was built for.
	Name     string
	Inputs   []Operand
	Options  fixture.Options
	// OptionOperands holds options that are operands (bias, scale, gemm c),
	// materialized as constants.
	OptionOperands map[string]Operand
	Outputs        []operand.Descriptor

	// Arguments some operators take outside of options.
	Type             operand.DataType
	Axis             *int64
	NewShape         []int64
	Starts           []int64
	Sizes            []int64
	Splits           operand.Data
	BeginningPadding []int64
	EndingPadding    []int64
	OutputShape      []int64
}

// Input returns the input operand called name.
func (s GraphSpec) Input(name string) (Operand, bool) {
	for _, in := range s.Inputs {
		if in.Name == name {
			return in, true
		}
	}

	return Operand{}, false
}

// Graph is a built graph. Backends return their own implementation.
type Graph interface {
	Spec() GraphSpec
}

// Backend builds and computes single-operator graphs.
type Backend interface {
	Name() string
	Build(ctx context.Context, spec GraphSpec) (Graph, error)
	// Compute reads the non-constant inputs by name and fills the
	// pre-sized outputs in place.
	Compute(ctx context.Context, g Graph, inputs, outputs map[string]*buffer.Buffer) error
	Close() error
}
