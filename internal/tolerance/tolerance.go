// Package tolerance holds the per-operator precision table and resolves the
// tolerance a result check runs under.
package tolerance

import (
	"fmt"
	"math"

	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
)

// Metric selects how outputs are compared.
type Metric string

const (
	// ULP bounds the distance between bit patterns.
	ULP Metric = "ULP"
	// ATOL bounds the absolute difference of real values.
	ATOL Metric = "ATOL"
)

// ParseMetric accepts the metric names used in the table.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case ULP, ATOL:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMetric, s)
	}
}

// Strategy computes a tolerance from the shapes and options of a case.
type Strategy interface {
	Tolerance(c *fixture.Case, op Operator) (float64, error)
}

// StrategyFunc adapts a function to Strategy.
type StrategyFunc func(c *fixture.Case, op Operator) (float64, error)

func (f StrategyFunc) Tolerance(c *fixture.Case, op Operator) (float64, error) {
	return f(c, op)
}

// Tolerance is either a fixed bound or a strategy evaluated per case.
type Tolerance struct {
	value    float64
	strategy Strategy
}

// Fixed is a constant tolerance.
func Fixed(v float64) Tolerance { return Tolerance{value: v} }

// Dynamic is a tolerance computed by s.
func Dynamic(s Strategy) Tolerance { return Tolerance{strategy: s} }

// IsDynamic reports whether the tolerance depends on the case.
func (t Tolerance) IsDynamic() bool { return t.strategy != nil }

// Value returns the fixed bound, or evaluates the strategy against c.
func (t Tolerance) Value(c *fixture.Case, op Operator) (float64, error) {
	switch {
	case t.strategy != nil:
		v, err := t.strategy.Tolerance(c, op)
		if err != nil {
			return 0, err
		}

		if math.IsNaN(v) || v < 0 {
			return 0, fmt.Errorf("tolerance: %s produced invalid tolerance %v", op, v)
		}

		return v, nil
	default:
		return t.value, nil
	}
}

func (t Tolerance) String() string {
	if t.strategy != nil {
		return "dynamic"
	}

	return fmt.Sprintf("%g", t.value)
}

// Spec is one table entry: the metric an operator is checked with and its
// tolerance for each output data type.
type Spec struct {
	Metric Metric
	ByType map[operand.DataType]Tolerance
}

// DataTypes returns the types the entry covers, in operand.DataTypes order.
func (s Spec) DataTypes() []operand.DataType {
	var out []operand.DataType

	for _, dt := range operand.DataTypes {
		if _, ok := s.ByType[dt]; ok {
			out = append(out, dt)
		}
	}

	return out
}

func ulp(byType map[operand.DataType]Tolerance) Spec {
	return Spec{Metric: ULP, ByType: byType}
}

func atol(byType map[operand.DataType]Tolerance) Spec {
	return Spec{Metric: ATOL, ByType: byType}
}

// floats gives float32 and float16 the same tolerance.
func floats(t Tolerance) map[operand.DataType]Tolerance {
	return map[operand.DataType]Tolerance{operand.Float32: t, operand.Float16: t}
}

func byType(f32, f16 Tolerance) map[operand.DataType]Tolerance {
	return map[operand.DataType]Tolerance{operand.Float32: f32, operand.Float16: f16}
}

func only(dt operand.DataType, t Tolerance) map[operand.DataType]Tolerance {
	return map[operand.DataType]Tolerance{dt: t}
}

// allTypes covers every element type: floats get f, integers are exact.
func allTypes(f float64) map[operand.DataType]Tolerance {
	return map[operand.DataType]Tolerance{
		operand.Float32: Fixed(f),
		operand.Float16: Fixed(f),
		operand.Int32:   Fixed(0),
		operand.Uint32:  Fixed(0),
		operand.Int64:   Fixed(0),
		operand.Int8:    Fixed(0),
		operand.Uint8:   Fixed(0),
	}
}

var (
	conv       = Dynamic(StrategyFunc(convTolerance))
	gemm       = Dynamic(StrategyFunc(gemmTolerance))
	matmul     = Dynamic(StrategyFunc(matmulTolerance))
	pool       = Dynamic(StrategyFunc(poolTolerance))
	softmax    = Dynamic(StrategyFunc(softmaxTolerance))
	reduction  = Dynamic(StrategyFunc(reductionTolerance))
	resample2d = Dynamic(StrategyFunc(resampleTolerance))

	exact     = floats(Fixed(0))
	trigF32   = Fixed(1.0 / 1024)
	trigF16   = Fixed(1.0 / 512)
	logicalOp = ulp(only(operand.Uint8, Fixed(0)))
)

// Table is the precision table. It is read-only after init.
var Table = map[Operator]Spec{
	ArgMax:             ulp(only(operand.Int64, Fixed(0))),
	ArgMin:             ulp(only(operand.Int64, Fixed(0))),
	BatchNormalization: ulp(floats(Fixed(6))),
	Cast:               ulp(allTypes(1)),
	Clamp:              ulp(exact),
	Concat:             ulp(exact),
	Constant:           ulp(allTypes(2)),
	Conv2d:             ulp(floats(conv)),
	ConvTranspose2d:    ulp(floats(conv)),

	Add: ulp(floats(Fixed(1))),
	Sub: ulp(floats(Fixed(1))),
	Mul: ulp(floats(Fixed(1))),
	Div: ulp(floats(Fixed(2))),
	Max: ulp(exact),
	Min: ulp(exact),
	Pow: ulp(byType(Fixed(32), Fixed(2))),

	Equal:          logicalOp,
	Greater:        logicalOp,
	GreaterOrEqual: logicalOp,
	Lesser:         logicalOp,
	LesserOrEqual:  logicalOp,
	LogicalNot:     logicalOp,

	Abs:        ulp(exact),
	Ceil:       ulp(exact),
	Cos:        atol(byType(trigF32, trigF16)),
	Erf:        atol(byType(trigF32, trigF16)),
	Exp:        ulp(byType(Fixed(32), Fixed(1))),
	Floor:      ulp(exact),
	Identity:   ulp(exact),
	Log:        atol(floats(trigF32)),
	Neg:        ulp(exact),
	Reciprocal: ulp(floats(Fixed(2))),
	Sin:        atol(byType(trigF32, trigF16)),
	Sqrt:       ulp(floats(Fixed(1))),
	Tan:        atol(byType(trigF32, trigF16)),

	Elu:                   ulp(floats(Fixed(18))),
	Expand:                ulp(exact),
	Gather:                ulp(exact),
	Gemm:                  ulp(floats(gemm)),
	InstanceNormalization: ulp(byType(Fixed(840), Fixed(8400))),
	HardSigmoid:           ulp(floats(Fixed(2))),
	HardSwish:             ulp(floats(Fixed(4))),
	LayerNormalization:    atol(byType(trigF32, trigF16)),
	LeakyRelu:             ulp(floats(Fixed(1))),
	Linear:                ulp(floats(Fixed(2))),
	Matmul:                ulp(floats(matmul)),
	Pad:                   ulp(exact),

	AveragePool2d: ulp(floats(pool)),
	L2Pool2d:      ulp(floats(pool)),
	MaxPool2d:     ulp(exact),

	Prelu: ulp(floats(Fixed(1))),

	ReduceL1:        ulp(floats(reduction)),
	ReduceL2:        ulp(floats(reduction)),
	ReduceLogSum:    ulp(floats(reduction)),
	ReduceLogSumExp: ulp(floats(reduction)),
	ReduceMax:       ulp(exact),
	ReduceMean:      ulp(floats(reduction)),
	ReduceMin:       ulp(exact),
	ReduceProduct:   ulp(floats(reduction)),
	ReduceSum:       ulp(floats(reduction)),
	ReduceSumSquare: ulp(floats(reduction)),

	Relu:       ulp(exact),
	Resample2d: ulp(floats(resample2d)),
	Reshape:    ulp(exact),
	Sigmoid:    ulp(byType(Fixed(34), Fixed(3))), // float32 leaves a few ULP for roundoff
	Slice:      ulp(exact),
	Softmax:    ulp(floats(softmax)),
	Softplus:   ulp(floats(Fixed(18))),
	Softsign:   ulp(floats(Fixed(3))),
	Split:      ulp(exact),
	Tanh:       atol(byType(trigF32, trigF16)),
	Transpose:  ulp(exact),
	Triangular: ulp(exact),
	Where:      ulp(exact),
}
