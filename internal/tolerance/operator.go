package tolerance

import "slices"

// Operator names an MLGraphBuilder operation.
type Operator string

const (
	ArgMax                Operator = "argMax"
	ArgMin                Operator = "argMin"
	BatchNormalization    Operator = "batchNormalization"
	Cast                  Operator = "cast"
	Clamp                 Operator = "clamp"
	Concat                Operator = "concat"
	Constant              Operator = "constant"
	Conv2d                Operator = "conv2d"
	ConvTranspose2d       Operator = "convTranspose2d"
	Add                   Operator = "add"
	Sub                   Operator = "sub"
	Mul                   Operator = "mul"
	Div                   Operator = "div"
	Max                   Operator = "max"
	Min                   Operator = "min"
	Pow                   Operator = "pow"
	Equal                 Operator = "equal"
	Greater               Operator = "greater"
	GreaterOrEqual        Operator = "greaterOrEqual"
	Lesser                Operator = "lesser"
	LesserOrEqual         Operator = "lesserOrEqual"
	LogicalNot            Operator = "logicalNot"
	Abs                   Operator = "abs"
	Ceil                  Operator = "ceil"
	Cos                   Operator = "cos"
	Erf                   Operator = "erf"
	Exp                   Operator = "exp"
	Floor                 Operator = "floor"
	Identity              Operator = "identity"
	Log                   Operator = "log"
	Neg                   Operator = "neg"
	Reciprocal            Operator = "reciprocal"
	Sin                   Operator = "sin"
	Sqrt                  Operator = "sqrt"
	Tan                   Operator = "tan"
	Elu                   Operator = "elu"
	Expand                Operator = "expand"
	Gather                Operator = "gather"
	Gemm                  Operator = "gemm"
	InstanceNormalization Operator = "instanceNormalization"
	HardSigmoid           Operator = "hardSigmoid"
	HardSwish             Operator = "hardSwish"
	LayerNormalization    Operator = "layerNormalization"
	LeakyRelu             Operator = "leakyRelu"
	Linear                Operator = "linear"
	Matmul                Operator = "matmul"
	Pad                   Operator = "pad"
	AveragePool2d         Operator = "averagePool2d"
	L2Pool2d              Operator = "l2Pool2d"
	MaxPool2d             Operator = "maxPool2d"
	Prelu                 Operator = "prelu"
	ReduceL1              Operator = "reduceL1"
	ReduceL2              Operator = "reduceL2"
	ReduceLogSum          Operator = "reduceLogSum"
	ReduceLogSumExp       Operator = "reduceLogSumExp"
	ReduceMax             Operator = "reduceMax"
	ReduceMean            Operator = "reduceMean"
	ReduceMin             Operator = "reduceMin"
	ReduceProduct         Operator = "reduceProduct"
	ReduceSum             Operator = "reduceSum"
	ReduceSumSquare       Operator = "reduceSumSquare"
	Relu                  Operator = "relu"
	Resample2d            Operator = "resample2d"
	Reshape               Operator = "reshape"
	Sigmoid               Operator = "sigmoid"
	Slice                 Operator = "slice"
	Softmax               Operator = "softmax"
	Softplus              Operator = "softplus"
	Softsign              Operator = "softsign"
	Split                 Operator = "split"
	Tanh                  Operator = "tanh"
	Transpose             Operator = "transpose"
	Triangular            Operator = "triangular"
	Where                 Operator = "where"
)

func (o Operator) String() string { return string(o) }

// Operators returns every operator in the table, sorted by name.
func Operators() []Operator {
	ops := make([]Operator, 0, len(Table))
	for op := range Table {
		ops = append(ops, op)
	}

	slices.Sort(ops)

	return ops
}
