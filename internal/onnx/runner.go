package onnx

import (
	"context"
	"errors"
	"fmt"

	ort "github.com/shota3506/onnxruntime-purego/onnxruntime"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/operand"
)

const defaultAPIVersion = 23

// RunnerConfig selects the ORT shared library and C API version.
type RunnerConfig struct {
	LibraryPath string
	APIVersion  uint32
}

// Feed is a shaped buffer passed to or returned from a graph.
type Feed struct {
	Shape  []int64
	Buffer *buffer.Buffer
}

// Runner owns the ORT runtime, environment and session of one graph.
type Runner struct {
	meta    Session
	runtime *ort.Runtime
	env     *ort.Env
	session *ort.Session
}

// NewRunner loads the library and opens a session on meta.Path. Partially
// created ORT objects are released on failure.
func NewRunner(meta Session, cfg RunnerConfig) (r *Runner, err error) {
	if cfg.APIVersion == 0 {
		cfg.APIVersion = defaultAPIVersion
	}

	r = &Runner{meta: meta}

	defer func() {
		if err != nil {
			r.Close()
			r = nil
		}
	}()

	if r.runtime, err = ort.NewRuntime(cfg.LibraryPath, cfg.APIVersion); err != nil {
		return r, fmt.Errorf("onnx: load runtime for %q: %w", meta.Name, err)
	}

	if r.env, err = r.runtime.NewEnv("webnn-"+meta.Name, ort.LoggingLevelWarning); err != nil {
		return r, fmt.Errorf("onnx: env for %q: %w", meta.Name, err)
	}

	if r.session, err = r.runtime.NewSession(r.env, meta.Path, nil); err != nil {
		return r, fmt.Errorf("onnx: open %q (%s): %w", meta.Name, meta.Path, err)
	}

	return r, nil
}

// Name returns the manifest graph name.
func (r *Runner) Name() string { return r.meta.Name }

// Run feeds inputs to the session and decodes every output.
func (r *Runner) Run(ctx context.Context, inputs map[string]Feed) (map[string]Feed, error) {
	if r.session == nil {
		return nil, fmt.Errorf("onnx: runner %q is closed", r.meta.Name)
	}

	values := make(map[string]*ort.Value, len(inputs))
	defer release(values)

	for name, f := range inputs {
		v, err := toValue(r.runtime, f)
		if err != nil {
			return nil, fmt.Errorf("onnx: %s input %q: %w", r.meta.Name, name, err)
		}

		values[name] = v
	}

	outputs, err := r.session.Run(ctx, values)
	if err != nil {
		return nil, fmt.Errorf("onnx: run %q: %w", r.meta.Name, err)
	}
	defer release(outputs)

	feeds := make(map[string]Feed, len(outputs))

	for name, v := range outputs {
		if feeds[name], err = fromValue(v); err != nil {
			return nil, fmt.Errorf("onnx: %s output %q: %w", r.meta.Name, name, err)
		}
	}

	return feeds, nil
}

// Close releases the session, environment and runtime. It is idempotent.
func (r *Runner) Close() {
	if r.session != nil {
		r.session.Close()
	}

	if r.env != nil {
		r.env.Close()
	}

	if r.runtime != nil {
		_ = r.runtime.Close()
	}

	r.session, r.env, r.runtime = nil, nil, nil
}

// supportedType reports whether values of dt can cross the ORT boundary.
func supportedType(dt operand.DataType) bool {
	return dt == operand.Float32 || dt == operand.Int64
}

func toValue(rt *ort.Runtime, f Feed) (*ort.Value, error) {
	if f.Buffer == nil {
		return nil, errors.New("no data")
	}

	switch dt := f.Buffer.DataType(); dt {
	case operand.Float32:
		data, err := f.Buffer.Float32s()
		if err != nil {
			return nil, err
		}

		return ort.NewTensorValue(rt, data, f.Shape)
	case operand.Int64:
		data, err := f.Buffer.Int64s()
		if err != nil {
			return nil, err
		}

		return ort.NewTensorValue(rt, data, f.Shape)
	default:
		return nil, fmt.Errorf("unsupported data type %s", dt)
	}
}

func fromValue(v *ort.Value) (Feed, error) {
	et, err := v.GetTensorElementType()
	if err != nil {
		return Feed{}, fmt.Errorf("element type: %w", err)
	}

	var (
		shape []int64
		buf   *buffer.Buffer
	)

	switch et {
	case ort.ONNXTensorElementDataTypeFloat:
		var data []float32
		if data, shape, err = ort.GetTensorData[float32](v); err == nil {
			buf = buffer.FromFloat32s(data)
		}
	case ort.ONNXTensorElementDataTypeInt64:
		var data []int64
		if data, shape, err = ort.GetTensorData[int64](v); err == nil {
			buf = buffer.FromInt64s(data)
		}
	default:
		err = fmt.Errorf("unsupported element type %d", et)
	}

	if err != nil {
		return Feed{}, err
	}

	return Feed{Shape: shape, Buffer: buf}, nil
}

func release(values map[string]*ort.Value) {
	for _, v := range values {
		if v != nil {
			v.Close()
		}
	}
}
