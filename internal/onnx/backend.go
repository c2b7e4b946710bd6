package onnx

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/example/go-webnn-conformance/internal/buffer"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/operand"
)

// BackendName is the backend name used in configuration and reports.
const BackendName = "onnx"

// GraphRunner executes one ONNX graph. *Runner is the ORT implementation.
type GraphRunner interface {
	Run(ctx context.Context, inputs map[string]Feed) (map[string]Feed, error)
	Close()
}

// RunnerFactory opens a runner for a manifest graph.
type RunnerFactory func(Session, RunnerConfig) (GraphRunner, error)

func ortRunnerFactory(s Session, cfg RunnerConfig) (GraphRunner, error) {
	return NewRunner(s, cfg)
}

// Backend runs single-operator graphs exported to ONNX. One runner is opened
// per manifest graph and reused across cases.
type Backend struct {
	sessions  *SessionManager
	cfg       RunnerConfig
	newRunner RunnerFactory
	logger    *slog.Logger

	mu      sync.Mutex
	runners map[string]GraphRunner
}

// NewBackend returns an ORT backend for the graphs in sessions. A nil
// factory opens real ORT sessions.
func NewBackend(sessions *SessionManager, cfg RunnerConfig, factory RunnerFactory, logger *slog.Logger) *Backend {
	if factory == nil {
		factory = ortRunnerFactory
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Backend{
		sessions:  sessions,
		cfg:       cfg,
		newRunner: factory,
		logger:    logger,
		runners:   make(map[string]GraphRunner),
	}
}

func (b *Backend) Name() string { return BackendName }

type graph struct {
	spec    host.GraphSpec
	session Session
	runner  GraphRunner
}

func (g *graph) Spec() host.GraphSpec { return g.spec }

// Build resolves the manifest graph for the case and opens its runner.
// Operators without a graph and operands ORT cannot exchange report
// host.ErrUnsupportedOperator.
func (b *Backend) Build(_ context.Context, spec host.GraphSpec) (host.Graph, error) {
	session, ok := b.sessions.Lookup(spec.Operator.String(), spec.Name)
	if !ok {
		return nil, fmt.Errorf("onnx: no graph for %s: %w", spec.Operator, host.ErrUnsupportedOperator)
	}

	if err := checkTypes(spec); err != nil {
		return nil, fmt.Errorf("onnx: %s: %w: %w", spec.Operator, err, host.ErrUnsupportedOperator)
	}

	runner, err := b.runner(session)
	if err != nil {
		return nil, fmt.Errorf("onnx: build %s: %w", spec.Operator, err)
	}

	return &graph{spec: spec, session: session, runner: runner}, nil
}

func (b *Backend) runner(s Session) (GraphRunner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.runners[s.Name]; ok {
		return r, nil
	}

	r, err := b.newRunner(s, b.cfg)
	if err != nil {
		return nil, err
	}

	b.runners[s.Name] = r
	b.logger.Debug("opened ONNX graph", "name", s.Name, "path", s.Path)

	return r, nil
}

func checkTypes(spec host.GraphSpec) error {
	descs := make([]operand.Descriptor, 0, len(spec.Inputs)+len(spec.OptionOperands)+len(spec.Outputs))
	for _, in := range spec.Inputs {
		descs = append(descs, in.Descriptor)
	}

	for _, op := range spec.OptionOperands {
		descs = append(descs, op.Descriptor)
	}

	descs = append(descs, spec.Outputs...)

	for _, d := range descs {
		if !supportedType(d.DataType) {
			return fmt.Errorf("operand %q has data type %s", d.Name, d.DataType)
		}
	}

	return nil
}

// Compute feeds inputs, constants and option operands by name and copies
// the graph's outputs into the pre-sized buffers.
func (b *Backend) Compute(ctx context.Context, hg host.Graph, inputs, outputs map[string]*buffer.Buffer) error {
	g, ok := hg.(*graph)
	if !ok {
		return fmt.Errorf("onnx: foreign graph %T", hg)
	}

	op := g.spec.Operator
	declared := g.session.InputNames()
	feeds := make(map[string]Feed, len(g.spec.Inputs)+len(g.spec.OptionOperands))

	accept := func(name string) bool {
		return len(declared) == 0 || slices.Contains(declared, name)
	}

	for _, in := range g.spec.Inputs {
		buf := in.Constant
		if buf == nil {
			buf = inputs[in.Name]
		}

		if buf == nil {
			return fmt.Errorf("onnx: compute %s: missing input %q", op, in.Name)
		}

		feeds[in.Name] = Feed{Shape: in.Shape, Buffer: buf}
	}

	for key, o := range g.spec.OptionOperands {
		if accept(key) {
			feeds[key] = Feed{Shape: o.Shape, Buffer: o.Constant}
		}
	}

	results, err := g.runner.Run(ctx, feeds)
	if err != nil {
		return fmt.Errorf("onnx: compute %s: %w", op, err)
	}

	for _, desc := range g.spec.Outputs {
		res, ok := results[desc.Name]
		if !ok && len(g.spec.Outputs) == 1 && len(results) == 1 {
			for _, only := range results {
				res, ok = only, true
			}
		}

		if !ok {
			return fmt.Errorf("onnx: compute %s: graph produced no output %q", op, desc.Name)
		}

		dst, ok := outputs[desc.Name]
		if !ok {
			return fmt.Errorf("onnx: compute %s: missing output buffer %q", op, desc.Name)
		}

		if err := dst.CopyFrom(res.Buffer); err != nil {
			return fmt.Errorf("onnx: compute %s: output %q: %w", op, desc.Name, err)
		}
	}

	return nil
}

// Close releases every opened runner.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for name, r := range b.runners {
		r.Close()
		delete(b.runners, name)
	}

	return nil
}
