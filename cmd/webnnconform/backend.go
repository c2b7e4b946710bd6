package main

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/example/go-webnn-conformance/internal/backend/reference"
	"github.com/example/go-webnn-conformance/internal/config"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/onnx"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// ortAPIVersion is the ORT C API version requested from the runtime.
const ortAPIVersion = 23

// newBackend opens the backend named in cfg.
func newBackend(cfg config.Config, logger *slog.Logger) (host.Backend, error) {
	name, err := config.NormalizeBackend(cfg.Conformance.Backend)
	if err != nil {
		return nil, err
	}

	switch name {
	case config.BackendONNX:
		info, err := onnx.DetectRuntime(cfg.Runtime)
		if err != nil {
			return nil, err
		}

		sessions, err := onnx.NewSessionManager(cfg.Paths.ManifestPath, logger)
		if err != nil {
			return nil, err
		}

		logger.Info("onnx runtime", "library", info.LibraryPath, "version", info.Version, "source", info.Source)

		return onnx.NewBackend(sessions, onnx.RunnerConfig{
			LibraryPath: info.LibraryPath,
			APIVersion:  ortAPIVersion,
		}, nil, logger), nil
	default:
		return reference.New(logger), nil
	}
}

// selectOperators parses names, or returns all of available when names is
// empty.
func selectOperators(names []string, available []tolerance.Operator) ([]tolerance.Operator, error) {
	if len(names) == 0 {
		return available, nil
	}

	ops := make([]tolerance.Operator, 0, len(names))

	for _, n := range names {
		op := tolerance.Operator(n)
		if _, ok := tolerance.Table[op]; !ok {
			return nil, fmt.Errorf("unknown operator %q", n)
		}

		if !slices.Contains(ops, op) {
			ops = append(ops, op)
		}
	}

	return ops, nil
}
