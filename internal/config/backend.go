package config

import (
	"fmt"
	"strings"
)

const (
	BackendReference = "reference"
	BackendONNX      = "onnx"
)

func NormalizeBackend(raw string) (string, error) {
	backend := strings.ToLower(strings.TrimSpace(raw))
	if backend == "" {
		backend = BackendReference
	}

	switch backend {
	case BackendReference, BackendONNX:
		return backend, nil
	case "ref", "go":
		return BackendReference, nil
	case "ort", "onnxruntime":
		return BackendONNX, nil
	default:
		return "", fmt.Errorf(
			"invalid backend %q (expected %s|%s)",
			raw,
			BackendReference,
			BackendONNX,
		)
	}
}
