package onnx

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/example/go-webnn-conformance/internal/config"
)

// RuntimeInfo describes the ONNX Runtime shared library a backend loads.
// Source names where the path came from: "config", an environment
// variable, or "default" for a well-known install location.
type RuntimeInfo struct {
	LibraryPath string
	Version     string
	Source      string
}

const unknownVersion = "unknown"

var libVersion = regexp.MustCompile(`(\d+\.\d+\.\d+)`)

var defaultLibraryPaths = []string{
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/usr/lib/aarch64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
	"C:/onnxruntime/lib/onnxruntime.dll",
}

// DetectRuntime resolves the library path. An explicit setting (config,
// then WEBNN_ORT_LIB, then ORT_LIBRARY_PATH) wins and must exist; without
// one the default locations are probed in order.
func DetectRuntime(cfg config.RuntimeConfig) (RuntimeInfo, error) {
	info := RuntimeInfo{Version: unknownVersion}

	explicit := []struct{ source, path string }{
		{"config", cfg.ORTLibraryPath},
		{"$WEBNN_ORT_LIB", os.Getenv("WEBNN_ORT_LIB")},
		{"$ORT_LIBRARY_PATH", os.Getenv("ORT_LIBRARY_PATH")},
	}

	for _, c := range explicit {
		if c.path == "" {
			continue
		}

		info.LibraryPath, info.Source = c.path, c.source
		if _, err := os.Stat(c.path); err != nil {
			return info, fmt.Errorf("onnx: runtime library from %s: %w", c.source, err)
		}

		break
	}

	if info.LibraryPath == "" {
		for _, p := range defaultLibraryPaths {
			if _, err := os.Stat(p); err == nil {
				info.LibraryPath, info.Source = p, "default"
				break
			}
		}
	}

	if info.LibraryPath == "" {
		info.LibraryPath = "not found"
		return info, errors.New("onnx: no runtime library configured or found in default locations")
	}

	info.Version = cmp.Or(cfg.ORTVersion, os.Getenv("ORT_VERSION"), versionFromName(info.LibraryPath), unknownVersion)

	return info, nil
}

// versionFromName extracts a dotted version from names like
// libonnxruntime.so.1.20.1.
func versionFromName(path string) string {
	return libVersion.FindString(filepath.Base(path))
}
