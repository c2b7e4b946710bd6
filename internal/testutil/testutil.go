// Package testutil holds helpers shared by tests: locating the bundled
// fixtures and skipping integration tests whose prerequisites are missing.
package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

var ortSearchPaths = []string{
	"/usr/local/lib/libonnxruntime.so",
	"/usr/lib/libonnxruntime.so",
	"/usr/lib/x86_64-linux-gnu/libonnxruntime.so",
	"/opt/homebrew/lib/libonnxruntime.dylib",
}

// RequireONNXRuntime returns the ONNX Runtime library path or skips tb.
// WEBNN_ORT_LIB and ORT_LIBRARY_PATH are consulted before the usual
// install locations; a set but missing path skips rather than falling back.
func RequireONNXRuntime(tb testing.TB) string {
	tb.Helper()

	for _, env := range []string{"WEBNN_ORT_LIB", "ORT_LIBRARY_PATH"} {
		p := os.Getenv(env)
		if p == "" {
			continue
		}

		if exists(p) {
			return p
		}

		tb.Skipf("%s=%q does not exist", env, p)

		return ""
	}

	for _, p := range ortSearchPaths {
		if exists(p) {
			return p
		}
	}

	tb.Skip("no ONNX Runtime library; set WEBNN_ORT_LIB to run")

	return ""
}

// RequireFile skips tb unless path exists.
func RequireFile(tb testing.TB, path string) {
	tb.Helper()

	if !exists(path) {
		tb.Skipf("missing test input %s", path)
	}
}

// FixturesDir is the absolute path of the fixture files bundled with
// internal/fixture. It does not depend on the test's working directory.
func FixturesDir() string {
	_, self, _, ok := runtime.Caller(0)
	if !ok {
		return filepath.Join("internal", "fixture", "testdata")
	}

	return filepath.Join(filepath.Dir(self), "..", "fixture", "testdata")
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
