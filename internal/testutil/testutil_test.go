package testutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/example/go-webnn-conformance/internal/testutil"
)

// skipRecorder counts skips instead of skipping the enclosing test.
type skipRecorder struct {
	testing.TB
	skips int
}

func (r *skipRecorder) Helper()              {}
func (r *skipRecorder) Skip(...any)          { r.skips++ }
func (r *skipRecorder) Skipf(string, ...any) { r.skips++ }

func TestFixturesDirIsAbsolute(t *testing.T) {
	dir := testutil.FixturesDir()
	if !filepath.IsAbs(dir) {
		t.Fatalf("FixturesDir() = %q; want an absolute path", dir)
	}

	if _, err := os.Stat(filepath.Join(dir, "relu.json")); err != nil {
		t.Fatalf("relu fixture missing: %v", err)
	}
}

func TestRequireONNXRuntime(t *testing.T) {
	lib := filepath.Join(t.TempDir(), "libonnxruntime.so")
	if err := os.WriteFile(lib, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		webnn     string
		ort       string
		want      string
		wantSkips int
	}{
		{"webnn env", lib, "", lib, 0},
		{"ort env", "", lib, lib, 0},
		{"missing env path skips", "/nonexistent/libonnxruntime.so", lib, "", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WEBNN_ORT_LIB", tt.webnn)
			t.Setenv("ORT_LIBRARY_PATH", tt.ort)

			rec := &skipRecorder{TB: t}
			if got := testutil.RequireONNXRuntime(rec); got != tt.want {
				t.Errorf("RequireONNXRuntime() = %q; want %q", got, tt.want)
			}

			if rec.skips != tt.wantSkips {
				t.Errorf("skips = %d; want %d", rec.skips, tt.wantSkips)
			}
		})
	}
}

func TestRequireFile(t *testing.T) {
	rec := &skipRecorder{TB: t}

	testutil.RequireFile(rec, filepath.Join(t.TempDir(), "missing.json"))
	testutil.RequireFile(rec, testutil.FixturesDir())

	if rec.skips != 1 {
		t.Fatalf("skips = %d; want 1", rec.skips)
	}
}
