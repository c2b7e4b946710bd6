package config

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/spf13/pflag"
)

// fakeBinder wraps a pflag.FlagSet to satisfy the flagBinder interface.
type fakeBinder struct {
	fs *pflag.FlagSet
}

func (f *fakeBinder) Flags() *pflag.FlagSet { return f.fs }

// newFlagBinder creates a FlagSet with all config flags registered and
// parses args into it.
func newFlagBinder(t *testing.T, defaults Config, args ...string) *fakeBinder {
	t.Helper()

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse(%v) error = %v", args, err)
	}

	return &fakeBinder{fs: fs}
}

// --- DefaultConfig ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Paths.FixturesDir != "resources" {
		t.Errorf("FixturesDir = %q; want %q", cfg.Paths.FixturesDir, "resources")
	}

	if cfg.Paths.ManifestPath != "models/onnx/manifest.json" {
		t.Errorf("ManifestPath = %q; want %q", cfg.Paths.ManifestPath, "models/onnx/manifest.json")
	}

	if cfg.Runtime.Threads != 4 {
		t.Errorf("Runtime.Threads = %d; want 4", cfg.Runtime.Threads)
	}

	if cfg.Conformance.Backend != BackendReference {
		t.Errorf("Conformance.Backend = %q; want %q", cfg.Conformance.Backend, BackendReference)
	}

	if cfg.Conformance.CollectAll {
		t.Error("Conformance.CollectAll = true; want false")
	}

	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "info")
	}
}

// --- NormalizeBackend ---

func TestNormalizeBackend(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"reference canonical", "reference", "reference", false},
		{"onnx canonical", "onnx", "onnx", false},
		{"reference alias", "ref", "reference", false},
		{"ort alias", "ORT", "onnx", false},
		{"onnxruntime alias with spaces", "  onnxruntime ", "onnx", false},
		{"empty defaults to reference", "", "reference", false},
		{"whitespace defaults to reference", "   ", "reference", false},
		{"invalid value", "webgpu", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBackend(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("NormalizeBackend(%q) = %q, nil; want error", tt.input, got)
				}

				return
			}

			if err != nil {
				t.Errorf("NormalizeBackend(%q) unexpected error: %v", tt.input, err)
				return
			}

			if got != tt.want {
				t.Errorf("NormalizeBackend(%q) = %q; want %q", tt.input, got, tt.want)
			}
		})
	}
}

// --- ParseLogLevel ---

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"WARN", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v; wantErr %v", tt.in, err, tt.wantErr)
		}

		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v; want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := NewLogger(&buf, "warn", "json")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Info("dropped")
	logger.Warn("kept", "op", "relu")

	if out := buf.String(); strings.Contains(out, "dropped") || !strings.Contains(out, `"op":"relu"`) {
		t.Errorf("json logger output = %q", out)
	}

	buf.Reset()

	logger, err = NewLogger(&buf, "", "TEXT")
	if err != nil {
		t.Fatalf("NewLogger text: %v", err)
	}

	logger.Info("hello", "op", "gemm")

	if out := buf.String(); !strings.Contains(out, "op=gemm") {
		t.Errorf("text logger output = %q", out)
	}

	if _, err := NewLogger(&buf, "info", "logfmt"); err == nil {
		t.Error("expected error for unknown format")
	}
}

// --- RegisterFlags ---

func TestRegisterFlags(t *testing.T) {
	defaults := DefaultConfig()
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	RegisterFlags(fs, defaults)

	checks := []struct {
		flag string
		want string
	}{
		{"paths-fixtures-dir", "resources"},
		{"runtime-threads", "4"},
		{"backend", "reference"},
		{"collect-all", "false"},
		{"log-level", "info"},
		{"log-format", "json"},
	}

	for _, c := range checks {
		f := fs.Lookup(c.flag)
		if f == nil {
			t.Errorf("flag %q not registered", c.flag)
			continue
		}

		if f.DefValue != c.want {
			t.Errorf("flag %q default = %q; want %q", c.flag, f.DefValue, c.want)
		}
	}

	for name := range flagKeys {
		if fs.Lookup(name) == nil {
			t.Errorf("flagKeys entry %q has no registered flag", name)
		}
	}
}

// --- Load ---

func TestLoad_Defaults(t *testing.T) {
	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:      newFlagBinder(t, defaults),
		Defaults: defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Paths.FixturesDir != defaults.Paths.FixturesDir {
		t.Errorf("FixturesDir = %q; want %q", cfg.Paths.FixturesDir, defaults.Paths.FixturesDir)
	}

	if cfg.Conformance.Backend != defaults.Conformance.Backend {
		t.Errorf("Backend = %q; want %q", cfg.Conformance.Backend, defaults.Conformance.Backend)
	}

	if cfg.LogLevel != defaults.LogLevel {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, defaults.LogLevel)
	}
}

func TestLoad_FlagOverride(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults,
		"--backend=onnx",
		"--runtime-threads=8",
		"--operators=relu,gemm",
		"--collect-all",
		"--log-level=debug",
	)

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Conformance.Backend != "onnx" {
		t.Errorf("Backend = %q; want %q", cfg.Conformance.Backend, "onnx")
	}

	if cfg.Runtime.Threads != 8 {
		t.Errorf("Runtime.Threads = %d; want 8", cfg.Runtime.Threads)
	}

	if want := []string{"relu", "gemm"}; !reflect.DeepEqual(cfg.Conformance.Operators, want) {
		t.Errorf("Operators = %v; want %v", cfg.Conformance.Operators, want)
	}

	if !cfg.Conformance.CollectAll {
		t.Error("CollectAll = false; want true")
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}
}

func TestLoad_ORTLibAlias(t *testing.T) {
	defaults := DefaultConfig()
	binder := newFlagBinder(t, defaults, "--ort-lib=/opt/ort/libonnxruntime.so")

	cfg, err := Load(LoadOptions{Cmd: binder, Defaults: defaults})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Runtime.ORTLibraryPath != "/opt/ort/libonnxruntime.so" {
		t.Errorf("ORTLibraryPath = %q; want %q", cfg.Runtime.ORTLibraryPath, "/opt/ort/libonnxruntime.so")
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("WEBNN_LOG_LEVEL", "warn")
	t.Setenv("WEBNN_PATHS_FIXTURES_DIR", "/data/resources")
	t.Setenv("WEBNN_ORT_LIB", "/env/libonnxruntime.so")

	cfg, err := Load(LoadOptions{Defaults: DefaultConfig()})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "warn")
	}

	if cfg.Paths.FixturesDir != "/data/resources" {
		t.Errorf("FixturesDir = %q; want %q", cfg.Paths.FixturesDir, "/data/resources")
	}

	if cfg.Runtime.ORTLibraryPath != "/env/libonnxruntime.so" {
		t.Errorf("ORTLibraryPath = %q; want %q", cfg.Runtime.ORTLibraryPath, "/env/libonnxruntime.so")
	}
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "webnnconform.yaml")

	content := `
log_level: error
paths:
  fixtures_dir: /srv/fixtures
conformance:
  backend: onnx
  operators: [relu, softmax]
  collect_all: true
`

	if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	defaults := DefaultConfig()

	cfg, err := Load(LoadOptions{
		Cmd:        newFlagBinder(t, defaults, "--log-level=debug"),
		ConfigFile: cfgFile,
		Defaults:   defaults,
	})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// A flag set on the command line wins over the file.
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q; want %q", cfg.LogLevel, "debug")
	}

	if cfg.Paths.FixturesDir != "/srv/fixtures" {
		t.Errorf("FixturesDir = %q; want %q", cfg.Paths.FixturesDir, "/srv/fixtures")
	}

	if cfg.Conformance.Backend != "onnx" {
		t.Errorf("Backend = %q; want %q", cfg.Conformance.Backend, "onnx")
	}

	if want := []string{"relu", "softmax"}; !reflect.DeepEqual(cfg.Conformance.Operators, want) {
		t.Errorf("Operators = %v; want %v", cfg.Conformance.Operators, want)
	}

	if !cfg.Conformance.CollectAll {
		t.Error("CollectAll = false; want true")
	}
}

func TestLoad_InvalidConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgFile := filepath.Join(dir, "bad.yaml")

	if err := os.WriteFile(cfgFile, []byte(":\t:bad yaml:::"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(LoadOptions{
		ConfigFile: cfgFile,
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for invalid config file")
	}
}

func TestLoad_MissingExplicitConfigFile(t *testing.T) {
	_, err := Load(LoadOptions{
		ConfigFile: "/nonexistent/path/webnnconform.yaml",
		Defaults:   DefaultConfig(),
	})
	if err == nil {
		t.Error("Load() = nil; want error for missing explicit config file")
	}
}
