package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	Paths       PathsConfig       `mapstructure:"paths"`
	Runtime     RuntimeConfig     `mapstructure:"runtime"`
	Conformance ConformanceConfig `mapstructure:"conformance"`
	LogLevel    string            `mapstructure:"log_level"`
	LogFormat   string            `mapstructure:"log_format"`
}

type PathsConfig struct {
	FixturesDir  string `mapstructure:"fixtures_dir"`
	ManifestPath string `mapstructure:"manifest_path"`
	ResultsPath  string `mapstructure:"results_path"`
	MetricsPath  string `mapstructure:"metrics_path"`
}

type RuntimeConfig struct {
	Threads        int    `mapstructure:"threads"`
	ORTLibraryPath string `mapstructure:"ort_library_path"`
	ORTVersion     string `mapstructure:"ort_version"`
}

type ConformanceConfig struct {
	Backend    string   `mapstructure:"backend"`
	Operators  []string `mapstructure:"operators"`
	CollectAll bool     `mapstructure:"collect_all"`
}

type LoadOptions struct {
	Cmd        flagBinder
	ConfigFile string
	Defaults   Config
}

type flagBinder interface {
	Flags() *pflag.FlagSet
}

func DefaultConfig() Config {
	return Config{
		Paths: PathsConfig{
			FixturesDir:  "resources",
			ManifestPath: "models/onnx/manifest.json",
			ResultsPath:  "",
			MetricsPath:  "",
		},
		Runtime: RuntimeConfig{
			Threads:        4,
			ORTLibraryPath: "",
			ORTVersion:     "",
		},
		Conformance: ConformanceConfig{
			Backend:    BackendReference,
			Operators:  nil,
			CollectAll: false,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// flagKeys maps each registered flag to its config key.
var flagKeys = map[string]string{
	"paths-fixtures-dir":       "paths.fixtures_dir",
	"paths-manifest-path":      "paths.manifest_path",
	"paths-results-path":       "paths.results_path",
	"paths-metrics-path":       "paths.metrics_path",
	"runtime-threads":          "runtime.threads",
	"runtime-ort-library-path": "runtime.ort_library_path",
	"runtime-ort-version":      "runtime.ort_version",
	"backend":                  "conformance.backend",
	"operators":                "conformance.operators",
	"collect-all":              "conformance.collect_all",
	"log-level":                "log_level",
	"log-format":               "log_format",
}

func RegisterFlags(fs *pflag.FlagSet, defaults Config) {
	fs.String("paths-fixtures-dir", defaults.Paths.FixturesDir, "Directory holding <operator>.json fixture files")
	fs.String("paths-manifest-path", defaults.Paths.ManifestPath, "ONNX graph manifest for the onnx backend")
	fs.String("paths-results-path", defaults.Paths.ResultsPath, "Write per-case results as JSON to this path")
	fs.String("paths-metrics-path", defaults.Paths.MetricsPath, "Write Prometheus metrics in textfile format to this path")
	fs.Int("runtime-threads", defaults.Runtime.Threads, "Worker count for the reference tensor kernels")
	fs.String("runtime-ort-library-path", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library")
	fs.String("ort-lib", defaults.Runtime.ORTLibraryPath, "Path to ONNX Runtime shared library (alias for --runtime-ort-library-path)")
	fs.String("runtime-ort-version", defaults.Runtime.ORTVersion, "Expected ONNX Runtime version")
	fs.String("backend", defaults.Conformance.Backend, "Execution backend (reference|onnx)")
	fs.StringSlice("operators", defaults.Conformance.Operators, "Operators to run (default: every operator with fixtures)")
	fs.Bool("collect-all", defaults.Conformance.CollectAll, "Report every mismatching element instead of the first")
	fs.String("log-level", defaults.LogLevel, "Log level (debug|info|warn|error)")
	fs.String("log-format", defaults.LogFormat, "Log output format (json|text)")
}

func Load(opts LoadOptions) (Config, error) {
	v := viper.New()

	setDefaults(v, opts.Defaults)

	if opts.Cmd != nil {
		if err := bindFlags(v, opts.Cmd.Flags()); err != nil {
			return Config{}, err
		}
	}

	v.SetEnvPrefix("WEBNN")
	replacer := strings.NewReplacer("-", "_", ".", "_")
	v.SetEnvKeyReplacer(replacer)

	if err := v.BindEnv("runtime.ort_library_path", "WEBNN_ORT_LIB", "ORT_LIBRARY_PATH"); err != nil {
		return Config{}, fmt.Errorf("bind ort env vars: %w", err)
	}

	v.AutomaticEnv()

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)

		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else {
		v.SetConfigName("webnnconform")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, c Config) {
	v.SetDefault("paths.fixtures_dir", c.Paths.FixturesDir)
	v.SetDefault("paths.manifest_path", c.Paths.ManifestPath)
	v.SetDefault("paths.results_path", c.Paths.ResultsPath)
	v.SetDefault("paths.metrics_path", c.Paths.MetricsPath)
	v.SetDefault("runtime.threads", c.Runtime.Threads)
	v.SetDefault("runtime.ort_library_path", c.Runtime.ORTLibraryPath)
	v.SetDefault("runtime.ort_version", c.Runtime.ORTVersion)
	v.SetDefault("conformance.backend", c.Conformance.Backend)
	v.SetDefault("conformance.operators", c.Conformance.Operators)
	v.SetDefault("conformance.collect_all", c.Conformance.CollectAll)
	v.SetDefault("log_level", c.LogLevel)
	v.SetDefault("log_format", c.LogFormat)
}

// bindFlags binds each known flag to its nested key so that a flag set on
// the command line overrides the config file, and an unset flag does not.
func bindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}

		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	// --ort-lib only applies when set, so it cannot mask the long form.
	if f := fs.Lookup("ort-lib"); f != nil && f.Changed {
		v.Set("runtime.ort_library_path", f.Value.String())
	}

	return nil
}

// ParseLogLevel maps a config level name to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// NewLogger builds a slog logger writing to w. An unknown level falls back
// to info; an unknown format is an error.
func NewLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	lvl, err := ParseLogLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: lvl}

	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want json|text)", format)
	}
}
