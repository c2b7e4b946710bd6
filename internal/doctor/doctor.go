// Package doctor runs environment preflight checks for webnnconform.
package doctor

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/tailscale/hujson"
)

// PassMark and FailMark prefix each printed check line.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// Oldest ONNX Runtime release the onnx backend runs against.
const (
	minORTMajor = 1
	minORTMinor = 16
)

// VersionFunc reports a component version, or an error when the component
// is unavailable.
type VersionFunc func() (string, error)

// Config injects the probes each check uses.
type Config struct {
	// RuntimeVersion locates ONNX Runtime and returns its version.
	RuntimeVersion VersionFunc
	// SkipRuntime skips the ONNX Runtime check (reference backend mode).
	SkipRuntime bool
	// FixturesDir must exist and hold at least one well-formed resource.
	FixturesDir string
	// ManifestPath is the graph manifest to check. Empty skips the check.
	ManifestPath string
	// VerifyGraphs, when set, smoke-runs the manifest graphs and writes one
	// line per graph. It only runs when the manifest exists.
	VerifyGraphs func(io.Writer) error
}

// Result collects check failures.
type Result struct {
	failures []string
}

func (r *Result) Failed() bool { return len(r.failures) > 0 }

func (r *Result) Failures() []string { return slices.Clone(r.failures) }

// AddFailure records a failure found outside Run.
func (r *Result) AddFailure(msg string) { r.failures = append(r.failures, msg) }

type check struct {
	name string
	// after names a check that must have passed for this one to run.
	after string
	run   func(w io.Writer) (string, error)
}

// Run executes the configured checks in order and writes one marked line
// per check to w.
func Run(cfg Config, w io.Writer) Result {
	var (
		res    Result
		passed = map[string]bool{}
	)

	for _, c := range cfg.checks() {
		if c.after != "" && !passed[c.after] {
			continue
		}

		detail, err := c.run(w)
		if err != nil {
			res.AddFailure(fmt.Sprintf("%s: %v", c.name, err))
			fmt.Fprintf(w, "%s %s: %v\n", FailMark, c.name, err)

			continue
		}

		passed[c.name] = true
		fmt.Fprintf(w, "%s %s: %s\n", PassMark, c.name, detail)
	}

	return res
}

func (cfg Config) checks() []check {
	checks := []check{
		{name: "onnx runtime", run: func(io.Writer) (string, error) { return cfg.runtime() }},
		{name: "fixtures dir", run: func(io.Writer) (string, error) { return fixtures(cfg.FixturesDir) }},
	}

	if cfg.ManifestPath == "" {
		return checks
	}

	checks = append(checks, check{name: "graph manifest", run: func(io.Writer) (string, error) {
		if _, err := os.Stat(cfg.ManifestPath); err != nil {
			return "", err
		}

		return cfg.ManifestPath, nil
	}})

	if cfg.VerifyGraphs != nil {
		checks = append(checks, check{name: "graph verify", after: "graph manifest", run: func(w io.Writer) (string, error) {
			return "ok", cfg.VerifyGraphs(w)
		}})
	}

	return checks
}

func (cfg Config) runtime() (string, error) {
	if cfg.SkipRuntime {
		return "skipped", nil
	}

	ver, err := cfg.RuntimeVersion()
	if err != nil {
		return "", fmt.Errorf("not found: %w", err)
	}

	if ver == "" || ver == "unknown" {
		return "version unknown", nil
	}

	if err := checkRuntimeVersion(ver); err != nil {
		return "", fmt.Errorf("%s: %w", ver, err)
	}

	return ver, nil
}

func fixtures(dir string) (string, error) {
	n, err := countResources(dir)
	if err != nil {
		return "", fmt.Errorf("%q: %w", dir, err)
	}

	if n == 0 {
		return "", fmt.Errorf("%s: no .json resources", dir)
	}

	return fmt.Sprintf("%s (%d resources)", dir, n), nil
}

// countResources counts the .json files directly under dir. Resources are
// HuJSON; a file that does not parse is an error naming every such file.
func countResources(dir string) (int, error) {
	if dir == "" {
		return 0, errors.New("not configured")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	var (
		n   int
		bad []string
	)

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return 0, err
		}

		if _, err := hujson.Parse(data); err != nil {
			bad = append(bad, e.Name())
		}

		n++
	}

	if len(bad) > 0 {
		return n, fmt.Errorf("malformed resources: %s", strings.Join(bad, ", "))
	}

	return n, nil
}

// checkRuntimeVersion accepts 1.x releases from 1.16 on. ver looks like
// "1.23.0".
func checkRuntimeVersion(ver string) error {
	major, minor, err := parseMajorMinor(ver)
	if err != nil {
		return err
	}

	switch {
	case major != minORTMajor:
		return fmt.Errorf("requires onnxruntime %d.x, got %d", minORTMajor, major)
	case minor < minORTMinor:
		return fmt.Errorf("requires onnxruntime >=%d.%d, got %d.%d", minORTMajor, minORTMinor, major, minor)
	}

	return nil
}

func parseMajorMinor(ver string) (major, minor int, err error) {
	head, rest, ok := strings.Cut(ver, ".")
	if !ok {
		return 0, 0, fmt.Errorf("version %q is not major.minor", ver)
	}

	minorStr, _, _ := strings.Cut(rest, ".")

	if major, err = strconv.Atoi(head); err != nil {
		return 0, 0, fmt.Errorf("version %q: major: %w", ver, err)
	}

	if minor, err = strconv.Atoi(minorStr); err != nil {
		return 0, 0, fmt.Errorf("version %q: minor: %w", ver, err)
	}

	return major, minor, nil
}
