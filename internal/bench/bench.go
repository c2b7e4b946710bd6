// Package bench times repeated build and compute passes of conformance
// cases for the webnnconform bench command.
package bench

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

// RunResult is the timing of one compute pass over one case. The cold pass
// is the first of a case and includes graph construction.
type RunResult struct {
	Case     string        `json:"case"`
	Index    int           `json:"index"`
	Cold     bool          `json:"cold"`
	Duration time.Duration `json:"-"`
}

// Stats summarizes a set of durations.
type Stats struct {
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	Median time.Duration
}

// ComputeStats summarizes durations. An empty slice yields zero stats; the
// median of an even count is the mean of the middle pair.
func ComputeStats(durations []time.Duration) Stats {
	if len(durations) == 0 {
		return Stats{}
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	n := len(sorted)
	median := sorted[n/2]

	if n%2 == 0 {
		median = (sorted[n/2-1] + sorted[n/2]) / 2
	}

	return Stats{
		Min:    sorted[0],
		Max:    sorted[n-1],
		Mean:   sum / time.Duration(n),
		Median: median,
	}
}

// Durations extracts the run durations.
func Durations(runs []RunResult) []time.Duration {
	out := make([]time.Duration, len(runs))
	for i, r := range runs {
		out[i] = r.Duration
	}

	return out
}

// Warm drops the cold passes.
func Warm(runs []RunResult) []RunResult {
	return slices.DeleteFunc(slices.Clone(runs), func(r RunResult) bool { return r.Cold })
}

// Case builds c once on b and computes it runs times.
func Case(ctx context.Context, b host.Backend, op tolerance.Operator, c *fixture.Case, runs int) ([]RunResult, error) {
	if runs < 1 {
		return nil, fmt.Errorf("bench: runs must be at least 1, got %d", runs)
	}

	buildStart := time.Now()

	spec, inputs, outputs, err := host.BuildGraph(op, c)
	if err != nil {
		return nil, fmt.Errorf("bench: %s: %w", c.Name, err)
	}

	g, err := b.Build(ctx, spec)
	if err != nil {
		return nil, fmt.Errorf("bench: %s: %w", c.Name, err)
	}

	build := time.Since(buildStart)
	results := make([]RunResult, 0, runs)

	for i := range runs {
		start := time.Now()

		if err := b.Compute(ctx, g, inputs, outputs); err != nil {
			return results, fmt.Errorf("bench: %s run %d: %w", c.Name, i+1, err)
		}

		r := RunResult{Case: c.Name, Index: i, Duration: time.Since(start)}
		if i == 0 {
			r.Cold = true
			r.Duration += build
		}

		results = append(results, r)
	}

	return results, nil
}

// CheckMeanThreshold fails when mean exceeds threshold. A threshold of 0
// disables the gate.
func CheckMeanThreshold(mean, threshold time.Duration) error {
	if threshold > 0 && mean > threshold {
		return fmt.Errorf("bench: mean run time %v exceeds threshold %v", mean, threshold)
	}

	return nil
}

func micros(d time.Duration) float64 { return float64(d.Nanoseconds()) / 1e3 }

func formatMicros(d time.Duration) string { return strconv.FormatFloat(micros(d), 'f', 1, 64) }

const caseWidth = 40

// FormatTable writes one row per run followed by the summary rows.
func FormatTable(runs []RunResult, stats Stats, w io.Writer) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Case", "Run", "Cold", "us"})
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetBorder(false)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT, tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT,
	})

	for _, r := range runs {
		cold := ""
		if r.Cold {
			cold = "yes"
		}

		table.Append([]string{truncate(r.Case, caseWidth), strconv.Itoa(r.Index + 1), cold, formatMicros(r.Duration)})
	}

	for _, s := range []struct {
		label string
		d     time.Duration
	}{
		{"(min)", stats.Min},
		{"(median)", stats.Median},
		{"(mean)", stats.Mean},
		{"(max)", stats.Max},
	} {
		table.Append([]string{"", "", s.label, formatMicros(s.d)})
	}

	table.Render()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n-3] + "..."
}

type jsonRun struct {
	RunResult
	DurationUS float64 `json:"duration_us"`
}

type jsonStats struct {
	MinUS    float64 `json:"min_us"`
	MedianUS float64 `json:"median_us"`
	MeanUS   float64 `json:"mean_us"`
	MaxUS    float64 `json:"max_us"`
}

type jsonReport struct {
	Runs  []jsonRun `json:"runs"`
	Stats jsonStats `json:"stats"`
}

// FormatJSON writes the runs and stats as indented JSON, durations in
// microseconds.
func FormatJSON(runs []RunResult, stats Stats, w io.Writer) error {
	report := jsonReport{
		Runs: make([]jsonRun, len(runs)),
		Stats: jsonStats{
			MinUS:    micros(stats.Min),
			MedianUS: micros(stats.Median),
			MeanUS:   micros(stats.Mean),
			MaxUS:    micros(stats.Max),
		},
	}

	for i, r := range runs {
		report.Runs[i] = jsonRun{RunResult: r, DurationUS: micros(r.Duration)}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(report)
}
