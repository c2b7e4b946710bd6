package bench

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/example/go-webnn-conformance/internal/backend/reference"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/operand"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

func TestComputeStats_Basic(t *testing.T) {
	durations := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		300 * time.Millisecond,
	}

	s := ComputeStats(durations)

	if s.Min != 100*time.Millisecond {
		t.Errorf("min = %v, want 100ms", s.Min)
	}

	if s.Max != 300*time.Millisecond {
		t.Errorf("max = %v, want 300ms", s.Max)
	}

	if s.Mean != 200*time.Millisecond {
		t.Errorf("mean = %v, want 200ms", s.Mean)
	}

	if s.Median != 200*time.Millisecond {
		t.Errorf("median = %v, want 200ms", s.Median)
	}
}

func TestComputeStats_EvenMedianUnsorted(t *testing.T) {
	s := ComputeStats([]time.Duration{40, 10, 30, 20})

	if s.Median != 25 || s.Min != 10 || s.Max != 40 {
		t.Errorf("stats = %+v, want median 25 min 10 max 40", s)
	}
}

func TestWarm(t *testing.T) {
	warm := Warm(sampleRuns())
	if len(warm) != 1 || warm[0].Cold {
		t.Fatalf("Warm = %+v", warm)
	}
}

func TestComputeStats_Empty(t *testing.T) {
	if s := ComputeStats(nil); s != (Stats{}) {
		t.Errorf("stats = %+v, want zero", s)
	}
}

func TestComputeStats_Single(t *testing.T) {
	s := ComputeStats([]time.Duration{42 * time.Microsecond})
	if s.Min != s.Max || s.Min != s.Mean || s.Min != s.Median {
		t.Errorf("single sample should collapse: %+v", s)
	}
}

func TestCheckMeanThreshold(t *testing.T) {
	tests := []struct {
		name      string
		mean      time.Duration
		threshold time.Duration
		wantErr   bool
	}{
		{"exceeds", 2 * time.Millisecond, time.Millisecond, true},
		{"below", time.Millisecond, 2 * time.Millisecond, false},
		{"exactly at", time.Millisecond, time.Millisecond, false},
		{"disabled", time.Hour, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMeanThreshold(tt.mean, tt.threshold)
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func reluCase() *fixture.Case {
	return &fixture.Case{
		Name: "relu float32 1D tensor",
		Inputs: fixture.NewInputs(fixture.Operand{
			Name: "input", Type: operand.Float32, Shape: []int64{4}, Data: operand.Values(-1, 0, 1, 2),
		}),
		Expected: fixture.Single(fixture.Operand{
			Name: "output", Type: operand.Float32, Shape: []int64{4}, Data: operand.Values(0, 0, 1, 2),
		}),
	}
}

func TestCase_Runs(t *testing.T) {
	b := reference.New(nil)
	defer b.Close()

	runs, err := Case(context.Background(), b, tolerance.Relu, reluCase(), 3)
	if err != nil {
		t.Fatalf("Case: %v", err)
	}

	if len(runs) != 3 {
		t.Fatalf("runs = %d, want 3", len(runs))
	}

	for i, r := range runs {
		if r.Index != i {
			t.Errorf("run %d index = %d", i, r.Index)
		}

		if r.Cold != (i == 0) {
			t.Errorf("run %d cold = %v", i, r.Cold)
		}

		if r.Duration <= 0 {
			t.Errorf("run %d duration = %v, want > 0", i, r.Duration)
		}
	}
}

func TestCase_RejectsZeroRuns(t *testing.T) {
	b := reference.New(nil)
	defer b.Close()

	if _, err := Case(context.Background(), b, tolerance.Relu, reluCase(), 0); err == nil {
		t.Fatal("expected error for zero runs")
	}
}

func TestCase_UnsupportedOperator(t *testing.T) {
	b := reference.New(nil)
	defer b.Close()

	if _, err := Case(context.Background(), b, tolerance.ConvTranspose2d, reluCase(), 1); err == nil {
		t.Fatal("expected error for unsupported operator")
	}
}

func sampleRuns() []RunResult {
	return []RunResult{
		{Case: "a", Index: 0, Cold: true, Duration: 30 * time.Microsecond},
		{Case: "a", Index: 1, Duration: 10 * time.Microsecond},
	}
}

func TestFormatTable_ContainsHeaders(t *testing.T) {
	runs := sampleRuns()

	var buf bytes.Buffer
	FormatTable(runs, ComputeStats(Durations(runs)), &buf)

	out := buf.String()
	for _, want := range []string{"Case", "Run", "Cold", "(min)", "(median)", "(mean)", "(max)", "30.0", "20.0", "yes"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
}

func TestFormatJSON_IsValidJSON(t *testing.T) {
	runs := sampleRuns()

	var buf bytes.Buffer
	if err := FormatJSON(runs, ComputeStats(Durations(runs)), &buf); err != nil {
		t.Fatalf("FormatJSON: %v", err)
	}

	var got jsonReport
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, buf.String())
	}

	if len(got.Runs) != 2 {
		t.Fatalf("runs = %d, want 2", len(got.Runs))
	}

	if !got.Runs[0].Cold || got.Runs[1].Cold {
		t.Errorf("cold flags = %v, %v", got.Runs[0].Cold, got.Runs[1].Cold)
	}

	if got.Stats.MeanUS != 20 || got.Stats.MedianUS != 20 {
		t.Errorf("stats = %+v, want mean and median 20", got.Stats)
	}

	if got.Runs[0].Case != "a" || got.Runs[0].DurationUS != 30 {
		t.Errorf("run 0 = %+v", got.Runs[0])
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}

	if got := truncate("a very long case name", 10); got != "a very ..." {
		t.Errorf("truncate = %q", got)
	}
}
