package conformance

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	StatusOK      = "ok"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Result is the outcome of one case on one backend.
type Result struct {
	Operator  string        `json:"operator"`
	Case      string        `json:"case"`
	Backend   string        `json:"backend"`
	DataType  string        `json:"data_type,omitempty"`
	Metric    string        `json:"metric,omitempty"`
	Tolerance float64       `json:"tolerance"`
	Status    string        `json:"status"`
	Reason    string        `json:"reason,omitempty"`
	Duration  time.Duration `json:"duration_ns"`

	// Err is the failure behind a failed or error status.
	Err error `json:"-"`
}

// Summary counts results by status.
type Summary struct {
	Total   int `json:"total"`
	OK      int `json:"ok"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Errors  int `json:"errors"`
}

func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}

	for _, r := range results {
		switch r.Status {
		case StatusOK:
			s.OK++
		case StatusFailed:
			s.Failed++
		case StatusSkipped:
			s.Skipped++
		default:
			s.Errors++
		}
	}

	return s
}

// Passed reports whether no case failed or errored.
func (s Summary) Passed() bool { return s.Failed == 0 && s.Errors == 0 }

func SaveResults(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal results: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}

	return nil
}

func LoadResults(path string) ([]Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	var results []Result
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}

	return results, nil
}
