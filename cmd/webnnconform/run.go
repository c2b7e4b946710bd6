package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/conformance"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/metrics"
)

func newRunCmd() *cobra.Command {
	var (
		format  string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "run [operator...]",
		Short: "Run operator fixtures against a backend and check the outputs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			logger := slog.Default()

			backend, err := newBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			runner := &conformance.Runner{
				Backend:    backend,
				Loader:     fixture.NewDirLoader(cfg.Paths.FixturesDir, logger),
				Logger:     logger,
				Metrics:    metrics.New(),
				CollectAll: cfg.Conformance.CollectAll,
			}

			names := cfg.Conformance.Operators
			if len(args) > 0 {
				names = args
			}

			ops, err := selectOperators(names, runner.Operators())
			if err != nil {
				return err
			}

			if len(ops) == 0 {
				return fmt.Errorf("no operator fixtures found in %s", cfg.Paths.FixturesDir)
			}

			results, runErr := runner.Run(cmd.Context(), ops)
			summary := conformance.Summarize(results)

			out := cmd.OutOrStdout()
			switch format {
			case "json":
				if err := writeJSONReport(out, results, summary); err != nil {
					return err
				}
			default:
				writeResultTable(out, results, verbose)
				fmt.Fprintf(out, "\n%d cases: %d ok, %d failed, %d skipped, %d errors\n",
					summary.Total, summary.OK, summary.Failed, summary.Skipped, summary.Errors)
			}

			if cfg.Paths.ResultsPath != "" {
				if err := conformance.SaveResults(cfg.Paths.ResultsPath, results); err != nil {
					return err
				}
			}

			if cfg.Paths.MetricsPath != "" {
				if err := runner.Metrics.WriteTextfile(cfg.Paths.MetricsPath); err != nil {
					return err
				}
			}

			if runErr != nil {
				return runErr
			}

			if !summary.Passed() {
				return errors.New("conformance checks failed")
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "List passing cases too")

	return cmd
}

// writeResultTable lists failed, errored and skipped cases, plus passing
// ones when verbose is set.
func writeResultTable(w io.Writer, results []conformance.Result, verbose bool) {
	var rows [][]string

	for _, r := range results {
		if r.Status == conformance.StatusOK && !verbose {
			continue
		}

		rows = append(rows, []string{
			r.Operator,
			r.Case,
			r.DataType,
			r.Metric,
			strconv.FormatFloat(r.Tolerance, 'g', -1, 64),
			r.Status,
			r.Reason,
		})
	}

	if len(rows) == 0 {
		return
	}

	renderTable(w, []string{"OPERATOR", "CASE", "TYPE", "METRIC", "TOLERANCE", "STATUS", "REASON"}, rows)
}

type jsonReport struct {
	Summary conformance.Summary  `json:"summary"`
	Results []conformance.Result `json:"results"`
}

func writeJSONReport(w io.Writer, results []conformance.Result, summary conformance.Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	return enc.Encode(jsonReport{Summary: summary, Results: results})
}

