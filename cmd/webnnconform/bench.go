package main

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/bench"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/host"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

func newBenchCmd() *cobra.Command {
	var (
		caseFilter string
		runs       int
		format     string
		maxMean    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "bench <operator>",
		Short: "Time repeated build and compute passes of an operator's cases",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			if runs < 1 {
				return fmt.Errorf("--runs must be at least 1")
			}
			if format != "table" && format != "json" {
				return fmt.Errorf("--format must be 'table' or 'json'")
			}

			ops, err := selectOperators(args, nil)
			if err != nil {
				return err
			}
			op := ops[0]

			logger := slog.Default()

			cases, err := fixture.NewDirLoader(cfg.Paths.FixturesDir, logger).Load(op.String())
			if err != nil {
				return err
			}

			backend, err := newBackend(cfg, logger)
			if err != nil {
				return err
			}
			defer backend.Close()

			results, err := benchCases(cmd, backend, op, cases, caseFilter, runs)
			if err != nil {
				return err
			}

			if len(results) == 0 {
				return fmt.Errorf("no %s cases match %q", op, caseFilter)
			}

			stats := bench.ComputeStats(bench.Durations(results))

			switch format {
			case "json":
				if err := bench.FormatJSON(results, stats, cmd.OutOrStdout()); err != nil {
					return err
				}
			default:
				bench.FormatTable(results, stats, cmd.OutOrStdout())
			}

			// Gate on warm passes when there are any, so graph build time
			// does not count against the threshold.
			gated := stats
			if warm := bench.Warm(results); len(warm) > 0 {
				gated = bench.ComputeStats(bench.Durations(warm))
			}

			slog.Debug("bench done", "operator", op.String(), "runs", len(results), "warm_mean", gated.Mean)

			return bench.CheckMeanThreshold(gated.Mean, maxMean)
		},
	}

	cmd.Flags().StringVar(&caseFilter, "case", "", "Only time cases whose name contains this text")
	cmd.Flags().IntVar(&runs, "runs", 5, "Compute passes per case")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table or json")
	cmd.Flags().DurationVar(&maxMean, "max-mean", 0, "Fail if the mean run time exceeds this (0 disables)")

	return cmd
}

func benchCases(
	cmd *cobra.Command, backend host.Backend, op tolerance.Operator, cases []fixture.Case, filter string, runs int,
) ([]bench.RunResult, error) {
	var results []bench.RunResult

	for i := range cases {
		if filter != "" && !strings.Contains(cases[i].Name, filter) {
			continue
		}

		res, err := bench.Case(cmd.Context(), backend, op, &cases[i], runs)
		if err != nil {
			return nil, err
		}

		results = append(results, res...)
	}

	return results, nil
}
