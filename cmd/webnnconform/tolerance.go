package main

import (
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

func newToleranceCmd() *cobra.Command {
	var resolve bool

	cmd := &cobra.Command{
		Use:   "tolerance [operator...]",
		Short: "Show the tolerance table, or resolve tolerances per fixture case",
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := selectOperators(args, tolerance.Operators())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if !resolve {
				renderTable(out, []string{"OPERATOR", "METRIC", "TYPE", "TOLERANCE"}, toleranceRows(ops))
				return nil
			}

			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			rows, err := resolvedRows(fixture.NewDirLoader(cfg.Paths.FixturesDir, slog.Default()), ops)
			if err != nil {
				return err
			}

			renderTable(out, []string{"OPERATOR", "CASE", "METRIC", "TYPE", "TOLERANCE"}, rows)

			return nil
		},
	}

	cmd.Flags().BoolVar(&resolve, "resolve", false, "Evaluate tolerances against each fixture case")

	return cmd
}

func toleranceRows(ops []tolerance.Operator) [][]string {
	var rows [][]string

	for _, op := range ops {
		spec := tolerance.Table[op]
		for _, dt := range spec.DataTypes() {
			rows = append(rows, []string{op.String(), string(spec.Metric), string(dt), spec.ByType[dt].String()})
		}
	}

	return rows
}

// resolvedRows evaluates each case's tolerance. Operators without fixtures
// are left out; a case whose tolerance cannot be resolved shows the error.
func resolvedRows(loader *fixture.Loader, ops []tolerance.Operator) ([][]string, error) {
	var rows [][]string

	for _, op := range ops {
		if !loader.Available(op.String()) {
			continue
		}

		cases, err := loader.Load(op.String())
		if err != nil {
			return nil, err
		}

		metric := tolerance.Table[op].Metric

		for i := range cases {
			c := &cases[i]
			dt := c.Expected.PrecisionType()

			value := ""
			if v, err := tolerance.Resolve(op, metric, c); err != nil {
				value = err.Error()
			} else {
				value = strconv.FormatFloat(v, 'g', -1, 64)
			}

			rows = append(rows, []string{op.String(), c.Name, string(metric), string(dt), value})
		}
	}

	return rows, nil
}
