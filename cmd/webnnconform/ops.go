package main

import (
	"log/slog"
	"slices"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/backend/reference"
	"github.com/example/go-webnn-conformance/internal/fixture"
	"github.com/example/go-webnn-conformance/internal/tolerance"
)

func newOpsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ops",
		Short: "List operators with their fixture and reference kernel availability",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			loader := fixture.NewDirLoader(cfg.Paths.FixturesDir, slog.Default())
			renderTable(cmd.OutOrStdout(), []string{"OPERATOR", "METRIC", "FIXTURES", "REFERENCE"}, opsRows(loader))

			return nil
		},
	}
}

func opsRows(loader *fixture.Loader) [][]string {
	kernels := reference.Operators()

	var rows [][]string

	for _, op := range tolerance.Operators() {
		rows = append(rows, []string{
			op.String(),
			string(tolerance.Table[op].Metric),
			yesNo(loader.Available(op.String())),
			yesNo(slices.Contains(kernels, op)),
		})
	}

	return rows
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}

	return "-"
}
