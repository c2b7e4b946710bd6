package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/config"
	"github.com/example/go-webnn-conformance/internal/doctor"
	"github.com/example/go-webnn-conformance/internal/onnx"
)

func newDoctorCmd() *cobra.Command {
	var verifyGraphs bool

	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Run local runtime and fixture checks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := requireConfig()
			if err != nil {
				return err
			}

			backend, err := config.NormalizeBackend(cfg.Conformance.Backend)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "backend: %s\n", backend)

			dcfg := doctor.Config{
				RuntimeVersion: func() (string, error) {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return "", err
					}
					return info.Version, nil
				},
				SkipRuntime: backend == config.BackendReference,
				FixturesDir: cfg.Paths.FixturesDir,
			}
			if backend == config.BackendONNX {
				dcfg.ManifestPath = cfg.Paths.ManifestPath
			}
			if backend == config.BackendONNX && verifyGraphs {
				dcfg.VerifyGraphs = func(w io.Writer) error {
					info, err := onnx.DetectRuntime(cfg.Runtime)
					if err != nil {
						return err
					}

					sm, err := onnx.NewSessionManager(cfg.Paths.ManifestPath, slog.Default())
					if err != nil {
						return err
					}

					return onnx.VerifyGraphs(cmd.Context(), sm, onnx.RunnerConfig{
						LibraryPath: info.LibraryPath,
						APIVersion:  ortAPIVersion,
					}, nil, w)
				}
			}

			result := doctor.Run(dcfg, out)

			if result.Failed() {
				for _, f := range result.Failures() {
					fmt.Fprintf(cmd.ErrOrStderr(), "FAIL: %s\n", f)
				}

				return errors.New("doctor checks failed")
			}

			_, _ = fmt.Fprintln(out, "doctor checks passed")

			return nil
		},
	}

	cmd.Flags().BoolVar(&verifyGraphs, "verify-graphs", false, "Load and smoke-run every manifest graph (onnx backend)")

	return cmd
}
