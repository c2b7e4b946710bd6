package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/example/go-webnn-conformance/internal/numeric"
)

func newHalfCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "half",
		Short: "Convert between float32 values and float16 bit patterns",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "encode <value...>",
		Short: "Encode float32 values as float16 bits",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := encodeRows(args)
			if err != nil {
				return err
			}

			renderTable(cmd.OutOrStdout(), []string{"VALUE", "BITS", "DECODED"}, rows)

			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "decode <bits...>",
		Short: "Decode float16 bit patterns (0x3c00, 15360) to float32",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := decodeRows(args)
			if err != nil {
				return err
			}

			renderTable(cmd.OutOrStdout(), []string{"BITS", "VALUE"}, rows)

			return nil
		},
	})

	return cmd
}

func encodeRows(args []string) ([][]string, error) {
	rows := make([][]string, 0, len(args))

	for _, a := range args {
		v, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("half: parse %q: %w", a, err)
		}

		bits := numeric.ToHalf(float32(v))
		rows = append(rows, []string{a, fmt.Sprintf("0x%04x", bits), formatFloat32(numeric.FromHalf(bits))})
	}

	return rows, nil
}

func decodeRows(args []string) ([][]string, error) {
	rows := make([][]string, 0, len(args))

	for _, a := range args {
		b, err := strconv.ParseUint(a, 0, 16)
		if err != nil {
			return nil, fmt.Errorf("half: parse %q: %w", a, err)
		}

		rows = append(rows, []string{fmt.Sprintf("0x%04x", b), formatFloat32(numeric.FromHalf(uint16(b)))})
	}

	return rows, nil
}

func formatFloat32(f float32) string {
	return strconv.FormatFloat(float64(f), 'g', -1, 32)
}
