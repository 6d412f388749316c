package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"offs-core/ingest"
	"offs-core/offs"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [path]",
		Short: "whiten and store a file, writing its CBL to --out",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			extended, _ := cmd.Flags().GetBool("extended")
			out, _ := cmd.Flags().GetString("out")

			payload, err := eng.IngestFile(ingest.Params{
				Source:         offs.Source{Path: args[0]},
				CreateExtended: extended,
				PathHint:       args[0],
			})
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			if out == "" {
				out = args[0] + ".cbl"
			}
			if err := os.WriteFile(out, payload, 0644); err != nil {
				return fmt.Errorf("write cbl: %w", err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(payload))
			return nil
		},
	}
	cmd.Flags().Bool("extended", false, "record mime type and file name in the CBL")
	cmd.Flags().String("out", "", "path to write the CBL payload to (default: <path>.cbl)")
	return cmd
}

func reconstructCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconstruct [cblPath]",
		Short: "rebuild a file from a CBL payload",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := loadEngine(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")

			payload, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read cbl: %w", err)
			}
			data, err := eng.ReconstructFile(payload)
			if err != nil {
				return fmt.Errorf("reconstruct: %w", err)
			}
			if out == "" {
				fmt.Print(string(data))
				return nil
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("wrote %s (%d bytes)\n", out, len(data))
			return nil
		},
	}
	cmd.Flags().String("out", "", "path to write the reconstructed file to (default: stdout)")
	return cmd
}
