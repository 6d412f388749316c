package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"offs-core/engine"
	pkgconfig "offs-core/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "offsctl"}
	rootCmd.PersistentFlags().String("env", "", "configuration environment to merge over defaults")
	rootCmd.AddCommand(poolCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(reconstructCmd())
	rootCmd.AddCommand(inspectCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadEngine(cmd *cobra.Command) (*engine.Engine, error) {
	env, _ := cmd.Flags().GetString("env")
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return engine.NewFromConfig(cfg, nil)
}
