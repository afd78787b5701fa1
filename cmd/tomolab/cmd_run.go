package main

import (
	"context"

	"github.com/spf13/cobra"

	"tomolab/pkg/pipeline"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a configured experiment pipeline",
		Long: `run executes one experiment: external reconstruction, optional
denoising, optional metric computation, and metadata persistence,
driven by a YAML configuration file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, _ := cmd.Flags().GetString("config")

			cfg, err := pipeline.LoadConfig(cfgPath)
			if err != nil {
				return err
			}
			p := pipeline.New(cfg, cfgPath)
			return p.Run(context.Background())
		},
	}

	cmd.Flags().String("config", "", "Path to YAML experiment configuration (required)")
	cmd.MarkFlagRequired("config")
	return cmd
}
