package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tomolab/pkg/summary"
)

func newSummarizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize completed experiments into a comparison table",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			if info, err := os.Stat(dir); err != nil || !info.IsDir() {
				fmt.Printf("No %q directory found.\n", dir)
				return nil
			}
			rows, err := summary.Scan(dir)
			if err != nil {
				return err
			}
			summary.Render(os.Stdout, rows)
			return nil
		},
	}

	cmd.Flags().String("dir", "experiments", "Base directory containing experiment outputs")
	return cmd
}
