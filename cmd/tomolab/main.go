package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "tomolab",
		Short: "CT reconstruction experiment harness",
		Long: `tomolab drives computed-tomography reconstruction experiments.

It generates synthetic forward-model datasets (phantom, system matrix,
noisy projections), runs configured experiment pipelines against an
external reconstruction binary, and summarizes completed experiments
into a comparison table.`,
	}

	rootCmd.AddCommand(
		newGenerateCmd(),
		newRunCmd(),
		newSummarizeCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("tomolab version %s\n", version)
		},
	}
}
