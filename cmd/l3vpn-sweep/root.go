package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "l3vpn-sweep",
	Short:         "L3VPN modality sweep toolkit",
	Long:          "l3vpn-sweep drives a network simulator across L3VPN modalities, access protocols and node counts, and plots error rate, delay and jitter with 95% confidence intervals.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(replotCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(runsCmd)
}
