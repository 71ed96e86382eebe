// Package cmd defines the fleetpredict command line interface.
package cmd

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "fleetpredict",
		Short: "Predictive maintenance service for vehicle fleets",
		Long: "fleetpredict ingests vehicle telemetry, evaluates it against " +
			"maintenance and driving patterns, and raises deduplicated alerts " +
			"with operator runbooks.",
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newSeedCommand())
	root.AddCommand(newSimulateCommand())

	return root
}

// Execute runs the CLI.
func Execute() error {
	return newRootCommand().Execute()
}
