package main

import (
	"github.com/spf13/cobra"

	"github.com/xraph/keel"
)

var calmCmd = &cobra.Command{
	Use:     "calm",
	Aliases: []string{"❨╯°□°❩╯︵┻━┻"},
	Short:   "Helps you keep your cool",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return keel.CalmDown(cmd.OutOrStdout())
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(calmCmd)
}
