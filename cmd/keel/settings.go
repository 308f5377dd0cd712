package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/keel/settings"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Shows the resolved process settings",
	RunE: func(cmd *cobra.Command, _ []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyRedisURL, s.RedisURL)
		fmt.Fprintf(w, "%s\t%d\n", settings.KeyConcurrency, s.Concurrency)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyQueues, strings.Join(s.Queues, ","))
		fmt.Fprintf(w, "%s\t%d\n", settings.KeyPoolSize, s.PoolSize)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyPoolTimeout, s.PoolTimeout)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyLogLevel, s.LogLevel)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyLogFormat, s.LogFormat)
		fmt.Fprintf(w, "%s\t%s\n", settings.KeyHeartbeatInterval, s.HeartbeatInterval)
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	rootCmd.AddCommand(settingsCmd)
}
