package main

import (
	"fmt"
	"slices"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/xraph/keel/codec"
)

var infoJSON bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Shows the INFO fields of the configured Redis server",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := newRuntime()
		if err != nil {
			return err
		}
		defer cfg.Close()

		info, err := cfg.RedisInfo(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read redis info: %w", err)
		}

		if infoJSON {
			text, err := codec.Dump(info)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		}

		keys := make([]string, 0, len(info))
		for k := range info {
			keys = append(keys, k)
		}
		slices.Sort(keys)

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		for _, k := range keys {
			fmt.Fprintf(w, "%s\t%s\n", k, info[k])
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	infoCmd.Flags().BoolVar(&infoJSON, "json", false, "Output info as JSON")
	rootCmd.AddCommand(infoCmd)
}
