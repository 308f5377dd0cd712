package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/xraph/keel/codec"
	"github.com/xraph/keel/worker"
)

var processesJSON bool

var processesCmd = &cobra.Command{
	Use:   "processes",
	Short: "Lists worker processes with a live heartbeat",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := newRuntime()
		if err != nil {
			return err
		}
		defer cfg.Close()

		procs, err := worker.ListProcesses(cmd.Context(), cfg)
		if err != nil {
			return fmt.Errorf("failed to list processes: %w", err)
		}

		if processesJSON {
			text, err := codec.Dump(procs)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), text)
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "IDENTITY\tHOST\tPID\tCONCURRENCY\tQUEUES\tSTARTED")
		for _, p := range procs {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
				p.Identity, p.Hostname, p.PID, p.Concurrency,
				strings.Join(p.Queues, ","), p.StartedAt.Format(time.RFC822))
		}
		return w.Flush()
	},
}

func init() { //nolint:gochecknoinits // Cobra's init function for command registration
	processesCmd.Flags().BoolVar(&processesJSON, "json", false, "Output processes as JSON")
	rootCmd.AddCommand(processesCmd)
}
