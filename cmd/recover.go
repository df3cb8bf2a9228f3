package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func recoverCommands(app *csveerInstance) *cobra.Command {
	var threshold time.Duration

	cmd := &cobra.Command{
		Use:         "recover",
		Short:       "re-publish dispatches left pending for longer than the threshold",
		Annotations: map[string]string{"service": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if threshold == 0 {
				threshold = time.Duration(app.cnf.Recovery.StaleThresholdSeconds) * time.Second
			}
			n, err := app.csveer.RecoverPendingDispatches(cmd.Context(), threshold)
			if err != nil {
				return err
			}
			fmt.Printf("Processed %d stale dispatches\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&threshold, "threshold", 0, "minimum age of a pending dispatch (defaults to the configured stale threshold)")

	return cmd
}
