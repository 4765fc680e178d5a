package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"csvharvest/internal/schedule"
)

// nextCmd prints the upcoming run times
var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show when the pipeline will next run",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sched, err := schedule.New(cfg, nil, logger)
		if err != nil {
			return configError(err)
		}
		now := time.Now()
		for _, at := range sched.NextRuns(now) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  (in %s)\n", at.Format("Mon 2006-01-02 15:04 MST"), at.Sub(now).Round(time.Minute))
		}
		return nil
	},
}
