package main

import (
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"csvharvest/internal/pipeline"
)

// onceCmd runs the pipeline a single time
var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run the pipeline once now",
	Long: `Runs login, navigation, export and transform once and prints each
stage's outcome. Exits 1 if any stage failed.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return configError(err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rep := p.Run(ctx)
	printReport(cmd.OutOrStdout(), rep)
	if rep.Failed() {
		return fmt.Errorf("run %s finished with failures: %w", rep.RunID, rep.Err())
	}
	return nil
}

func printReport(w io.Writer, rep *pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s: %s\n", rep.RunID, rep.Outcome())
	for _, res := range rep.Stages {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", res.Stage, res.Status, res.Duration.Round(time.Millisecond), detail)
	}
	if rep.Output != "" {
		fmt.Fprintf(tw, "output: %s\n", rep.Output)
	}
	_ = tw.Flush()
}
