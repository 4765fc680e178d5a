package main

import (
	"context"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvharvest/internal/logging"
	"csvharvest/internal/pipeline"
	"csvharvest/internal/schedule"
)

// runCmd starts the long-lived scheduler
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the pipeline at the configured times of day",
	Long: `Starts the scheduler and runs the pipeline at every configured time of
day until interrupted. SIGINT or SIGTERM stops it once the current run ends.
On Unix, SIGUSR1 triggers an immediate run.

Exit codes: 0 on signal shutdown, 1 on a configuration error, 2 when a run
fails and scheduler.on_error is "stop".`,
	Args: cobra.NoArgs,
	RunE: runScheduler,
}

func runScheduler(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(); err != nil {
		return configError(err)
	}
	p, err := newPipeline(cfg, logger)
	if err != nil {
		return configError(err)
	}
	runner := pipeline.NewRunner(p, cfg.Scheduler.Overlap, logging.For(logger, logging.CategoryPipeline))

	schedLog := logging.For(logger, logging.CategoryScheduler)
	sched, err := schedule.New(cfg, scheduledJob(runner), schedLog, scheduleOptions...)
	if err != nil {
		return configError(err)
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	defer wg.Wait()
	// Deferred after Wait so it runs first: the run-now watcher only exits
	// once ctx is done, including when the scheduler stops on its own.
	defer cancel()
	watchRunNow(ctx, &wg, runner, schedLog)

	for _, next := range sched.NextRuns(time.Now()) {
		schedLog.Info("upcoming run", zap.Time("at", next))
	}
	if err := sched.Run(ctx); err != nil {
		return &exitError{code: 2, err: err}
	}
	return nil
}

// runNow performs one guarded run outside the schedule.
func runNow(ctx context.Context, runner *pipeline.Runner, log *zap.Logger) {
	log.Info("immediate run requested")
	if _, err := runner.Run(ctx); err != nil {
		log.Warn("immediate run did not complete cleanly", zap.Error(err))
	}
}
