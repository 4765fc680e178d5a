//go:build !windows

package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"csvharvest/internal/pipeline"
)

// watchRunNow runs the pipeline whenever the process receives SIGUSR1, until
// ctx ends. wg tracks the watcher so shutdown waits for a triggered run.
func watchRunNow(ctx context.Context, wg *sync.WaitGroup, runner *pipeline.Runner, log *zap.Logger) {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGUSR1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer signal.Stop(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ch:
				runNow(ctx, runner, log)
			}
		}
	}()
}
