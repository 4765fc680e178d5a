//go:build windows

package main

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"csvharvest/internal/pipeline"
)

// watchRunNow is a no-op: Windows has no SIGUSR1.
func watchRunNow(ctx context.Context, wg *sync.WaitGroup, runner *pipeline.Runner, log *zap.Logger) {
	log.Debug("run-now signal not supported on this platform")
}
