package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"csvharvest/internal/browser"
	"csvharvest/internal/config"
	"csvharvest/internal/logging"
	"csvharvest/internal/pipeline"
	"csvharvest/internal/schedule"
)

// Replaced in tests so "run" can be driven without Chromium or a wall clock.
var (
	newOpener       = browserOpener
	scheduleOptions []schedule.Option
)

// configError prefixes validation failures so every problem is listed.
func configError(err error) error {
	return fmt.Errorf("invalid configuration (%s):\n%w", configPath, err)
}

func browserConfig(c *config.Config) browser.Config {
	bc := browser.DefaultConfig()
	bc.Bin = c.Browser.DriverPath
	bc.Headless = c.Browser.Headless
	bc.NavigationTimeoutMs = int(c.GetNavigationTimeout() / time.Millisecond)
	return bc
}

// browserOpener opens a fresh Chromium session per run.
func browserOpener(c *config.Config, log *zap.Logger) pipeline.Opener {
	mgr := browser.NewManager(browserConfig(c), logging.For(log, logging.CategoryBrowser))
	return pipeline.OpenerFunc(func(ctx context.Context, dir string) (pipeline.Session, error) {
		s, err := mgr.CreateSession(ctx, dir)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}

// newPipeline wires a pipeline from c.
func newPipeline(c *config.Config, log *zap.Logger) (*pipeline.Pipeline, error) {
	return pipeline.New(c, newOpener(c, log), log)
}

// scheduledJob adapts the guarded pipeline to the scheduler. A run refused
// because another is in progress is not a failure.
func scheduledJob(r *pipeline.Runner) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		_, err := r.Run(ctx)
		if errors.Is(err, pipeline.ErrRunInProgress) {
			return nil
		}
		return err
	}
}
