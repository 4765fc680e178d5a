package pipeline

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"csvharvest/internal/config"
)

// ErrRunInProgress is returned by Runner.Run under the skip policy when
// another invocation holds the guard.
var ErrRunInProgress = errors.New("a pipeline run is already in progress")

// Job is one runnable invocation.
type Job interface {
	Run(ctx context.Context) *Report
}

// Runner guarantees at most one invocation of its Job at a time.
type Runner struct {
	job    Job
	sem    *semaphore.Weighted
	policy string
	log    *zap.Logger
}

// NewRunner guards job. policy is config.OverlapSkip or config.OverlapWait;
// anything else behaves as skip.
func NewRunner(job Job, policy string, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{job: job, sem: semaphore.NewWeighted(1), policy: policy, log: log}
}

// Run invokes the job once the guard is free. The returned error is the
// joined stage failures, ErrRunInProgress, or ctx's error while waiting.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	if r.policy == config.OverlapWait {
		if err := r.sem.Acquire(ctx, 1); err != nil {
			return nil, err
		}
	} else if !r.sem.TryAcquire(1) {
		r.log.Warn("run requested while another is in progress; skipping")
		return nil, ErrRunInProgress
	}
	defer r.sem.Release(1)

	rep := r.job.Run(ctx)
	return rep, rep.Err()
}
