package pipeline

import (
	"errors"
	"time"
)

// Status is a stage outcome.
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// StageResult records one stage of a run.
type StageResult struct {
	Stage    Stage
	Status   Status
	Err      error
	Duration time.Duration
}

// Report is the outcome of one pipeline invocation.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Stages   []StageResult
	// Output is the processed file path when the transform succeeded.
	Output string
}

func (r *Report) add(stage Stage, err error, d time.Duration) {
	res := StageResult{Stage: stage, Status: StatusOK, Duration: d}
	if err != nil {
		res.Status = StatusFailed
		res.Err = err
	}
	r.Stages = append(r.Stages, res)
}

func (r *Report) skip(stages ...Stage) {
	for _, s := range stages {
		r.Stages = append(r.Stages, StageResult{Stage: s, Status: StatusSkipped})
	}
}

// Result returns the recorded result for stage.
func (r *Report) Result(stage Stage) (StageResult, bool) {
	for _, res := range r.Stages {
		if res.Stage == stage {
			return res, true
		}
	}
	return StageResult{}, false
}

// Failed reports whether any stage failed.
func (r *Report) Failed() bool {
	for _, res := range r.Stages {
		if res.Status == StatusFailed {
			return true
		}
	}
	return false
}

// Err joins every stage failure, or returns nil for a clean run.
func (r *Report) Err() error {
	var errs []error
	for _, res := range r.Stages {
		if res.Err != nil {
			errs = append(errs, res.Err)
		}
	}
	return errors.Join(errs...)
}

// Outcome summarises the run as "ok", "partial" (some stage failed but the
// output was written) or "failed".
func (r *Report) Outcome() string {
	switch {
	case !r.Failed():
		return "ok"
	case r.Output != "":
		return "partial"
	}
	return "failed"
}
