package pipeline

import (
	"context"
	"errors"
	"fmt"

	"csvharvest/internal/download"
)

// Kind classifies why a stage failed.
type Kind int

const (
	// SetupFailure means no browser session could be created.
	SetupFailure Kind = iota + 1
	// InteractionFailure means an element could not be located or acted on.
	InteractionFailure
	// TimeoutFailure means a bounded wait expired.
	TimeoutFailure
	// DataFailure means the export file was missing, malformed, or could not
	// be written.
	DataFailure
)

func (k Kind) String() string {
	switch k {
	case SetupFailure:
		return "setup"
	case InteractionFailure:
		return "interaction"
	case TimeoutFailure:
		return "timeout"
	case DataFailure:
		return "data"
	}
	return "unknown"
}

// Stage names one step of a run.
type Stage string

const (
	StageSession   Stage = "session"
	StageLogin     Stage = "login"
	StageNavigate  Stage = "navigate"
	StageExport    Stage = "export"
	StageTransform Stage = "transform"
)

// Stages lists every stage in execution order.
var Stages = []Stage{StageSession, StageLogin, StageNavigate, StageExport, StageTransform}

// StageError is the failure of a single stage.
type StageError struct {
	Stage Stage
	Kind  Kind
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s failure: %v", e.Stage, e.Kind, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// KindOf returns the Kind of the first StageError in err's chain, or 0.
func KindOf(err error) Kind {
	var se *StageError
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}

// classify wraps err for stage. Expired waits are always TimeoutFailure;
// everything else gets fallback.
func classify(stage Stage, err error, fallback Kind) error {
	if err == nil {
		return nil
	}
	var se *StageError
	if errors.As(err, &se) {
		return err
	}
	kind := fallback
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, download.ErrTimeout) {
		kind = TimeoutFailure
	}
	return &StageError{Stage: stage, Kind: kind, Err: err}
}
