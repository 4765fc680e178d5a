// Package schedule runs a job at fixed times of day.
//
// Each configured "HH:MM" becomes a daily cron expression; the next due time
// is recomputed with gronx after every run. A single loop polls the clock and
// runs due work synchronously, so runs never overlap. Slots that come due
// while a run is in progress are skipped, not queued.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/adhocore/gronx"
	"go.uber.org/zap"

	"csvharvest/internal/config"
)

// ErrStopped is returned by Run when a run fails under the stop policy.
var ErrStopped = errors.New("scheduler stopped after a failed run")

// Job is the scheduled work.
type Job func(ctx context.Context) error

type entry struct {
	at   string
	expr string
	next time.Time
}

// Scheduler dispatches Job at the configured times.
type Scheduler struct {
	entries []*entry
	job     Job
	loc     *time.Location
	poll    time.Duration
	onError string

	now func() time.Time
	log *zap.Logger
}

// Option customises a Scheduler.
type Option func(*Scheduler)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPollInterval overrides the configured poll interval.
func WithPollInterval(d time.Duration) Option {
	return func(s *Scheduler) { s.poll = d }
}

// Expr converts a 24-hour "HH:MM" time of day to a daily cron expression.
func Expr(at string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("invalid run time %q: want HH:MM", at)
	}
	expr := fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour())
	if !gronx.IsValid(expr) {
		return "", fmt.Errorf("invalid run time %q", at)
	}
	return expr, nil
}

// New registers job for every run time in cfg.
func New(cfg *config.Config, job Job, log *zap.Logger, opts ...Option) (*Scheduler, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Scheduler{
		job:     job,
		loc:     cfg.Location(),
		poll:    cfg.GetPollInterval(),
		onError: cfg.Scheduler.OnError,
		now:     time.Now,
		log:     log,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.poll <= 0 {
		return nil, fmt.Errorf("poll interval must be positive, got %s", s.poll)
	}

	now := s.now().In(s.loc)
	var errs []error
	seen := make(map[string]bool)
	for _, at := range cfg.Scheduler.RunTimes {
		expr, err := Expr(at)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if seen[expr] {
			log.Warn("duplicate run time ignored", zap.String("at", at))
			continue
		}
		seen[expr] = true
		next, err := gronx.NextTickAfter(expr, now, false)
		if err != nil {
			errs = append(errs, fmt.Errorf("run time %q: %w", at, err))
			continue
		}
		s.entries = append(s.entries, &entry{at: at, expr: expr, next: next})
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if len(s.entries) == 0 {
		return nil, errors.New("no run times configured")
	}
	return s, nil
}

// Next returns the earliest pending due time.
func (s *Scheduler) Next() time.Time {
	var next time.Time
	for _, e := range s.entries {
		if next.IsZero() || e.next.Before(next) {
			next = e.next
		}
	}
	return next
}

// NextRuns returns the next occurrence of every run time after from, in
// chronological order.
func (s *Scheduler) NextRuns(from time.Time) []time.Time {
	from = from.In(s.loc)
	runs := make([]time.Time, 0, len(s.entries))
	for _, e := range s.entries {
		next, err := gronx.NextTickAfter(e.expr, from, false)
		if err != nil {
			continue
		}
		runs = append(runs, next)
	}
	slices.SortFunc(runs, func(a, b time.Time) int { return a.Compare(b) })
	return runs
}

// RunPending runs the job once if any run time is due and reschedules every
// entry that came due up to the moment the run finished. It returns the
// job's error.
func (s *Scheduler) RunPending(ctx context.Context) error {
	now := s.now().In(s.loc)
	var due []string
	for _, e := range s.entries {
		if !e.next.After(now) {
			due = append(due, e.at)
		}
	}
	if len(due) == 0 {
		return nil
	}

	s.log.Info("scheduled run starting", zap.Strings("slots", due))
	err := s.invoke(ctx)
	if err != nil {
		s.log.Error("scheduled run failed", zap.Error(err))
	}

	finished := s.now().In(s.loc)
	for _, e := range s.entries {
		if e.next.After(finished) {
			continue
		}
		if e.next.After(now) {
			s.log.Warn("run time passed while a run was in progress; skipped",
				zap.String("at", e.at),
				zap.Time("due", e.next),
			)
		}
		next, nerr := gronx.NextTickAfter(e.expr, finished, false)
		if nerr != nil {
			s.log.Error("failed to compute next run", zap.String("at", e.at), zap.Error(nerr))
			continue
		}
		e.next = next
	}
	s.log.Info("next run scheduled", zap.Time("next", s.Next()))
	return err
}

// invoke runs the job, turning a panic into an error.
func (s *Scheduler) invoke(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("run panicked: %v", r)
		}
	}()
	return s.job(ctx)
}

// Run polls for due work until ctx is cancelled, then returns nil once any
// run in progress has finished. Under the stop policy a failed run ends the
// loop with an error wrapping ErrStopped.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	s.log.Info("scheduler started",
		zap.Int("run_times", len(s.entries)),
		zap.Time("next", s.Next()),
		zap.String("on_error", s.onError),
	)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return nil
		case <-ticker.C:
			err := s.RunPending(ctx)
			if err == nil || ctx.Err() != nil {
				continue
			}
			if s.onError == config.OnErrorStop {
				return fmt.Errorf("%w: %w", ErrStopped, err)
			}
		}
	}
}
