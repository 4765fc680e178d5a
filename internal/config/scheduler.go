package config

import (
	"fmt"
	"time"
)

// OnError values decide what the dispatch loop does after a failed run.
const (
	OnErrorContinue = "continue"
	OnErrorStop     = "stop"
)

// Overlap values decide what happens when a run is requested while another
// one is still in progress.
const (
	OverlapSkip = "skip"
	OverlapWait = "wait"
)

// SchedulerConfig configures the daily run times and dispatch policy.
type SchedulerConfig struct {
	// Times of day on a 24-hour clock, "HH:MM".
	RunTimes []string `yaml:"run_times"`

	// IANA zone name the run times are interpreted in; "Local" or empty uses
	// the host zone.
	Timezone string `yaml:"timezone"`

	PollInterval string `yaml:"poll_interval"`
	OnError      string `yaml:"on_error"`
	Overlap      string `yaml:"overlap"`
}

func (s SchedulerConfig) validate() []error {
	var errs []error
	if len(s.RunTimes) == 0 {
		errs = append(errs, fmt.Errorf("scheduler.run_times must not be empty"))
	}
	for _, rt := range s.RunTimes {
		if _, err := time.Parse("15:04", rt); err != nil {
			errs = append(errs, fmt.Errorf("scheduler.run_times: %q is not HH:MM", rt))
		}
	}
	if _, err := loadLocation(s.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("scheduler.timezone: %w", err))
	}
	switch s.OnError {
	case OnErrorContinue, OnErrorStop:
	default:
		errs = append(errs, fmt.Errorf("scheduler.on_error: invalid %q (valid: %s, %s)", s.OnError, OnErrorContinue, OnErrorStop))
	}
	switch s.Overlap {
	case OverlapSkip, OverlapWait:
	default:
		errs = append(errs, fmt.Errorf("scheduler.overlap: invalid %q (valid: %s, %s)", s.Overlap, OverlapSkip, OverlapWait))
	}
	return errs
}

// GetPollInterval returns how often the dispatch loop checks for due runs.
func (c *Config) GetPollInterval() time.Duration {
	return parseDuration(c.Scheduler.PollInterval, time.Second)
}

// Location returns the time zone the run times are interpreted in.
func (c *Config) Location() *time.Location {
	loc, err := loadLocation(c.Scheduler.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

func loadLocation(name string) (*time.Location, error) {
	if name == "" || name == "Local" {
		return time.Local, nil
	}
	return time.LoadLocation(name)
}
