package config

import (
	"fmt"
	"slices"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // optional extra output path
}

var (
	validLevels  = []string{"debug", "info", "warn", "error"}
	validFormats = []string{"json", "console"}
)

func (l LoggingConfig) validate() []error {
	var errs []error
	if l.Level != "" && !slices.Contains(validLevels, l.Level) {
		errs = append(errs, fmt.Errorf("logging.level: invalid %q (valid: %v)", l.Level, validLevels))
	}
	if l.Format != "" && !slices.Contains(validFormats, l.Format) {
		errs = append(errs, fmt.Errorf("logging.format: invalid %q (valid: %v)", l.Format, validFormats))
	}
	return errs
}
