package config

import (
	"errors"
	"fmt"

	"csvharvest/internal/filter"
)

// TransformConfig declares the row filters and the sort column. Filters are a
// list, not a map, so declaration order survives decoding.
type TransformConfig struct {
	Filters    []filter.Spec `yaml:"filters"`
	SortColumn string        `yaml:"sort_column"`
}

func (t TransformConfig) validate() []error {
	var errs []error
	if t.SortColumn == "" {
		errs = append(errs, errors.New("transform.sort_column is required"))
	}
	if _, err := filter.Compile(t.Filters); err != nil {
		errs = append(errs, fmt.Errorf("transform.filters: %w", err))
	}
	return errs
}
