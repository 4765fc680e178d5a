// Package table holds the in-memory tabular dataset used by the extract
// transformer. Cells are kept as the exact strings read from the file; nothing
// is coerced, so untouched columns round-trip unchanged.
package table

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"csvharvest/internal/filter"
)

// ErrColumnNotFound is returned when a referenced column is absent from the header.
var ErrColumnNotFound = errors.New("column not found")

// Dataset is a header plus rows of string cells.
type Dataset struct {
	Header []string
	Rows   [][]string
}

// Len returns the number of data rows.
func (d *Dataset) Len() int { return len(d.Rows) }

// ColumnIndex returns the position of name in the header.
func (d *Dataset) ColumnIndex(name string) (int, error) {
	for i, h := range d.Header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// Filter keeps only the rows whose value in column satisfies keep.
// Rows are narrowed in place.
func (d *Dataset) Filter(column string, keep filter.Predicate) error {
	idx, err := d.ColumnIndex(column)
	if err != nil {
		return err
	}
	kept := d.Rows[:0]
	for _, row := range d.Rows {
		ok, err := keep(row[idx])
		if err != nil {
			return fmt.Errorf("filter %q: %w", column, err)
		}
		if ok {
			kept = append(kept, row)
		}
	}
	clear(d.Rows[len(kept):])
	d.Rows = kept
	return nil
}

// Apply runs every rule of m in declaration order. All referenced columns are
// checked before any row is touched.
func (d *Dataset) Apply(m filter.Map) error {
	for _, col := range m.Columns() {
		if _, err := d.ColumnIndex(col); err != nil {
			return err
		}
	}
	for _, rule := range m {
		if err := d.Filter(rule.Column, rule.Keep); err != nil {
			return err
		}
	}
	return nil
}

// SortBy sorts rows ascending by column. The sort is stable.
//
// If every non-empty value parses as a number the column is compared
// numerically, otherwise byte-wise. Empty cells always sort last.
func (d *Dataset) SortBy(column string) error {
	idx, err := d.ColumnIndex(column)
	if err != nil {
		return err
	}

	numeric := true
	nums := make(map[string]float64)
	for _, row := range d.Rows {
		v := strings.TrimSpace(row[idx])
		if v == "" {
			continue
		}
		if _, seen := nums[v]; seen {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(f) {
			numeric = false
			break
		}
		nums[v] = f
	}

	slices.SortStableFunc(d.Rows, func(a, b []string) int {
		av, bv := strings.TrimSpace(a[idx]), strings.TrimSpace(b[idx])
		switch {
		case av == "" && bv == "":
			return 0
		case av == "":
			return 1
		case bv == "":
			return -1
		}
		if numeric {
			fa, fb := nums[av], nums[bv]
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
		return strings.Compare(a[idx], b[idx])
	})
	return nil
}
