// Package filter compiles column filter declarations into row predicates.
// A Map is an ordered list of rules; a row survives when every rule holds.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Op names a built-in comparison.
type Op string

const (
	OpEquals      Op = "equals"
	OpNotEquals   Op = "not_equals"
	OpPrefix      Op = "prefix"
	OpNotPrefix   Op = "not_prefix"
	OpSuffix      Op = "suffix"
	OpContains    Op = "contains"
	OpNotContains Op = "not_contains"
	OpIn          Op = "in"
	OpNotIn       Op = "not_in"
	OpRegex       Op = "regex"
	OpEmpty       Op = "empty"
	OpNotEmpty    Op = "not_empty"
)

// ValidOps lists every built-in op.
var ValidOps = []Op{
	OpEquals, OpNotEquals, OpPrefix, OpNotPrefix, OpSuffix, OpContains,
	OpNotContains, OpIn, OpNotIn, OpRegex, OpEmpty, OpNotEmpty,
}

// Spec is one filter declaration as it appears in the config file.
// Exactly one of Op or Expr must be set.
type Spec struct {
	Column string   `yaml:"column"`
	Op     Op       `yaml:"op,omitempty"`
	Value  string   `yaml:"value,omitempty"`
	Values []string `yaml:"values,omitempty"`
	Expr   string   `yaml:"expr,omitempty"`
}

func (s Spec) String() string {
	if s.Expr != "" {
		return fmt.Sprintf("%s: %s", s.Column, s.Expr)
	}
	switch s.Op {
	case OpIn, OpNotIn:
		return fmt.Sprintf("%s %s %v", s.Column, s.Op, s.Values)
	case OpEmpty, OpNotEmpty:
		return fmt.Sprintf("%s %s", s.Column, s.Op)
	}
	return fmt.Sprintf("%s %s %q", s.Column, s.Op, s.Value)
}

// Predicate reports whether a cell value should be kept.
type Predicate func(value string) (bool, error)

// Rule binds a predicate to a column.
type Rule struct {
	Column string
	Keep   Predicate
	Desc   string
}

// Map is the ordered set of rules applied to a dataset.
type Map []Rule

// Columns returns the distinct columns referenced by the map, in order.
func (m Map) Columns() []string {
	seen := make(map[string]bool, len(m))
	var cols []string
	for _, r := range m {
		if !seen[r.Column] {
			seen[r.Column] = true
			cols = append(cols, r.Column)
		}
	}
	return cols
}

// Compile turns specs into a Map, preserving declaration order.
func Compile(specs []Spec) (Map, error) {
	m := make(Map, 0, len(specs))
	var errs []error
	for i, s := range specs {
		pred, err := compileOne(s)
		if err != nil {
			errs = append(errs, fmt.Errorf("filter %d (%s): %w", i, s.Column, err))
			continue
		}
		m = append(m, Rule{Column: s.Column, Keep: pred, Desc: s.String()})
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return m, nil
}

func compileOne(s Spec) (Predicate, error) {
	if strings.TrimSpace(s.Column) == "" {
		return nil, errors.New("column is required")
	}
	if s.Expr != "" && s.Op != "" {
		return nil, errors.New("op and expr are mutually exclusive")
	}
	if s.Expr != "" {
		return compileExpr(s.Expr)
	}

	switch s.Op {
	case OpEquals:
		v := s.Value
		return plain(func(x string) bool { return x == v }), nil
	case OpNotEquals:
		v := s.Value
		return plain(func(x string) bool { return x != v }), nil
	case OpPrefix:
		v := s.Value
		return plain(func(x string) bool { return strings.HasPrefix(x, v) }), nil
	case OpNotPrefix:
		v := s.Value
		return plain(func(x string) bool { return !strings.HasPrefix(x, v) }), nil
	case OpSuffix:
		v := s.Value
		return plain(func(x string) bool { return strings.HasSuffix(x, v) }), nil
	case OpContains:
		v := s.Value
		return plain(func(x string) bool { return strings.Contains(x, v) }), nil
	case OpNotContains:
		v := s.Value
		return plain(func(x string) bool { return !strings.Contains(x, v) }), nil
	case OpIn, OpNotIn:
		set := make(map[string]bool, len(s.Values))
		for _, v := range s.Values {
			set[v] = true
		}
		want := s.Op == OpIn
		return plain(func(x string) bool { return set[x] == want }), nil
	case OpRegex:
		re, err := regexp.Compile(s.Value)
		if err != nil {
			return nil, fmt.Errorf("bad regex: %w", err)
		}
		return plain(re.MatchString), nil
	case OpEmpty:
		return plain(func(x string) bool { return strings.TrimSpace(x) == "" }), nil
	case OpNotEmpty:
		return plain(func(x string) bool { return strings.TrimSpace(x) != "" }), nil
	case "":
		return nil, errors.New("one of op or expr is required")
	}
	return nil, fmt.Errorf("unknown op %q (valid: %v)", s.Op, ValidOps)
}

func plain(f func(string) bool) Predicate {
	return func(x string) (bool, error) { return f(x), nil }
}
