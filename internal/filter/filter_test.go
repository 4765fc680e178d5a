package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keep(t *testing.T, p Predicate, v string) bool {
	t.Helper()
	ok, err := p(v)
	require.NoError(t, err)
	return ok
}

func TestCompile_Ops(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
		in   string
		want bool
	}{
		{"equals hit", Spec{Column: "c", Op: OpEquals, Value: "---"}, "---", true},
		{"equals miss", Spec{Column: "c", Op: OpEquals, Value: "---"}, "OK", false},
		{"not_equals", Spec{Column: "c", Op: OpNotEquals, Value: "x"}, "y", true},
		{"prefix", Spec{Column: "c", Op: OpPrefix, Value: "UNK"}, "UNK1", true},
		{"not_prefix", Spec{Column: "c", Op: OpNotPrefix, Value: "UNK"}, "UNK1", false},
		{"not_prefix other", Spec{Column: "c", Op: OpNotPrefix, Value: "UNK"}, "ABC", true},
		{"suffix", Spec{Column: "c", Op: OpSuffix, Value: ".com"}, "a.com", true},
		{"contains", Spec{Column: "c", Op: OpContains, Value: "mid"}, "amidst", true},
		{"not_contains", Spec{Column: "c", Op: OpNotContains, Value: "mid"}, "amidst", false},
		{"in", Spec{Column: "c", Op: OpIn, Values: []string{"a", "b"}}, "b", true},
		{"not_in", Spec{Column: "c", Op: OpNotIn, Values: []string{"a", "b"}}, "b", false},
		{"regex", Spec{Column: "c", Op: OpRegex, Value: `^\d{3}$`}, "123", true},
		{"empty", Spec{Column: "c", Op: OpEmpty}, "  ", true},
		{"not_empty", Spec{Column: "c", Op: OpNotEmpty}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Compile([]Spec{tt.spec})
			require.NoError(t, err)
			require.Len(t, m, 1)
			assert.Equal(t, tt.want, keep(t, m[0].Keep, tt.in))
		})
	}
}

func TestCompile_Expr(t *testing.T) {
	m, err := Compile([]Spec{{Column: "Code", Expr: `!value.startsWith("UNK") && !isEmpty`}})
	require.NoError(t, err)

	assert.True(t, keep(t, m[0].Keep, "ABC"))
	assert.False(t, keep(t, m[0].Keep, "UNK1"))
	assert.False(t, keep(t, m[0].Keep, ""))
}

func TestCompile_ExprRuntimeError(t *testing.T) {
	m, err := Compile([]Spec{{Column: "c", Expr: `value.nope()`}})
	require.NoError(t, err)

	_, err = m[0].Keep("x")
	assert.Error(t, err)
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name string
		spec Spec
	}{
		{"missing column", Spec{Op: OpEquals, Value: "x"}},
		{"missing op", Spec{Column: "c"}},
		{"unknown op", Spec{Column: "c", Op: "bogus"}},
		{"both op and expr", Spec{Column: "c", Op: OpEquals, Expr: "true"}},
		{"bad regex", Spec{Column: "c", Op: OpRegex, Value: "("}},
		{"bad expr", Spec{Column: "c", Expr: "value ==="}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile([]Spec{tt.spec})
			assert.Error(t, err)
		})
	}
}

func TestMap_ColumnsPreservesOrder(t *testing.T) {
	m, err := Compile([]Spec{
		{Column: "Status", Op: OpEquals, Value: "---"},
		{Column: "Code", Op: OpNotPrefix, Value: "UNK"},
		{Column: "Status", Op: OpNotEmpty},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Status", "Code"}, m.Columns())
}

func TestSpec_String(t *testing.T) {
	assert.Equal(t, `Status equals "---"`, Spec{Column: "Status", Op: OpEquals, Value: "---"}.String())
	assert.Equal(t, "Code not_empty", Spec{Column: "Code", Op: OpNotEmpty}.String())
	assert.Equal(t, "Kind in [a b]", Spec{Column: "Kind", Op: OpIn, Values: []string{"a", "b"}}.String())
}
