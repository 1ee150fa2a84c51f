package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/records"
)

// sample mirrors "a,b\n1,10\n2,20\n,30" after ingestion.
func sample() records.Table {
	return records.Table{
		Fields: []string{"a", "b"},
		Rows: []records.Record{
			{"a": "1", "b": "10"},
			{"a": "2", "b": "20"},
			{"a": "", "b": "30"},
		},
	}
}

func TestApply_GreaterThanIgnoresOtherEmptyFields(t *testing.T) {
	t.Parallel()

	got := Apply(sample(), []Predicate{{Field: "b", Operator: GreaterThan, Operand: "15"}})
	assert.Equal(t, []records.Record{
		{"a": "2", "b": "20"},
		{"a": "", "b": "30"},
	}, got.Rows)
	assert.Equal(t, []string{"a", "b"}, got.Fields)
}

func TestPredicate_Match(t *testing.T) {
	t.Parallel()

	row := records.Record{"name": "Alice Smith", "age": "42", "score": "7.5", "blank": "", "note": "n/a"}

	cases := []struct {
		name string
		p    Predicate
		want bool
	}{
		{"equal", Predicate{Field: "age", Operator: Equal, Operand: "42"}, true},
		{"equal_is_exact", Predicate{Field: "name", Operator: Equal, Operand: "alice smith"}, false},
		{"not_equal", Predicate{Field: "age", Operator: NotEqual, Operand: "41"}, true},
		{"greater", Predicate{Field: "score", Operator: GreaterThan, Operand: "7"}, true},
		{"greater_strict", Predicate{Field: "age", Operator: GreaterThan, Operand: "42"}, false},
		{"less", Predicate{Field: "age", Operator: LessThan, Operand: "1e2"}, true},
		{"greater_non_numeric_cell", Predicate{Field: "note", Operator: GreaterThan, Operand: "0"}, false},
		{"less_non_numeric_operand", Predicate{Field: "age", Operator: LessThan, Operand: "many"}, false},
		{"greater_blank_operand_is_zero", Predicate{Field: "age", Operator: GreaterThan, Operand: ""}, true},
		{"contains_ignores_case", Predicate{Field: "name", Operator: Contains, Operand: "SMI"}, true},
		{"starts_with", Predicate{Field: "name", Operator: StartsWith, Operand: "ali"}, true},
		{"starts_with_miss", Predicate{Field: "name", Operator: StartsWith, Operand: "smith"}, false},
		{"ends_with", Predicate{Field: "name", Operator: EndsWith, Operand: "ITH"}, true},
		{"is_empty", Predicate{Field: "blank", Operator: IsEmpty}, true},
		{"is_empty_absent_field", Predicate{Field: "missing", Operator: IsEmpty}, true},
		{"is_empty_on_value", Predicate{Field: "age", Operator: IsEmpty}, false},
		{"is_not_empty", Predicate{Field: "age", Operator: IsNotEmpty}, true},
		{"is_not_empty_on_blank", Predicate{Field: "blank", Operator: IsNotEmpty, Operand: ""}, false},
		{"empty_cell_needs_empty_operand", Predicate{Field: "blank", Operator: Contains, Operand: "x"}, false},
		{"empty_cell_matches_empty_operand", Predicate{Field: "blank", Operator: Equal, Operand: ""}, true},
		{"empty_cell_not_equal_empty_operand", Predicate{Field: "blank", Operator: NotEqual, Operand: ""}, true},
		{"empty_cell_greater_empty_operand", Predicate{Field: "blank", Operator: GreaterThan, Operand: ""}, true},
		{"unknown_operator_passes", Predicate{Field: "age", Operator: Operator("regex"), Operand: "^4"}, true},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.want, c.p.Match(row))
		})
	}
}

func TestPredicate_NumericCells(t *testing.T) {
	t.Parallel()

	row := records.Record{"n": 12.5, "i": int64(3)}
	assert.True(t, Predicate{Field: "n", Operator: Equal, Operand: "12.5"}.Match(row))
	assert.True(t, Predicate{Field: "i", Operator: LessThan, Operand: "4"}.Match(row))
}

func TestApply_OrderIndependent(t *testing.T) {
	t.Parallel()

	tbl := records.Table{
		Fields: []string{"city", "pop", "country"},
		Rows: []records.Record{
			{"city": "Paris", "pop": "2100000", "country": "FR"},
			{"city": "Lyon", "pop": "520000", "country": "FR"},
			{"city": "Porto", "pop": "230000", "country": "PT"},
			{"city": "Pau", "pop": "", "country": "FR"},
		},
	}
	preds := []Predicate{
		{Field: "city", Operator: StartsWith, Operand: "p"},
		{Field: "pop", Operator: GreaterThan, Operand: "250000"},
		{Field: "country", Operator: Equal, Operand: "FR"},
	}
	reversed := []Predicate{preds[2], preds[1], preds[0]}

	a := Apply(tbl, preds)
	b := Apply(tbl, reversed)
	assert.Equal(t, a, b)
	require.Len(t, a.Rows, 1)
	assert.Equal(t, "Paris", a.Rows[0]["city"])
}

func TestApply_EmptyListAndNoMutation(t *testing.T) {
	t.Parallel()

	tbl := sample()
	assert.Equal(t, tbl, Apply(tbl, nil))

	_ = Apply(tbl, []Predicate{{Field: "a", Operator: Equal, Operand: "1"}})
	assert.Equal(t, sample(), tbl)
}

func TestApply_Idempotent(t *testing.T) {
	t.Parallel()

	preds := []Predicate{{Field: "b", Operator: LessThan, Operand: "25"}}
	once := Apply(sample(), preds)
	assert.Equal(t, once, Apply(once, preds))
}
