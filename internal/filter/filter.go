// Package filter narrows a records.Table with AND-composed predicates.
//
// Matching is deliberately loose: cells are compared through their string
// form, ordering operators coerce both sides to numbers, and text operators
// ignore case. A predicate on an empty cell only matches an empty operand,
// except for is-empty and is-not-empty which test emptiness itself.
package filter

import (
	"strings"

	"csvviz/internal/coerce"
	"csvviz/internal/records"
)

// Predicate is one (field, operator, operand) condition.
type Predicate struct {
	ID       string   `json:"id,omitempty"`
	Field    string   `json:"field"`
	Operator Operator `json:"operator"`
	Operand  string   `json:"operand"`
}

// Match reports whether row satisfies p. Unknown operators match every row.
func (p Predicate) Match(row records.Record) bool {
	v := row[p.Field]

	switch p.Operator {
	case IsEmpty:
		return coerce.IsEmpty(v)
	case IsNotEmpty:
		return !coerce.IsEmpty(v)
	}
	if coerce.IsEmpty(v) {
		return p.Operand == ""
	}

	switch p.Operator {
	case Equal:
		return coerce.String(v) == p.Operand
	case NotEqual:
		return coerce.String(v) != p.Operand
	case GreaterThan, LessThan:
		n, ok := coerce.Number(v)
		if !ok {
			return false
		}
		operand, ok := coerce.Operand(p.Operand)
		if !ok {
			return false
		}
		if p.Operator == GreaterThan {
			return n > operand
		}
		return n < operand
	case Contains:
		return strings.Contains(strings.ToLower(coerce.String(v)), strings.ToLower(p.Operand))
	case StartsWith:
		return strings.HasPrefix(strings.ToLower(coerce.String(v)), strings.ToLower(p.Operand))
	case EndsWith:
		return strings.HasSuffix(strings.ToLower(coerce.String(v)), strings.ToLower(p.Operand))
	}
	return true
}

// Apply returns the rows of t that satisfy every predicate, in table order.
// The returned table shares t's header and Record values; nothing is copied
// or mutated. An empty predicate list returns t unchanged.
func Apply(t records.Table, preds []Predicate) records.Table {
	if len(preds) == 0 {
		return t
	}
	out := make([]records.Record, 0, len(t.Rows))
	for _, row := range t.Rows {
		if matchAll(row, preds) {
			out = append(out, row)
		}
	}
	return t.WithRows(out)
}

func matchAll(row records.Record, preds []Predicate) bool {
	for _, p := range preds {
		if !p.Match(row) {
			return false
		}
	}
	return true
}
