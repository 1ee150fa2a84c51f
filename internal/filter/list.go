package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrNoField is returned by List.Add when the predicate names no field.
var ErrNoField = errors.New("filter: predicate needs a field")

// List is the ordered set of active predicates for one dataset. The zero
// value is ready to use. List is not safe for concurrent use; callers that
// share one guard it themselves.
type List struct {
	preds []Predicate
}

// Add appends a predicate and returns it with a freshly assigned ID.
func (l *List) Add(field string, op Operator, operand string) (Predicate, error) {
	if strings.TrimSpace(field) == "" {
		return Predicate{}, ErrNoField
	}
	p := Predicate{ID: uuid.NewString(), Field: field, Operator: op, Operand: operand}
	l.preds = append(l.preds, p)
	return p, nil
}

// Remove drops the predicate with id and reports whether it existed.
func (l *List) Remove(id string) bool {
	for i, p := range l.preds {
		if p.ID == id {
			l.preds = append(l.preds[:i:i], l.preds[i+1:]...)
			return true
		}
	}
	return false
}

// Clear removes every predicate.
func (l *List) Clear() { l.preds = nil }

// Len returns the number of predicates.
func (l *List) Len() int { return len(l.preds) }

// Predicates returns a copy of the predicates in insertion order.
func (l *List) Predicates() []Predicate {
	out := make([]Predicate, len(l.preds))
	copy(out, l.preds)
	return out
}

// Validate reports predicates whose field is not in fields or whose operator
// is unknown. A nil result means every predicate is usable.
func (l *List) Validate(fields []string) []error {
	return Validate(l.preds, fields)
}

// Validate checks preds against a table header.
func Validate(preds []Predicate, fields []string) []error {
	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f] = struct{}{}
	}
	var errs []error
	for i, p := range preds {
		if _, ok := known[p.Field]; !ok {
			errs = append(errs, fmt.Errorf("filter %d: unknown field %q", i, p.Field))
		}
		if !p.Operator.Valid() {
			errs = append(errs, fmt.Errorf("filter %d: unknown operator %q", i, p.Operator))
		}
	}
	return errs
}
