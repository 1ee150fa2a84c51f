package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Operator is a comparison applied between a cell and a predicate operand.
type Operator string

// Supported operators.
const (
	Equal       Operator = "equal"
	NotEqual    Operator = "not-equal"
	GreaterThan Operator = "greater-than"
	LessThan    Operator = "less-than"
	Contains    Operator = "contains"
	StartsWith  Operator = "starts-with"
	EndsWith    Operator = "ends-with"
	IsEmpty     Operator = "is-empty"
	IsNotEmpty  Operator = "is-not-empty"
)

// Operators lists every operator in display order.
var Operators = []Operator{
	Equal, NotEqual, GreaterThan, LessThan,
	Contains, StartsWith, EndsWith, IsEmpty, IsNotEmpty,
}

var labels = map[Operator]string{
	Equal:       "is equal to",
	NotEqual:    "is not equal to",
	GreaterThan: "is greater than",
	LessThan:    "is less than",
	Contains:    "contains",
	StartsWith:  "starts with",
	EndsWith:    "ends with",
	IsEmpty:     "is empty",
	IsNotEmpty:  "is not empty",
}

// Label returns the human-readable form, e.g. "is greater than".
func (o Operator) Label() string {
	if l, ok := labels[o]; ok {
		return l
	}
	return string(o)
}

// Valid reports whether o is a known operator.
func (o Operator) Valid() bool {
	_, ok := labels[o]
	return ok
}

// ParseOperator accepts the canonical name ("greater-than"), the label
// ("is greater than") and a few short aliases ("gt", ">", "eq"). Matching is
// case-insensitive.
func ParseOperator(s string) (Operator, error) {
	key := strings.ToLower(strings.Join(strings.Fields(s), " "))
	if op, ok := aliases[key]; ok {
		return op, nil
	}
	return "", fmt.Errorf("filter: unknown operator %q", s)
}

// aliases maps every accepted spelling to its operator.
var aliases = buildAliases()

func buildAliases() map[string]Operator {
	m := map[string]Operator{
		"=": Equal, "==": Equal, "eq": Equal,
		"!=": NotEqual, "<>": NotEqual, "ne": NotEqual,
		">": GreaterThan, "gt": GreaterThan,
		"<": LessThan, "lt": LessThan,
	}
	for op, label := range labels {
		m[string(op)] = op
		m[label] = op
		m[strings.ReplaceAll(string(op), "-", " ")] = op
	}
	return m
}

// MarshalJSON encodes the canonical name.
func (o Operator) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(o))
}

// UnmarshalJSON accepts any spelling ParseOperator does.
func (o *Operator) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	op, err := ParseOperator(s)
	if err != nil {
		return err
	}
	*o = op
	return nil
}
