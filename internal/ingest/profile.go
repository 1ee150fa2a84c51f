package ingest

import (
	"strconv"
	"strings"
	"time"

	"csvviz/internal/coerce"
	"csvviz/internal/records"
)

// Column types reported by Profile, narrowest first.
const (
	TypeInteger   = "integer"
	TypeBoolean   = "boolean"
	TypeNumber    = "number"
	TypeDate      = "date"
	TypeTimestamp = "timestamp"
	TypeText      = "text"
)

// ProfileSample is the number of leading rows Profile inspects.
const ProfileSample = 500

// Column summarizes one field of a table.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	NonEmpty int    `json:"non_empty"`
	// Numeric reports whether the field can serve as a y axis.
	Numeric bool `json:"numeric"`
}

var dateLayouts = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"01/02/2006",
	"2006/01/02",
	"2 Jan 2006",
	"02-Jan-2006",
	"Jan 2, 2006",
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"02/01/2006 15:04",
	"01/02/2006 15:04",
}

// Profile infers a type for every field from up to ProfileSample rows. A
// column qualifies for a type only if all of its non-empty values do.
func Profile(t records.Table) []Column {
	n := t.Len()
	if n > ProfileSample {
		n = ProfileSample
	}
	out := make([]Column, len(t.Fields))
	for i, f := range t.Fields {
		vals := make([]string, 0, n)
		for _, row := range t.Rows[:n] {
			if v := strings.TrimSpace(coerce.String(row[f])); v != "" {
				vals = append(vals, v)
			}
		}
		typ := inferType(vals)
		out[i] = Column{
			Name:     f,
			Type:     typ,
			NonEmpty: len(vals),
			Numeric:  typ == TypeInteger || typ == TypeNumber,
		}
	}
	return out
}

func inferType(vals []string) string {
	if len(vals) == 0 {
		return TypeText
	}
	if allMatch(vals, isInt) {
		return TypeInteger
	}
	if allMatch(vals, isBool) {
		return TypeBoolean
	}
	if allMatch(vals, isNumber) {
		return TypeNumber
	}
	allDate, anyTime := true, false
	for _, v := range vals {
		ok, hasTime := parseDateOrTimestamp(v)
		if !ok {
			allDate = false
			break
		}
		anyTime = anyTime || hasTime
	}
	switch {
	case allDate && anyTime:
		return TypeTimestamp
	case allDate:
		return TypeDate
	}
	return TypeText
}

func allMatch(vals []string, fn func(string) bool) bool {
	for _, v := range vals {
		if !fn(v) {
			return false
		}
	}
	return true
}

func isBool(s string) bool {
	switch strings.ToLower(s) {
	case "true", "false", "yes", "no", "y", "n", "t", "f":
		return true
	}
	return false
}

func isInt(s string) bool {
	_, err := strconv.ParseInt(s, 10, 64)
	return err == nil
}

// isNumber uses the same rules the aggregation engine applies to cells.
func isNumber(s string) bool {
	_, ok := coerce.ParseNumber(s)
	return ok
}

func parseDateOrTimestamp(s string) (ok, hasTime bool) {
	for _, layout := range timestampLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, true
		}
	}
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true, false
		}
	}
	return false, false
}
