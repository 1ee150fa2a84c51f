// Package ingest turns raw delimited text into a records.Table.
//
// Parsing is whole-buffer: the input is read into memory, split into a header
// and data rows, trimmed, and cleaned of blank rows. When the requested
// delimiter produces a single column, the first line is inspected once for a
// better separator (comma, semicolon, tab, pipe, in that order) and the parse
// is retried with it. There is exactly one retry.
package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"csvviz/internal/coerce"
	"csvviz/internal/logging"
	"csvviz/internal/records"
)

var (
	// ErrMalformedInput is returned when no delimiter yields more than one column.
	ErrMalformedInput = errors.New("unable to parse delimited input into multiple columns; check the file format or try a different delimiter")
	// ErrEmptyTable is returned when every data row is blank.
	ErrEmptyTable = errors.New("no valid data found in the input")
)

// utf8BOM is stripped from the first header cell if present.
const utf8BOM = "\uFEFF"

// Axes is the default x/y field pair chosen after a successful parse.
type Axes struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// Parsed is the outcome of Parse.
type Parsed struct {
	Table records.Table
	Axes  Axes
	// Delimiter is the separator that produced Table; it differs from the
	// requested one when recovery kicked in.
	Delimiter Delimiter
	// Blank counts data rows dropped because every cell was empty.
	Blank int
	// Skipped counts rows the CSV reader could not parse.
	Skipped int
}

// Parse splits raw into a Table using d (zero means comma), retrying once with
// a delimiter detected from the first line when d yields one column or fewer.
func Parse(raw []byte, d Delimiter) (Parsed, error) {
	d = Delimiter(d.Rune())

	res, err := parseWith(raw, d)
	if err != nil {
		return Parsed{}, err
	}
	if len(res.Table.Fields) <= 1 {
		next, ok := detectDelimiter(raw, d)
		if !ok {
			return Parsed{}, fmt.Errorf("ingest: %w", ErrMalformedInput)
		}
		logging.Logger().Debug("ingest: retrying with detected delimiter",
			"failed", d.Label(), "detected", next.Label())
		res, err = parseWith(raw, next)
		if err != nil {
			return Parsed{}, err
		}
		if len(res.Table.Fields) <= 1 {
			return Parsed{}, fmt.Errorf("ingest: %w", ErrMalformedInput)
		}
	}

	if res.Table.Empty() {
		return Parsed{}, fmt.Errorf("ingest: %w", ErrEmptyTable)
	}
	res.Axes = DefaultAxes(res.Table)
	return res, nil
}

// parseWith reads raw with a single delimiter. It never fails on individual
// rows; broken rows are counted and skipped.
func parseWith(raw []byte, d Delimiter) (Parsed, error) {
	cr := csv.NewReader(bytes.NewReader(raw))
	cr.Comma = d.Rune()
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	out := Parsed{Delimiter: d}

	var header []string
	for header == nil {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				out.Skipped++
				continue
			}
			return Parsed{}, fmt.Errorf("ingest: read header: %w", err)
		}
		header = uniqueFields(normalizeHeader(rec))
	}
	out.Table.Fields = header

	const logLimit = 20
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				return Parsed{}, fmt.Errorf("ingest: read row %d: %w", line, err)
			}
			if out.Skipped < logLimit {
				logging.Logger().Debug("ingest: skipping row", "line", line, "err", err)
			}
			out.Skipped++
			continue
		}

		row := make(records.Record, len(header))
		blank := true
		for i, key := range header {
			if i >= len(rec) {
				break
			}
			v := strings.TrimSpace(rec[i])
			if v != "" {
				blank = false
			}
			row[key] = v
		}
		if blank {
			out.Blank++
			continue
		}
		out.Table.Rows = append(out.Table.Rows, row)
	}
	return out, nil
}

// normalizeHeader trims every header cell, strips a BOM from the first one and
// names blank cells col_N by position.
func normalizeHeader(h []string) []string {
	res := make([]string, len(h))
	for i, col := range h {
		c := col
		if i == 0 {
			c = strings.TrimPrefix(c, utf8BOM)
		}
		c = strings.TrimSpace(c)
		if c == "" {
			c = fmt.Sprintf("col_%d", i)
		}
		res[i] = c
	}
	return res
}

// uniqueFields renames repeated header names to name_1, name_2 and so on,
// skipping any suffix another column already uses, so every column stays a
// separate field.
func uniqueFields(h []string) []string {
	taken := make(map[string]bool, len(h))
	for _, f := range h {
		taken[f] = true
	}
	seen := make(map[string]bool, len(h))
	out := make([]string, len(h))
	for i, f := range h {
		if !seen[f] {
			seen[f] = true
			out[i] = f
			continue
		}
		name := f
		for n := 1; taken[name]; n++ {
			name = fmt.Sprintf("%s_%d", f, n)
		}
		taken[name] = true
		seen[name] = true
		out[i] = name
	}
	return out
}

// DefaultAxes picks the first field as x and, for y, the first other field
// whose first-row value is numeric, falling back to the second field.
func DefaultAxes(t records.Table) Axes {
	if len(t.Fields) == 0 {
		return Axes{}
	}
	ax := Axes{X: t.Fields[0]}
	if len(t.Rows) > 0 {
		first := t.Rows[0]
		for _, f := range t.Fields {
			if f == ax.X {
				continue
			}
			v := first[f]
			if coerce.IsEmpty(v) {
				continue
			}
			if _, ok := coerce.Number(v); ok {
				ax.Y = f
				return ax
			}
		}
	}
	if len(t.Fields) > 1 {
		ax.Y = t.Fields[1]
	}
	return ax
}
