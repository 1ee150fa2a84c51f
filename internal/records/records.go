// Package records defines the in-memory row model shared by every stage of
// the pipeline: ingestion produces a Table, filtering selects a subset of its
// rows, aggregation and export read it.
//
// A Record maps a field name to a cell value. Cells are strings after
// ingestion; numeric Go values are tolerated so callers can build tables by
// hand (tests, SQL sources). A missing key is read as the empty string.
package records

// Record is a single row keyed by field name.
type Record map[string]any

// Get returns the raw value for field and whether the key was present.
func (r Record) Get(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// Table is an ordered collection of rows that share one header.
//
// Fields holds the header in source order; it drives default axis selection
// and the column order of exports. Rows never change after ingestion; filters
// return a new Table that references the same Record values.
type Table struct {
	Fields []string
	Rows   []Record
}

// Len returns the number of rows.
func (t Table) Len() int { return len(t.Rows) }

// Empty reports whether the table has no rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// HasField reports whether name is one of the table's fields.
func (t Table) HasField(name string) bool {
	for _, f := range t.Fields {
		if f == name {
			return true
		}
	}
	return false
}

// WithRows returns a table with the same header and the given rows.
func (t Table) WithRows(rows []Record) Table {
	return Table{Fields: t.Fields, Rows: rows}
}

// Page returns rows [page*size, (page+1)*size) clamped to the table bounds.
// A non-positive size returns every row.
func (t Table) Page(page, size int) []Record {
	if size <= 0 {
		return t.Rows
	}
	if page < 0 {
		page = 0
	}
	start := page * size
	if start >= len(t.Rows) {
		return nil
	}
	end := start + size
	if end > len(t.Rows) {
		end = len(t.Rows)
	}
	return t.Rows[start:end]
}

// Pages returns how many pages of the given size the table spans.
func (t Table) Pages(size int) int {
	if size <= 0 || len(t.Rows) == 0 {
		return 1
	}
	return (len(t.Rows) + size - 1) / size
}
