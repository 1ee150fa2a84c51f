package export

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/records"
)

func TestTable_RoundTrip(t *testing.T) {
	t.Parallel()

	raw := []byte("region;amount;note\nnorth;10;plain\nsouth;5;\"has;semi\"\neast;7;x\nwest;1;y\n")
	p, err := ingest.Parse(raw, ingest.Semicolon)
	require.NoError(t, err)

	filtered := filter.Apply(p.Table, []filter.Predicate{
		{Field: "amount", Operator: filter.GreaterThan, Operand: "4"},
	})
	require.Equal(t, 3, filtered.Len())

	a, err := Table(filtered, "sales.csv", ingest.Semicolon)
	require.NoError(t, err)
	assert.Equal(t, "sales_filtered.csv", a.Filename)
	assert.Equal(t, CSVContentType, a.ContentType)
	assert.Equal(t, Checksum(a.Data), a.Checksum)

	back, err := ingest.Parse(a.Data, ingest.Semicolon)
	require.NoError(t, err)
	assert.Equal(t, filtered.Fields, back.Table.Fields)
	require.Equal(t, filtered.Len(), back.Table.Len())
	for i := range filtered.Rows {
		assert.Equal(t, filtered.Rows[i], back.Table.Rows[i], "row %d", i)
	}
}

func TestTable_AbsentCellsAndOrder(t *testing.T) {
	t.Parallel()

	tbl := records.Table{
		Fields: []string{"b", "a", "c"},
		Rows: []records.Record{
			{"a": "1", "b": "2"},
			{"a": 3.5, "c": "x"},
		},
	}
	a, err := Table(tbl, "", ingest.Comma)
	require.NoError(t, err)
	assert.Equal(t, "data_filtered.csv", a.Filename)
	assert.Equal(t, "b,a,c\n2,1,\n,3.5,x\n", string(a.Data))
}

func TestTable_EmptyTableWritesHeader(t *testing.T) {
	t.Parallel()

	a, err := Table(records.Table{Fields: []string{"x", "y"}}, "d.csv", ingest.Tab)
	require.NoError(t, err)
	assert.Equal(t, "x\ty\n", string(a.Data))
}

func TestFilteredName(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"sales.csv":     "sales_filtered.csv",
		"dir/sales.csv": "sales_filtered.csv",
		"report":        "report_filtered.csv",
		"export.tsv":    "export_filtered.csv",
		"":              "data_filtered.csv",
		"  ":            "data_filtered.csv",
		"a.csv.bak":     "a_filtered.csv.bak",
	}
	for in, want := range cases {
		assert.Equal(t, want, FilteredName(in), "input %q", in)
	}
}

func TestSlug(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want string }{
		{"Sales by Region", "sales-by-region"},
		{"  Café   Müller ", "cafe-muller"},
		{"a/b\\c", "a-b-c"},
		{"", ""},
		{"   ", ""},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Slug(tc.in), "input %q", tc.in)
	}
}
