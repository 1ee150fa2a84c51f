package ingest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/records"
)

func TestParse_KeepsRowWithEmptyX(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("a,b\n1,10\n2,20\n,30"), Comma)
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, got.Table.Fields)
	assert.Equal(t, []records.Record{
		{"a": "1", "b": "10"},
		{"a": "2", "b": "20"},
		{"a": "", "b": "30"},
	}, got.Table.Rows)
	assert.Equal(t, Axes{X: "a", Y: "b"}, got.Axes)
	assert.Equal(t, Comma, got.Delimiter)
}

func TestParse_RecoversDelimiter(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("x;y\nfoo;1\nbar;2\n"), Comma)
	require.NoError(t, err)

	assert.Equal(t, Semicolon, got.Delimiter)
	assert.Equal(t, []string{"x", "y"}, got.Table.Fields)
	assert.Equal(t, 2, got.Table.Len())
	assert.Equal(t, "bar", got.Table.Rows[1]["x"])
}

func TestParse_RecoverySkipsFailedDelimiter(t *testing.T) {
	t.Parallel()

	// Requested pipe finds one column; the first line also holds a tab.
	got, err := Parse([]byte("name\tscore\nann\t3\n"), Pipe)
	require.NoError(t, err)
	assert.Equal(t, Tab, got.Delimiter)
	assert.Equal(t, []string{"name", "score"}, got.Table.Fields)
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"single_column_no_candidate", "value\n1\n2\n", ErrMalformedInput},
		{"empty_input", "", ErrMalformedInput},
		{"retry_still_single_column", "\"a;b\"\n1\n", ErrMalformedInput},
		{"only_blank_rows", "a,b\n , \n,\n", ErrEmptyTable},
		{"header_only", "a,b\n", ErrEmptyTable},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(c.raw), Comma)
			require.Error(t, err)
			assert.True(t, errors.Is(err, c.want), "got %v, want %v", err, c.want)
		})
	}
}

func TestParse_TrimsCellsAndDropsBlankRows(t *testing.T) {
	t.Parallel()

	raw := "\uFEFF region , amount \n  north , 10 \n   ,   \n\nsouth,5\n"
	got, err := Parse([]byte(raw), Comma)
	require.NoError(t, err)

	assert.Equal(t, []string{"region", "amount"}, got.Table.Fields)
	assert.Equal(t, []records.Record{
		{"region": "north", "amount": "10"},
		{"region": "south", "amount": "5"},
	}, got.Table.Rows)
	assert.Equal(t, 1, got.Blank)
}

func TestParse_RaggedRows(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("a,b,c\n1,2\n3,4,5,6\n"), Comma)
	require.NoError(t, err)

	short := got.Table.Rows[0]
	_, hasC := short["c"]
	assert.False(t, hasC, "missing trailing cell must stay absent")
	assert.Equal(t, records.Record{"a": "3", "b": "4", "c": "5"}, got.Table.Rows[1])
}

func TestParse_QuotedFields(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("city,note\n\"Paris, FR\",\"said \"\"hi\"\"\"\nRome,ok\n"), Comma)
	require.NoError(t, err)
	assert.Equal(t, "Paris, FR", got.Table.Rows[0]["city"])
	assert.Equal(t, `said "hi"`, got.Table.Rows[0]["note"])
}

func TestParse_HeaderNormalization(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("id,,id\n1,x,2\n"), Comma)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "col_1", "id_1"}, got.Table.Fields)
	assert.Equal(t, records.Record{"id": "1", "col_1": "x", "id_1": "2"}, got.Table.Rows[0])
}

func TestParse_RepeatedHeaderKeepsColumns(t *testing.T) {
	t.Parallel()

	got, err := Parse([]byte("a,a\n1,2\n"), Comma)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "a_1"}, got.Table.Fields)
	assert.Equal(t, records.Record{"a": "1", "a_1": "2"}, got.Table.Rows[0])
	assert.Equal(t, Comma, got.Delimiter)
}

func TestUniqueFields(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"a", "b"}, uniqueFields([]string{"a", "b"}))
	assert.Equal(t, []string{"a", "a_1", "a_2"}, uniqueFields([]string{"a", "a", "a"}))
	// a_1 is a real column, so the repeat takes the next free suffix.
	assert.Equal(t, []string{"a", "a_1", "a_2"}, uniqueFields([]string{"a", "a_1", "a"}))
}

func TestDefaultAxes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		table records.Table
		want  Axes
	}{
		{
			name:  "first_numeric_other_field",
			table: records.Table{Fields: []string{"region", "label", "amount"}, Rows: []records.Record{{"region": "n", "label": "q", "amount": "4.5"}}},
			want:  Axes{X: "region", Y: "amount"},
		},
		{
			name:  "x_is_never_y",
			table: records.Table{Fields: []string{"year", "name"}, Rows: []records.Record{{"year": "2024", "name": "a"}}},
			want:  Axes{X: "year", Y: "name"},
		},
		{
			name:  "empty_first_row_value_skipped",
			table: records.Table{Fields: []string{"k", "a", "b"}, Rows: []records.Record{{"k": "x", "a": "", "b": "7"}}},
			want:  Axes{X: "k", Y: "b"},
		},
		{
			name:  "single_field",
			table: records.Table{Fields: []string{"only"}, Rows: []records.Record{{"only": "1"}}},
			want:  Axes{X: "only"},
		},
		{
			name:  "no_fields",
			table: records.Table{},
			want:  Axes{},
		},
	}
	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, c.want, DefaultAxes(c.table))
		})
	}
}
