package main

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/config"
	"csvviz/internal/export"
	"csvviz/internal/logging"
)

const salesCSV = "region,product,amount\nNorth,Widget,10\nSouth,Gadget,5\nNorth,Gadget,7\n"

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

// runCLI calls run with an isolated environment file so a stray .env in the
// working directory cannot leak into the test.
func runCLI(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	t.Cleanup(func() { logging.SetLogger(nil) })
	env := writeFile(t, t.TempDir(), "test.env", "")

	var out, errOut bytes.Buffer
	err = run(context.Background(), append([]string{"-env", env}, args...), &out, &errOut)
	return out.String(), errOut.String(), err
}

func decodeLines(t *testing.T, s string) []result {
	t.Helper()
	var out []result
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		var r result
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r), sc.Text())
		out = append(out, r)
	}
	return out
}

func TestRun_FilterAggregateExport(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sales.csv", salesCSV)
	out := filepath.Join(dir, "out")

	stdout, _, err := runCLI(t,
		"-src", src,
		"-filter", "amount:greater-than:6",
		"-kind", "bar", "-x", "region", "-y", "amount",
		"-out", out,
	)
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	res := lines[0]
	assert.Equal(t, "sales.csv", res.Source)
	assert.Equal(t, 3, res.Rows)
	assert.Equal(t, 2, res.Matched)
	assert.EqualValues(t, "Bar", res.Kind)
	require.Len(t, res.Series, 1)
	assert.Equal(t, "North", res.Series[0].Name)
	assert.InDelta(t, 17.0, res.Series[0].Value, 1e-9)
	require.Len(t, res.Files, 1)

	got, err := os.ReadFile(filepath.Join(out, "sales_filtered.csv"))
	require.NoError(t, err)
	assert.Equal(t, "region,product,amount\nNorth,Widget,10\nNorth,Gadget,7\n", string(got))
}

func TestRun_DefaultAxes(t *testing.T) {
	src := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	stdout, _, err := runCLI(t, "-src", src, "-kind", "pie")
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	assert.Equal(t, "region", lines[0].X)
	assert.Equal(t, "amount", lines[0].Y)
	assert.Len(t, lines[0].Series, 2)
	assert.Empty(t, lines[0].Files)
}

func TestRun_Profile(t *testing.T) {
	src := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	stdout, _, err := runCLI(t, "-src", src, "-profile")
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Profile, 3)
	assert.Equal(t, "amount", lines[0].Profile[2].Name)
	assert.Equal(t, "integer", lines[0].Profile[2].Type)
	assert.True(t, lines[0].Profile[2].Numeric)
	assert.Empty(t, lines[0].Series)
}

func TestRun_Validate(t *testing.T) {
	src := writeFile(t, t.TempDir(), "sales.csv", salesCSV)

	_, stderr, err := runCLI(t, "-src", src, "-validate")
	require.NoError(t, err)
	assert.Contains(t, stderr, "configuration is valid")

	_, stderr, err = runCLI(t, "-src", src, "-validate", "-kind", "donut")
	require.Error(t, err)
	assert.Contains(t, stderr, "chart.kind")

	_, stderr, err = runCLI(t, "-validate")
	require.Error(t, err)
	assert.Contains(t, stderr, "source.kind")
}

func TestRun_BadFlags(t *testing.T) {
	for name, args := range map[string][]string{
		"unknown flag":    {"-bogus"},
		"bad filter":      {"-src", "x.csv", "-filter", "amount"},
		"bad operator":    {"-src", "x.csv", "-filter", "amount:about:3"},
		"zero workers":    {"-src", "x.csv", "-workers", "0"},
		"unsupported src": {"-src", "ftp://host/x.csv"},
		"missing config":  {"-config", "does-not-exist.json"},
		"missing source":  {"-src", "does-not-exist.csv"},
		"bad delimiter":   {"-src", "x.csv", "-delimiter", "colon"},
		"metrics no addr": {"-src", "x.csv", "-metrics-backend", "datadog"},
		"bad log format":  {"-src", "x.csv", "-log-format", "xml"},
		"missing scene":   {"-src", "x.csv", "-out", "out", "-svg", "nope.svg"},
		"unknown backend": {"-src", "x.csv", "-metrics-backend", "graphite"},
		"bad list":        {"-list", "does-not-exist.txt"},
		"bad encoding":    {"-src", "x.csv", "-encoding", "klingon"},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := runCLI(t, args...)
			assert.Error(t, err)
		})
	}
}

func TestRun_List(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "sales.csv", strings.ReplaceAll(salesCSV, ",", ";"))
	list := writeFile(t, dir, "sources.txt", "# nightly\n"+good+" semicolon\n"+filepath.Join(dir, "missing.csv")+"\n")

	stdout, stderr, err := runCLI(t, "-list", list, "-workers", "2", "-y", "amount", "-x", "product")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 sources failed")
	assert.Contains(t, stderr, "source failed")

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 2)
	assert.Equal(t, "sales.csv", lines[0].Source)
	assert.Empty(t, lines[0].Error)
	require.Len(t, lines[0].Series, 2)
	assert.Equal(t, "Gadget", lines[0].Series[0].Name)
	assert.InDelta(t, 12.0, lines[0].Series[0].Value, 1e-9)
	assert.NotEmpty(t, lines[1].Error)
}

func TestRun_ListSameNamedSources(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "a"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "b"), 0o755))
	a := writeFile(t, dir, filepath.Join("a", "sales.csv"), "k,v\nA,1\n")
	b := writeFile(t, dir, filepath.Join("b", "sales.csv"), "k,v\nB,2\n")
	list := writeFile(t, dir, "sources.txt", a+"\n"+b+"\n")
	out := filepath.Join(dir, "out")

	stdout, _, err := runCLI(t, "-list", list, "-out", out)
	require.NoError(t, err)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 2)
	for i, want := range []string{"k,v\nA,1\n", "k,v\nB,2\n"} {
		require.Len(t, lines[i].Files, 1, "line %d", i)
		got, err := os.ReadFile(lines[i].Files[0])
		require.NoError(t, err)
		assert.Equal(t, want, string(got))
	}
	assert.NotEqual(t, lines[0].Files[0], lines[1].Files[0])
	assert.Equal(t, "1_sales_filtered.csv", filepath.Base(lines[0].Files[0]))
}

func TestDistinctFilenames(t *testing.T) {
	arts := [][]export.Artifact{
		{{Filename: "sales_filtered.csv"}},
		{{Filename: "costs_filtered.csv"}},
		nil,
		{{Filename: "sales_filtered.csv"}},
	}
	distinctFilenames(arts)
	assert.Equal(t, "1_sales_filtered.csv", arts[0][0].Filename)
	assert.Equal(t, "costs_filtered.csv", arts[1][0].Filename)
	assert.Equal(t, "4_sales_filtered.csv", arts[3][0].Filename)
}

func TestRun_ConfigSQLite(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "shop.db")
	db, err := sql.Open("sqlite", dbPath)
	require.NoError(t, err)
	for _, stmt := range []string{
		`CREATE TABLE orders (region TEXT, amount REAL)`,
		`INSERT INTO orders VALUES ('north', 10.5), ('south', 5), ('north', 2)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	require.NoError(t, db.Close())

	job := config.Job{
		Job: "orders",
		Source: config.Source{SQL: config.SourceSQL{
			Driver: "sqlite",
			DSN:    dbPath,
			Query:  "SELECT region, amount FROM orders ORDER BY rowid",
			Name:   "orders.csv",
		}},
		Filters: []config.Filter{{Field: "region", Operator: "is equal to", Operand: "north"}},
		Chart:   config.Chart{Kind: "bar", XField: "region", YField: "amount"},
	}
	b, err := json.Marshal(job)
	require.NoError(t, err)
	cfg := writeFile(t, dir, "job.json", string(b))

	stdout, _, err := runCLI(t, "-config", cfg)
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	assert.Equal(t, "orders.csv", lines[0].Source)
	assert.Equal(t, 3, lines[0].Rows)
	assert.Equal(t, 2, lines[0].Matched)
	require.Len(t, lines[0].Series, 1)
	assert.InDelta(t, 12.5, lines[0].Series[0].Value, 1e-9)
}

func TestRun_ChartImage(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "sales.csv", salesCSV)
	scene := writeFile(t, dir, "chart.html",
		`<div class="recharts-wrapper"><svg xmlns="http://www.w3.org/2000/svg" width="40" height="20">`+
			`<rect width="40" height="20" fill="#f00"/></svg></div>`)
	out := filepath.Join(dir, "out")

	stdout, _, err := runCLI(t, "-src", src, "-out", out, "-svg", scene, "-title", "Sales 2024", "-no-table")
	require.NoError(t, err)

	lines := decodeLines(t, stdout)
	require.Len(t, lines, 1)
	require.Len(t, lines[0].Files, 1)
	assert.Equal(t, filepath.Join(out, "sales-2024.png"), lines[0].Files[0])

	png, err := os.ReadFile(lines[0].Files[0])
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG")))
	_, err = os.Stat(filepath.Join(out, "sales_filtered.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestFilterFlags_Set(t *testing.T) {
	var f filterFlags
	require.NoError(t, f.Set("amount:gt:100"))
	require.NoError(t, f.Set("note:is empty"))
	require.NoError(t, f.Set("url:starts-with:https://example.com"))
	assert.Equal(t, filterFlags{
		{Field: "amount", Operator: "greater-than", Operand: "100"},
		{Field: "note", Operator: "is-empty"},
		{Field: "url", Operator: "starts-with", Operand: "https://example.com"},
	}, f)

	assert.Error(t, f.Set("amount"))
	assert.Error(t, f.Set(":equal:x"))
	assert.Error(t, f.Set("amount:about:3"))
}

func TestSourceFromURI(t *testing.T) {
	cases := []struct {
		in      string
		want    config.Source
		wantErr bool
	}{
		{in: "data/sales.csv", want: config.Source{Kind: "file", File: config.SourceFile{Path: "data/sales.csv"}}},
		{in: "file:///tmp/a.csv", want: config.Source{Kind: "file", File: config.SourceFile{Path: "/tmp/a.csv"}}},
		{in: "https://example.com/a.csv", want: config.Source{Kind: "http", HTTP: config.SourceHTTP{URL: "https://example.com/a.csv"}}},
		{in: "s3://reports/eu/a.csv", want: config.Source{Kind: "s3", S3: config.SourceS3{Bucket: "reports", Key: "eu/a.csv"}}},
		{in: "s3://reports", wantErr: true},
		{in: "ftp://host/a.csv", wantErr: true},
	}
	for _, c := range cases {
		t.Run(c.in, func(t *testing.T) {
			got, err := sourceFromURI(c.in)
			if c.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, c.want, got)
		})
	}
}
