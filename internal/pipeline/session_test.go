package pipeline

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/aggregate"
	"csvviz/internal/datasource"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
)

func TestSession_NoData(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	_, err := s.View()
	require.ErrorIs(t, err, ErrNoData)
	_, err = s.Export()
	require.ErrorIs(t, err, ErrNoData)

	snap := s.Snapshot()
	assert.Empty(t, snap.Fields)
	assert.Equal(t, aggregate.Bar, snap.Chart.Kind)
}

func TestSession_IngestResetsFiltersKeepsTitle(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	s.Ingest(mustParse(t, salesCSV))
	s.SetOptions(aggregate.Options{Kind: aggregate.Pie, XField: "qty", YField: "amount", Title: "Sales"})
	_, err := s.AddFilter("region", filter.Equal, "north")
	require.NoError(t, err)

	snap := s.Ingest(mustParse(t, "city,pop\nparis,2\nlyon,1\n"))
	assert.Empty(t, snap.Filters)
	assert.Equal(t, []string{"city", "pop"}, snap.Fields)
	assert.Equal(t, "city", snap.Chart.XField)
	assert.Equal(t, "pop", snap.Chart.YField)
	assert.Equal(t, "Sales", snap.Chart.Title)
	assert.Equal(t, aggregate.Pie, snap.Chart.Kind)
}

func TestSession_FailedLoadKeepsPrevious(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	_, err := s.Load(context.Background(), datasource.NewBytes("sales.csv", []byte(salesCSV)), ingest.Options{})
	require.NoError(t, err)
	p, err := s.AddFilter("region", filter.Equal, "north")
	require.NoError(t, err)

	_, err = s.Load(context.Background(), datasource.NewBytes("bad.csv", []byte("\n\n")), ingest.Options{})
	require.Error(t, err)

	snap := s.Snapshot()
	assert.Equal(t, "sales.csv", snap.Name)
	assert.Equal(t, 4, snap.Rows)
	require.Len(t, snap.Filters, 1)
	assert.Equal(t, p.ID, snap.Filters[0].ID)
}

func TestSession_FilterLifecycle(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	s.Ingest(mustParse(t, salesCSV))
	s.SetOptions(aggregate.Options{XField: "region", YField: "amount"})

	v, err := s.View()
	require.NoError(t, err)
	assert.Equal(t, 4, v.Matched)
	assert.Equal(t, aggregate.Bar, s.Options().Kind)

	p, err := s.AddFilter("region", filter.Equal, "north")
	require.NoError(t, err)
	v, err = s.View()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Matched)

	_, err = s.AddFilter("", filter.Equal, "x")
	require.ErrorIs(t, err, filter.ErrNoField)

	assert.True(t, s.RemoveFilter(p.ID))
	assert.False(t, s.RemoveFilter(p.ID))
	v, err = s.View()
	require.NoError(t, err)
	assert.Equal(t, 4, v.Matched)

	preds, err := s.SetFilters([]filter.Predicate{
		{Field: "qty", Operator: filter.GreaterThan, Operand: "1"},
		{Field: "amount", Operator: filter.IsNotEmpty},
	})
	require.NoError(t, err)
	require.Len(t, preds, 2)
	assert.NotEmpty(t, preds[0].ID)
	v, err = s.View()
	require.NoError(t, err)
	assert.Equal(t, 2, v.Matched)

	_, err = s.SetFilters([]filter.Predicate{{Field: ""}})
	require.Error(t, err)
	assert.Len(t, s.Snapshot().Filters, 2)

	s.ClearFilters()
	assert.Empty(t, s.Snapshot().Filters)
}

func TestSession_ExportUsesLoadedDelimiter(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	_, err := s.Load(context.Background(),
		datasource.NewBytes("q1.csv", []byte("name;score\nann;3\nbob;1\n")),
		ingest.Options{})
	require.NoError(t, err)
	_, err = s.AddFilter("score", filter.GreaterThan, "2")
	require.NoError(t, err)

	a, err := s.Export()
	require.NoError(t, err)
	assert.Equal(t, "q1_filtered.csv", a.Filename)
	assert.Equal(t, "name;score\nann;3\n", string(a.Data))
}

func TestSession_Reset(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	s.Ingest(mustParse(t, salesCSV))
	s.Reset()
	_, ok := s.Result()
	assert.False(t, ok)
	_, err := s.View()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestSession_Concurrent(t *testing.T) {
	t.Parallel()

	s := NewSession("j")
	s.Ingest(mustParse(t, salesCSV))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.AddFilter("region", filter.Contains, strings.Repeat("o", i%2))
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := s.View(); err != nil {
				t.Error(err)
			}
			s.RemoveFilter(p.ID)
		}(i)
	}
	wg.Wait()
	assert.Empty(t, s.Snapshot().Filters)
}

func TestSession_ExportMatchesIngestedTable(t *testing.T) {
	t.Parallel()

	parse := func(name, raw string, d ingest.Delimiter) ingest.Result {
		p, err := ingest.Parse([]byte(raw), d)
		require.NoError(t, err)
		return ingest.Result{Parsed: p, Name: name}
	}
	tables := []ingest.Result{
		parse("a.csv", "k,v\nA,1\n", ingest.Comma),
		parse("b.csv", "k;v\nB;2\n", ingest.Semicolon),
	}
	want := map[string]string{
		"a_filtered.csv": "k,v\nA,1\n",
		"b_filtered.csv": "k;v\nB;2\n",
	}

	s := NewSession("j")
	s.Ingest(tables[0])

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			s.Ingest(tables[i%2])
		}
	}()
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				a, err := s.Export()
				if err != nil {
					t.Error(err)
					return
				}
				if got := string(a.Data); got != want[a.Filename] {
					t.Errorf("%s holds %q", a.Filename, got)
					return
				}
			}
		}()
	}
	wg.Wait()
}
