// Package pipeline composes the engines: a loaded Table is filtered and then
// aggregated into a chart series. Every recomputation starts from the full
// Table; nothing is cached between runs.
package pipeline

import (
	"context"
	"time"

	"csvviz/internal/aggregate"
	"csvviz/internal/datasource"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
	"csvviz/internal/metrics"
	"csvviz/internal/records"
)

// View is everything a chart and its data table need after one run.
type View struct {
	Filtered records.Table
	Series   []aggregate.Point
	Colors   []string
	// Total is the row count before filtering, Matched after.
	Total   int
	Matched int
}

// Load reads and parses src, recording the ingest step and row counts under
// job.
func Load(ctx context.Context, job string, src datasource.Source, opt ingest.Options) (ingest.Result, error) {
	start := time.Now()
	res, err := ingest.Load(ctx, src, opt)
	metrics.RecordStep(job, "ingest", err, time.Since(start))
	if err != nil {
		return ingest.Result{}, err
	}
	metrics.RecordRows(job, metrics.RowsIngested, res.Table.Len())
	metrics.RecordRows(job, metrics.RowsDroppedBlank, res.Blank)
	metrics.RecordRows(job, metrics.RowsSkipped, res.Skipped)
	return res, nil
}

// Run filters t with preds and aggregates the survivors with o.
func Run(job string, t records.Table, preds []filter.Predicate, o aggregate.Options) View {
	start := time.Now()
	filtered := filter.Apply(t, preds)
	metrics.RecordStep(job, "filter", nil, time.Since(start))
	metrics.RecordRows(job, metrics.RowsFilteredOut, t.Len()-filtered.Len())

	start = time.Now()
	series := aggregate.Aggregate(filtered, o)
	metrics.RecordStep(job, "aggregate", nil, time.Since(start))
	metrics.RecordRows(job, metrics.SeriesPoints, len(series))

	logging.Logger().Debug("pipeline: recomputed",
		"job", job,
		"predicates", len(preds),
		"rows", t.Len(),
		"matched", filtered.Len(),
		"kind", o.Kind,
		"points", len(series),
	)

	return View{
		Filtered: filtered,
		Series:   series,
		Colors:   aggregate.Colors(o, series),
		Total:    t.Len(),
		Matched:  filtered.Len(),
	}
}
