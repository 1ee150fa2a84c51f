package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"csvviz/internal/aggregate"
	"csvviz/internal/config"
	"csvviz/internal/datasource"
	"csvviz/internal/datasource/file"
	"csvviz/internal/datasource/httpds"
	"csvviz/internal/datasource/resolve"
	"csvviz/internal/datasource/s3ds"
	"csvviz/internal/export"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
	"csvviz/internal/metrics"
	"csvviz/internal/pipeline"
)

// result is the JSON line printed for each source.
type result struct {
	Source  string            `json:"source"`
	Rows    int               `json:"rows"`
	Matched int               `json:"matched"`
	Kind    aggregate.Kind    `json:"kind,omitempty"`
	X       string            `json:"x,omitempty"`
	Y       string            `json:"y,omitempty"`
	Series  []aggregate.Point `json:"series,omitempty"`
	Colors  []string          `json:"colors,omitempty"`
	Profile []ingest.Column   `json:"profile,omitempty"`
	Files   []string          `json:"files,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// runner executes one job against one or many sources.
type runner struct {
	job     config.Job
	env     config.Env
	profile bool

	preds []filter.Predicate
	chart aggregate.Options
	parse ingest.Options

	sink  sink
	scene []byte
	out   *json.Encoder
}

func newRunner(job config.Job, env config.Env, opt options, stdout io.Writer) (*runner, error) {
	r := &runner{job: job, env: env, profile: opt.profile, out: json.NewEncoder(stdout)}

	var err error
	if r.preds, err = job.Predicates(); err != nil {
		return nil, err
	}
	if r.chart, err = job.Chart.Options(); err != nil {
		return nil, err
	}
	if r.parse, err = job.Parser.IngestOptions(); err != nil {
		return nil, err
	}
	if job.Export.Scene != "" {
		if r.scene, err = os.ReadFile(job.Export.Scene); err != nil {
			return nil, fmt.Errorf("read scene: %w", err)
		}
	}
	if job.Export.Dir != "" {
		if r.sink, err = newSink(job.Export.Dir, r.s3Config()); err != nil {
			return nil, err
		}
		logging.Logger().Debug("artifacts", "dest", r.sink.String())
	}
	return r, nil
}

// single runs the job's own source.
func (r *runner) single(ctx context.Context) error {
	src, err := resolve.FromConfig(r.job.Source)
	if err != nil {
		return err
	}
	res, arts, err := r.process(ctx, src, r.parse)
	if err != nil {
		return err
	}
	if a, ok := r.chartArtifact(ctx); ok {
		arts = append(arts, a)
	}
	res.Files, err = r.write(ctx, arts)
	if encErr := r.out.Encode(res); encErr != nil && err == nil {
		err = encErr
	}
	return err
}

// batch processes entries with at most workers in flight. A failing source
// is logged and reported in its output line; the others still run.
func (r *runner) batch(ctx context.Context, entries []file.Entry, workers int) error {
	results := make([]result, len(entries))
	artifacts := make([][]export.Artifact, len(entries))
	var failed atomic.Int32

	var g errgroup.Group
	g.SetLimit(workers)
	for i, e := range entries {
		g.Go(func() error {
			res, arts, err := r.processEntry(ctx, e)
			if err != nil {
				failed.Add(1)
				logging.Logger().Error("source failed", "source", e.URI, "err", err)
				res = result{Source: e.URI, Error: err.Error()}
			}
			results[i], artifacts[i] = res, arts
			return nil
		})
	}
	_ = g.Wait()

	distinctFilenames(artifacts)
	var all []export.Artifact
	var owner []int
	for i, arts := range artifacts {
		for range arts {
			owner = append(owner, i)
		}
		all = append(all, arts...)
	}
	if a, ok := r.chartArtifact(ctx); ok {
		all = append(all, a)
	}
	dests, err := r.write(ctx, all)
	if err != nil {
		return err
	}
	for k, i := range owner {
		if k < len(dests) {
			results[i].Files = append(results[i].Files, dests[k])
		}
	}

	for _, res := range results {
		if err := r.out.Encode(res); err != nil {
			return err
		}
	}
	if n := failed.Load(); n > 0 {
		return fmt.Errorf("%d of %d sources failed", n, len(entries))
	}
	return nil
}

// distinctFilenames prefixes an artifact's name with its entry's 1-based list
// position when another entry produced the same name, as happens for
// a/sales.csv and b/sales.csv.
func distinctFilenames(artifacts [][]export.Artifact) {
	count := make(map[string]int)
	for _, arts := range artifacts {
		for _, a := range arts {
			count[a.Filename]++
		}
	}
	for i, arts := range artifacts {
		for j, a := range arts {
			if count[a.Filename] > 1 {
				arts[j].Filename = fmt.Sprintf("%d_%s", i+1, a.Filename)
			}
		}
	}
}

func (r *runner) processEntry(ctx context.Context, e file.Entry) (result, []export.Artifact, error) {
	src, err := resolve.FromURI(e.URI, resolve.Options{
		HTTP: httpds.Config{
			Timeout:            time.Duration(r.job.Source.HTTP.TimeoutSeconds) * time.Second,
			MaxRetries:         r.job.Source.HTTP.MaxRetries,
			InsecureSkipVerify: r.job.Source.HTTP.Insecure,
		},
		S3: r.s3Config(),
	})
	if err != nil {
		return result{}, nil, err
	}
	opt := r.parse
	if e.Delimiter != "" {
		if opt.Delimiter, err = ingest.ParseDelimiter(e.Delimiter); err != nil {
			return result{}, nil, err
		}
	}
	return r.process(ctx, src, opt)
}

// process loads src and runs the filter and aggregate steps over it.
func (r *runner) process(ctx context.Context, src datasource.Source, opt ingest.Options) (result, []export.Artifact, error) {
	loaded, err := pipeline.Load(ctx, r.job.Job, src, opt)
	if err != nil {
		return result{}, nil, err
	}
	t := loaded.Table
	out := result{Source: loaded.Name, Rows: t.Len()}
	if r.profile {
		out.Profile = ingest.Profile(t)
		return out, nil, nil
	}

	for _, err := range filter.Validate(r.preds, t.Fields) {
		logging.Logger().Warn("filter ignored", "source", loaded.Name, "err", err)
	}
	o := r.chart
	if o.XField == "" {
		o.XField = loaded.Axes.X
	}
	if o.YField == "" {
		o.YField = loaded.Axes.Y
	}
	for _, f := range []string{o.XField, o.YField} {
		if !t.HasField(f) {
			logging.Logger().Warn("chart field not in table", "source", loaded.Name, "field", f)
		}
	}

	v := pipeline.Run(r.job.Job, t, r.preds, o)
	out.Matched = v.Matched
	out.Kind, out.X, out.Y = o.Kind, o.XField, o.YField
	out.Series, out.Colors = v.Series, v.Colors

	if r.sink == nil || r.job.Export.SkipTable {
		return out, nil, nil
	}
	a, err := export.Table(v.Filtered, loaded.Name, loaded.Delimiter)
	if err != nil {
		return result{}, nil, err
	}
	return out, []export.Artifact{a}, nil
}

// chartArtifact rasterizes the scene; when that is not possible the scene is
// kept as an SVG download instead.
func (r *runner) chartArtifact(ctx context.Context) (export.Artifact, bool) {
	if r.sink == nil || r.scene == nil || r.profile {
		return export.Artifact{}, false
	}
	if a, ok := export.Raster(ctx, r.scene, r.job.Chart.Title); ok {
		return a, true
	}
	return export.SVG(r.scene, r.job.Chart.Title), true
}

// write stores arts concurrently and returns their destinations in order.
func (r *runner) write(ctx context.Context, arts []export.Artifact) ([]string, error) {
	if r.sink == nil || len(arts) == 0 {
		return nil, nil
	}
	names := make([]string, len(arts))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range arts {
		g.Go(func() error {
			dest, err := r.sink.Put(gctx, a)
			if err != nil {
				return err
			}
			metrics.RecordExport(r.job.Job, strings.TrimPrefix(path.Ext(a.Filename), "."), len(a.Data))
			logging.Logger().Info("wrote", "dest", dest, "size", humanize.Bytes(uint64(len(a.Data))))
			mu.Lock()
			names[i] = dest
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

// s3Config returns connection settings for s3:// sources and outputs: the
// job's S3 block when the job reads from S3, else the environment.
func (r *runner) s3Config() s3ds.Config {
	if r.job.Source.Kind == "s3" {
		return resolve.S3Config(r.job.Source.S3)
	}
	endpoint, region, access, secret := r.env.S3Credentials()
	cfg := s3ds.Config{Region: region, AccessKey: access, SecretKey: secret, UseSSL: true}
	if rest, ok := strings.CutPrefix(endpoint, "http://"); ok {
		cfg.Endpoint, cfg.UseSSL = rest, false
	} else {
		cfg.Endpoint = strings.TrimPrefix(endpoint, "https://")
	}
	return cfg
}
