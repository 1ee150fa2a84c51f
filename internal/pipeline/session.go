package pipeline

import (
	"context"
	"errors"
	"sync"

	"csvviz/internal/aggregate"
	"csvviz/internal/datasource"
	"csvviz/internal/export"
	"csvviz/internal/filter"
	"csvviz/internal/ingest"
	"csvviz/internal/logging"
)

// ErrNoData is returned by operations that need a loaded table.
var ErrNoData = errors.New("pipeline: no data loaded")

// Snapshot describes a session without its rows.
type Snapshot struct {
	Name      string             `json:"name"`
	Fields    []string           `json:"fields"`
	Axes      ingest.Axes        `json:"axes"`
	Delimiter string             `json:"delimiter"`
	Rows      int                `json:"rows"`
	Filters   []filter.Predicate `json:"filters"`
	Chart     aggregate.Options  `json:"chart"`
}

// Session is one user's working state: the current table, its predicates and
// chart options. All methods are safe for concurrent use.
type Session struct {
	job string

	mu      sync.Mutex
	loaded  bool
	res     ingest.Result
	filters filter.List
	opts    aggregate.Options
}

// NewSession returns an empty session whose metrics are labelled job.
// Charts default to bars.
func NewSession(job string) *Session {
	return &Session{job: job, opts: aggregate.Options{Kind: aggregate.Bar}}
}

// Load reads src and, on success, installs it as the current table. On
// failure the previous table, filters and options are kept.
func (s *Session) Load(ctx context.Context, src datasource.Source, opt ingest.Options) (Snapshot, error) {
	res, err := Load(ctx, s.job, src, opt)
	if err != nil {
		logging.Logger().Warn("pipeline: load failed, keeping previous table",
			"job", s.job, "source", datasource.NameOf(src, ""), "err", err)
		return Snapshot{}, err
	}
	return s.Ingest(res), nil
}

// Ingest replaces the current table with res. Filters are cleared and the
// axes reset to the table's defaults; chart kind, title and colors persist.
func (s *Session) Ingest(res ingest.Result) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.res = res
	s.loaded = true
	s.filters.Clear()
	s.opts.XField = res.Axes.X
	s.opts.YField = res.Axes.Y
	return s.snapshotLocked()
}

// AddFilter appends a predicate and returns it with its new ID.
func (s *Session) AddFilter(field string, op filter.Operator, operand string) (filter.Predicate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Add(field, op, operand)
}

// RemoveFilter drops the predicate with id and reports whether it existed.
func (s *Session) RemoveFilter(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filters.Remove(id)
}

// SetFilters replaces every predicate with preds. New IDs are assigned.
// Nothing changes when one of them is rejected.
func (s *Session) SetFilters(preds []filter.Predicate) ([]filter.Predicate, error) {
	var next filter.List
	for _, p := range preds {
		if _, err := next.Add(p.Field, p.Operator, p.Operand); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters = next
	return s.filters.Predicates(), nil
}

// ClearFilters removes every predicate.
func (s *Session) ClearFilters() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.Clear()
}

// SetOptions replaces the chart options. An empty Kind keeps the current one.
func (s *Session) SetOptions(o aggregate.Options) aggregate.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o.Kind == "" {
		o.Kind = s.opts.Kind
	}
	s.opts = o
	return s.opts
}

// Options returns the current chart options.
func (s *Session) Options() aggregate.Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.opts
}

// View recomputes the filtered table and chart series.
func (s *Session) View() (View, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return View{}, ErrNoData
	}
	t := s.res.Table
	preds := s.filters.Predicates()
	o := s.opts
	s.mu.Unlock()

	return Run(s.job, t, preds, o), nil
}

// Export serializes the filtered table with the delimiter it was loaded with.
// The table, predicates, options and name are read together so a concurrent
// Ingest cannot pair one table's rows with another's name.
func (s *Session) Export() (export.Artifact, error) {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return export.Artifact{}, ErrNoData
	}
	res := s.res
	preds := s.filters.Predicates()
	o := s.opts
	s.mu.Unlock()

	v := Run(s.job, res.Table, preds, o)
	return export.Table(v.Filtered, res.Name, res.Delimiter)
}

// Snapshot returns the session's metadata.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		Filters: s.filters.Predicates(),
		Chart:   s.opts,
	}
	if s.loaded {
		snap.Name = s.res.Name
		snap.Fields = append([]string(nil), s.res.Table.Fields...)
		snap.Axes = s.res.Axes
		snap.Delimiter = s.res.Delimiter.String()
		snap.Rows = s.res.Table.Len()
	}
	return snap
}

// Result returns the loaded table, unfiltered, and how it was obtained.
func (s *Session) Result() (ingest.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.res, s.loaded
}

// Reset drops the table, predicates and options.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res = ingest.Result{}
	s.loaded = false
	s.filters.Clear()
	s.opts = aggregate.Options{Kind: aggregate.Bar}
}
