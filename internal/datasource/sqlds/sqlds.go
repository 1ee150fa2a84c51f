// Package sqlds turns a SQL query into a delimited byte stream so query
// results can be ingested like any uploaded file.
//
// Backends register a Factory under a kind name ("postgres", "sqlite",
// "mssql", "mysql") from their init functions; importing
// csvviz/internal/datasource/sqlds/all enables every built-in backend.
// Callers stay backend-agnostic:
//
//	src, err := sqlds.New(sqlds.Config{Kind: "sqlite", DSN: "sales.db",
//	    Query: "SELECT region, amount FROM orders"})
//	res, err := ingest.Load(ctx, src, ingest.Options{})
package sqlds

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"csvviz/internal/logging"
)

// Config describes one query.
type Config struct {
	Kind  string
	DSN   string
	Query string
	Args  []any
	// Name is the display file name of the result set; "query.csv" when empty.
	Name string
}

// Exporter runs the configured query and writes the result to w as CSV with
// a header row, returning the number of data rows written.
type Exporter interface {
	Export(ctx context.Context, w io.Writer) (int64, error)
	Close() error
}

// Factory opens an Exporter for cfg.
type Factory func(ctx context.Context, cfg Config) (Exporter, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register installs (or replaces) the factory for kind.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// ListKinds returns the registered kinds, sorted.
func ListKinds() []string {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func lookup(kind string) (Factory, bool) {
	mu.RLock()
	defer mu.RUnlock()
	f, ok := factories[strings.ToLower(kind)]
	return f, ok
}

// Source is a datasource.Source over a query. Each Open runs the query again.
type Source struct {
	cfg     Config
	factory Factory
}

// New validates cfg against the registry. No connection is made until Open.
func New(cfg Config) (*Source, error) {
	if strings.TrimSpace(cfg.Query) == "" {
		return nil, fmt.Errorf("sqlds: query must not be empty")
	}
	f, ok := lookup(cfg.Kind)
	if !ok {
		return nil, fmt.Errorf("sqlds: unsupported kind %q (registered: %s)",
			cfg.Kind, strings.Join(ListKinds(), ", "))
	}
	return &Source{cfg: cfg, factory: f}, nil
}

// Name implements datasource.Named.
func (s *Source) Name() string {
	if n := strings.TrimSpace(s.cfg.Name); n != "" {
		return n
	}
	return "query.csv"
}

// Open connects, starts the query and streams its CSV rendering. Query errors
// surface from Read on the returned stream.
func (s *Source) Open(ctx context.Context) (io.ReadCloser, error) {
	ex, err := s.factory(ctx, s.cfg)
	if err != nil {
		return nil, fmt.Errorf("sqlds: open %s: %w", s.cfg.Kind, err)
	}

	pr, pw := io.Pipe()
	go func() {
		n, err := ex.Export(ctx, pw)
		if cerr := ex.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			err = fmt.Errorf("sqlds: %s query: %w", s.cfg.Kind, err)
		} else {
			logging.Logger().Debug("sqlds: query exported", "kind", s.cfg.Kind, "rows", n)
		}
		_ = pw.CloseWithError(err)
	}()
	return pr, nil
}
