// Package postgres registers the "postgres" query source. Plain queries are
// exported server-side with COPY ... TO STDOUT in CSV format; queries with
// bind arguments go through a regular cursor since COPY takes no parameters.
package postgres

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/jackc/pgx/v5"

	"csvviz/internal/datasource/sqlds"
)

func init() {
	sqlds.Register("postgres", open)
	sqlds.Register("postgresql", open)
}

type exporter struct {
	conn  *pgx.Conn
	query string
	args  []any
}

func open(ctx context.Context, cfg sqlds.Config) (sqlds.Exporter, error) {
	conn, err := pgx.Connect(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pgx connect: %w", err)
	}
	return &exporter{conn: conn, query: cfg.Query, args: cfg.Args}, nil
}

// copyStatement wraps query in a COPY to STDOUT with a CSV header.
func copyStatement(query string) string {
	q := strings.TrimSpace(query)
	q = strings.TrimRight(q, ";")
	return "COPY (" + q + ") TO STDOUT WITH (FORMAT csv, HEADER true)"
}

func (e *exporter) Export(ctx context.Context, w io.Writer) (int64, error) {
	if len(e.args) == 0 {
		tag, err := e.conn.PgConn().CopyTo(ctx, w, copyStatement(e.query))
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}

	rows, err := e.conn.Query(ctx, e.query, e.args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	return sqlds.WriteRows(ctx, pgxRows{rows}, w)
}

func (e *exporter) Close() error {
	return e.conn.Close(context.Background())
}

// pgxRows adapts pgx.Rows to sqlds.Rows.
type pgxRows struct{ pgx.Rows }

func (r pgxRows) Columns() ([]string, error) {
	fds := r.FieldDescriptions()
	out := make([]string, len(fds))
	for i, fd := range fds {
		out[i] = fd.Name
	}
	return out, nil
}
