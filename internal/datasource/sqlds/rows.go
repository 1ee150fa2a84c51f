package sqlds

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"csvviz/internal/coerce"
	"csvviz/internal/logging"
)

// Rows is the cursor shape WriteRows consumes. *sql.Rows satisfies it via
// SQLRows; pgx rows adapt with a few lines.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Values() ([]any, error)
	Err() error
}

// progressEvery is the row interval between progress log lines.
const progressEvery = 10000

// WriteRows renders rows as CSV (header first) and returns the number of data
// rows written. Cancellation is checked between rows.
func WriteRows(ctx context.Context, rows Rows, w io.Writer) (int64, error) {
	cols, err := rows.Columns()
	if err != nil {
		return 0, fmt.Errorf("columns: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(cols); err != nil {
		return 0, err
	}

	var (
		total int64
		start = time.Now()
		rec   = make([]string, len(cols))
	)
	for rows.Next() {
		if err := ctx.Err(); err != nil {
			return total, err
		}
		vals, err := rows.Values()
		if err != nil {
			return total, fmt.Errorf("row %d: %w", total+1, err)
		}
		for i := range rec {
			rec[i] = ""
			if i < len(vals) {
				rec[i] = cell(vals[i])
			}
		}
		if err := cw.Write(rec); err != nil {
			return total, err
		}
		total++
		if total%progressEvery == 0 {
			cw.Flush()
			elapsed := time.Since(start)
			logging.Logger().Debug("sqlds: export progress",
				"rows", total, "rps", int64(float64(total)/elapsed.Seconds()),
				"elapsed", elapsed.Truncate(time.Millisecond))
		}
	}
	if err := rows.Err(); err != nil {
		return total, err
	}
	cw.Flush()
	return total, cw.Error()
}

// cell renders one driver value the way a spreadsheet export would.
func cell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 && t.Nanosecond() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case driver.Valuer:
		dv, err := t.Value()
		if err != nil {
			return ""
		}
		if _, again := dv.(driver.Valuer); again {
			return fmt.Sprint(dv)
		}
		return cell(dv)
	}
	return coerce.String(v)
}

// SQLRows adapts *sql.Rows to Rows.
type SQLRows struct {
	*sql.Rows
	dest []any
}

// Values scans the current row into fresh holders.
func (r *SQLRows) Values() ([]any, error) {
	if r.dest == nil {
		cols, err := r.Rows.Columns()
		if err != nil {
			return nil, err
		}
		r.dest = make([]any, len(cols))
	}
	holders := make([]any, len(r.dest))
	for i := range holders {
		holders[i] = &r.dest[i]
	}
	if err := r.Rows.Scan(holders...); err != nil {
		return nil, err
	}
	return r.dest, nil
}

// DBExporter runs a query through database/sql. The sqlite, mssql and mysql
// backends use it as is.
type DBExporter struct {
	DB    *sql.DB
	Query string
	Args  []any
}

// Export implements Exporter.
func (e *DBExporter) Export(ctx context.Context, w io.Writer) (int64, error) {
	rows, err := e.DB.QueryContext(ctx, e.Query, e.Args...)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	return WriteRows(ctx, &SQLRows{Rows: rows}, w)
}

// Close implements Exporter.
func (e *DBExporter) Close() error { return e.DB.Close() }
