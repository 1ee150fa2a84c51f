// Package sqlite registers the "sqlite" query source (modernc.org/sqlite,
// pure Go). DSN is a file path or a "file:" URI.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"csvviz/internal/datasource/sqlds"
)

func init() {
	sqlds.Register("sqlite", open)
}

func open(ctx context.Context, cfg sqlds.Config) (sqlds.Exporter, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}
	_, _ = db.ExecContext(ctx, "PRAGMA query_only = ON;")

	return &sqlds.DBExporter{DB: db, Query: cfg.Query, Args: cfg.Args}, nil
}
