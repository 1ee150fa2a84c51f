// Package mssql registers the "mssql" query source (go-mssqldb).
package mssql

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"

	"csvviz/internal/datasource/sqlds"
)

func init() {
	sqlds.Register("mssql", open)
	sqlds.Register("sqlserver", open)
}

func open(ctx context.Context, cfg sqlds.Config) (sqlds.Exporter, error) {
	if _, err := msdsn.Parse(cfg.DSN); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &sqlds.DBExporter{DB: db, Query: cfg.Query, Args: cfg.Args}, nil
}
