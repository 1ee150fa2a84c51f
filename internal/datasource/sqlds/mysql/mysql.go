// Package mysql registers the "mysql" query source (go-sql-driver/mysql).
package mysql

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"csvviz/internal/datasource/sqlds"
)

func init() {
	sqlds.Register("mysql", open)
}

// dsn parses raw and forces parseTime so DATETIME columns arrive as time.Time.
func dsn(raw string) (string, error) {
	c, err := mysql.ParseDSN(raw)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	c.ParseTime = true
	return c.FormatDSN(), nil
}

func open(ctx context.Context, cfg sqlds.Config) (sqlds.Exporter, error) {
	d, err := dsn(cfg.DSN)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("mysql", d)
	if err != nil {
		return nil, fmt.Errorf("sql.Open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	return &sqlds.DBExporter{DB: db, Query: cfg.Query, Args: cfg.Args}, nil
}
