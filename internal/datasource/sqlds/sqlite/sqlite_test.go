package sqlite

import (
	"context"
	"database/sql"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"csvviz/internal/datasource/sqlds"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shop.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	for _, stmt := range []string{
		`CREATE TABLE orders (region TEXT, amount REAL, qty INTEGER)`,
		`INSERT INTO orders VALUES ('north', 10.5, 2), ('south', 5, 1), ('east', NULL, 3)`,
	} {
		_, err := db.Exec(stmt)
		require.NoError(t, err)
	}
	return path
}

func TestSource_ExportsQueryAsCSV(t *testing.T) {
	t.Parallel()

	src, err := sqlds.New(sqlds.Config{
		Kind:  "sqlite",
		DSN:   seed(t),
		Query: "SELECT region, amount, qty FROM orders WHERE qty >= ? ORDER BY rowid",
		Args:  []any{2},
	})
	require.NoError(t, err)

	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "region,amount,qty\nnorth,10.5,2\neast,,3\n", string(got))
}

func TestSource_BadQuery(t *testing.T) {
	t.Parallel()

	src, err := sqlds.New(sqlds.Config{Kind: "sqlite", DSN: seed(t), Query: "SELECT * FROM missing"})
	require.NoError(t, err)

	rc, err := src.Open(context.Background())
	require.NoError(t, err)
	defer rc.Close()

	_, err = io.ReadAll(rc)
	assert.ErrorContains(t, err, "missing")
}

func TestOpen_EmptyDSN(t *testing.T) {
	t.Parallel()

	_, err := open(context.Background(), sqlds.Config{Query: "SELECT 1"})
	assert.ErrorContains(t, err, "DSN must not be empty")
}
