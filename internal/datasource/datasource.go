// Package datasource defines where delimited input comes from. A Source hands
// the ingest layer a byte stream; concrete sources live in subpackages.
package datasource

import (
	"context"
	"io"
	"path"
	"strings"
)

// Source opens a fresh stream each time it is called.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Named is implemented by sources that know a display file name. The export
// stage derives the "_filtered.csv" name from it.
type Named interface {
	Name() string
}

// NameOf returns src's display name, or fallback when src does not carry one.
func NameOf(src Source, fallback string) string {
	if n, ok := src.(Named); ok {
		if name := strings.TrimSpace(n.Name()); name != "" {
			return name
		}
	}
	return fallback
}

// BaseName returns the last element of a slash or OS separated path, dropping
// any query string or fragment.
func BaseName(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimRight(p, "/")
	if p == "" {
		return ""
	}
	b := path.Base(p)
	if b == "." || b == "/" {
		return ""
	}
	return b
}
