package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"csvviz/internal/datasource"
)

// SniffBytes is how much of the input Sniff looks at.
const SniffBytes = 8 << 10

// Peeker is implemented by sources that can fetch a prefix cheaply, such as
// an HTTP source using a Range request.
type Peeker interface {
	Peek(ctx context.Context, n int) ([]byte, error)
}

// Sniff guesses the delimiter of src from its first line: the candidate that
// occurs most often wins, with ties broken in the order comma, semicolon, tab,
// pipe. Comma is returned when none occurs.
func Sniff(ctx context.Context, src datasource.Source) (Delimiter, error) {
	head, err := peek(ctx, src, SniffBytes)
	if err != nil {
		return 0, fmt.Errorf("ingest: sniff %s: %w", datasource.NameOf(src, "input"), err)
	}
	head = bytes.TrimPrefix(head, []byte(utf8BOM))
	d, _ := mostFrequent(head)
	return d, nil
}

func peek(ctx context.Context, src datasource.Source, n int) ([]byte, error) {
	if p, ok := src.(Peeker); ok {
		return p.Peek(ctx, n)
	}
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(rc, int64(n))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
