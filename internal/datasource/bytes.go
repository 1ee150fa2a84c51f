package datasource

import (
	"bytes"
	"context"
	"io"
)

// Bytes is an in-memory Source, used for uploaded files.
type Bytes struct {
	name string
	data []byte
}

// NewBytes wraps data; name is reported through Named.
func NewBytes(name string, data []byte) *Bytes {
	return &Bytes{name: name, data: data}
}

// Name returns the display name given to NewBytes.
func (b *Bytes) Name() string { return b.name }

// Open returns a reader over the data. Each call starts from the beginning.
func (b *Bytes) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(b.data)), nil
}

// Peek returns up to n leading bytes.
func (b *Bytes) Peek(ctx context.Context, n int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if n > len(b.data) {
		n = len(b.data)
	}
	return b.data[:n], nil
}
