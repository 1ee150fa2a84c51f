package httpds

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrStatus is wrapped by URL.Open when the server answers with a final
// non-2xx status.
var ErrStatus = errors.New("httpds: unexpected status")

// URL is a datasource.Source backed by an HTTP GET.
type URL struct {
	client  *Client
	raw     string
	headers http.Header
}

// NewURL binds raw to c. A nil c gets a client with default settings.
func NewURL(c *Client, raw string, headers http.Header) *URL {
	if c == nil {
		c = NewClient(Config{})
	}
	return &URL{client: c, raw: raw, headers: headers}
}

// Name implements datasource.Named.
func (u *URL) Name() string { return FileName(u.raw) }

// String returns the URL as configured.
func (u *URL) String() string { return u.raw }

// Open issues the GET and returns the response body.
func (u *URL) Open(ctx context.Context) (io.ReadCloser, error) {
	resp, err := u.client.Get(ctx, u.raw, u.headers)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", u.raw, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("get %s: %w %d", u.raw, ErrStatus, resp.StatusCode)
	}
	return resp.Body, nil
}

// Peek returns up to n leading bytes without downloading the whole export.
func (u *URL) Peek(ctx context.Context, n int) ([]byte, error) {
	return u.client.Prefix(ctx, u.raw, n)
}
