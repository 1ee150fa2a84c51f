package httpds

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
)

// Prefix returns at most n leading bytes of url. It sends a Range header and
// caps the read as well, because many export servers ignore Range.
func (c *Client) Prefix(ctx context.Context, url string, n int) ([]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("httpds: prefix length must be positive, got %d", n)
	}
	resp, err := c.Get(ctx, url, http.Header{"Range": {"bytes=0-" + strconv.Itoa(n-1)}})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("peek %s: %w %d", url, ErrStatus, resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, int64(n)))
}
