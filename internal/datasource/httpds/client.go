// Package httpds reads delimited input over HTTP(S). Client downloads with
// retries; URL adapts it to datasource.Source so remote exports are ingested
// like local files.
//
// Transport errors, 429 and 5xx answers are retried with a doubling delay.
// Cancelling the context stops both a running request and a pending retry.
package httpds

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"time"

	"csvviz/internal/logging"
)

const (
	defaultTimeout    = 30 * time.Second
	defaultBackoff    = 200 * time.Millisecond
	defaultMaxBackoff = 5 * time.Second

	userAgent = "csvviz"
	accept    = "text/csv, text/tab-separated-values, text/plain;q=0.9, */*;q=0.5"
)

// Config tunes a Client. Zero durations take the package defaults: 30s per
// request, 200ms first retry delay, 5s delay ceiling.
type Config struct {
	Timeout time.Duration
	// MaxRetries counts attempts after the first; zero means one attempt.
	MaxRetries int
	// Backoff is the delay before the first retry. It doubles per retry up
	// to MaxBackoff.
	Backoff    time.Duration
	MaxBackoff time.Duration
	// InsecureSkipVerify accepts self-signed export hosts.
	InsecureSkipVerify bool
	// Transport replaces the default transport; InsecureSkipVerify is then
	// up to the caller.
	Transport http.RoundTripper
}

// Client issues GET requests for delimited exports.
type Client struct {
	hc      *http.Client
	retries int
	delays  backoff

	// wait blocks between attempts; tests replace it.
	wait func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client from cfg.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = defaultBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = defaultMaxBackoff
	}
	rt := cfg.Transport
	if rt == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.InsecureSkipVerify} //nolint:gosec // opt-in
		rt = tr
	}
	return &Client{
		hc:      &http.Client{Timeout: cfg.Timeout, Transport: rt},
		retries: max(cfg.MaxRetries, 0),
		delays:  backoff{first: cfg.Backoff, ceiling: cfg.MaxBackoff},
		wait:    waitContext,
	}
}

// Get fetches url. A response with a final status, including 4xx, is
// returned as is and the caller closes its body. When retries run out on a
// transient status the error wraps ErrStatus.
func (c *Client) Get(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	if url == "" {
		return nil, errors.New("httpds: empty url")
	}
	for retry := 0; ; retry++ {
		resp, err := c.once(ctx, url, headers)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
		case transient(resp.StatusCode):
			_ = resp.Body.Close()
			err = fmt.Errorf("%w %d", ErrStatus, resp.StatusCode)
		default:
			return resp, nil
		}
		if retry >= c.retries {
			return nil, err
		}
		d := c.delays.after(retry)
		logging.Logger().Debug("httpds: retrying", "url", url, "retry", retry+1, "delay", d, "err", err)
		if err := c.wait(ctx, d); err != nil {
			return nil, err
		}
	}
}

func (c *Client) once(ctx context.Context, url string, headers http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("httpds: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	for k, vs := range headers {
		req.Header[http.CanonicalHeaderKey(k)] = vs
	}
	return c.hc.Do(req)
}

// transient reports whether a status is worth another attempt.
func transient(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

// backoff yields first, 2*first, 4*first, ... capped at ceiling.
type backoff struct {
	first, ceiling time.Duration
}

func (b backoff) after(retry int) time.Duration {
	d := b.first
	for i := 0; i < retry && d < b.ceiling; i++ {
		d *= 2
	}
	return min(d, b.ceiling)
}

func waitContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
