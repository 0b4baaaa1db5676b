// Package fetch provides the single shared HTTP transport handle used by
// every adapter, resolver and notifier in the process. It is deliberately
// thin: one GET and one JSON POST, a fixed per-request timeout, and a typed
// error for non-2xx responses. Storefront-specific headers belong to the
// callers, not here.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const defaultTimeout = 20 * time.Second

// Browser-shaped default UA; storefront APIs reject obvious bot agents.
const defaultUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// StatusError reports a non-2xx response. The body is not interpreted here;
// callers decide whether a 404 means "rotated endpoint" or "no such item".
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http status %d from %s", e.StatusCode, e.URL)
}

// StatusCode extracts the status code from an error chain. Returns 0 when
// the error is not a StatusError (connection failures, timeouts).
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Options configures a Client.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	Logger    zerolog.Logger
}

// Client is the process-wide transport handle. Construct once, pass
// explicitly to every component that performs network I/O.
type Client struct {
	http      *http.Client
	userAgent string
	log       zerolog.Logger
}

// New builds a Client. A zero Timeout falls back to 20s.
func New(opts Options) *Client {
	to := opts.Timeout
	if to <= 0 {
		to = defaultTimeout
	}
	ua := strings.TrimSpace(opts.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: to},
		userAgent: ua,
		log:       opts.Logger,
	}
}

// Get issues a GET with the given extra headers and query parameters and
// returns the response body. Non-2xx responses return the body alongside a
// StatusError so callers can still inspect error payloads.
func (c *Client) Get(ctx context.Context, rawURL string, header http.Header, params url.Values) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c.applyHeaders(req, header)
	return c.do(req)
}

// PostJSON issues a POST with a JSON-encoded payload.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.applyHeaders(req, nil)
	return c.do(req)
}

func (c *Client) applyHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("User-Agent", c.userAgent)
	for k, vs := range extra {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	b, readErr := io.ReadAll(resp.Body)
	c.log.Debug().
		Str("method", req.Method).
		Stringer("url", req.URL).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return b, &StatusError{URL: req.URL.String(), StatusCode: resp.StatusCode}
	}
	if readErr != nil {
		return nil, fmt.Errorf("read body from %s: %w", req.URL, readErr)
	}
	return b, nil
}
