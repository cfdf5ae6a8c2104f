package fetch

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxBodyBytes = 8 << 20
	defaultUserAgent    = "vodcat/1.0 (+https://github.com/vmunix/vodcat)"
	maxRetryAfter       = 30 * time.Second
	retryBackoff        = time.Second
)

// ErrFetch is wrapped by every error that means "this page could not be
// retrieved": transport failures, non-200 statuses and unreadable bodies.
var ErrFetch = errors.New("fetch failed")

//go:generate mockgen -destination=mocks/fetcher_mock.go -package=mocks . Fetcher

// Fetcher retrieves a URL as a parsed document.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Document, error)
}

// Client is a polite HTTP fetcher: one shared rate limiter, an explicit
// timeout, transparent gzip/deflate/brotli decoding and a single retry on
// 429 and 5xx responses.
type Client struct {
	httpClient   *http.Client
	userAgent    string
	limiter      *rate.Limiter
	maxBodyBytes int64
	log          *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLimiter shares a rate limiter with other clients hitting the same site.
func WithLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a fetch client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: defaultTimeout},
		userAgent:    defaultUserAgent,
		maxBodyBytes: defaultMaxBodyBytes,
		log:          slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewLimiter returns a limiter allowing rps requests per second, or nil
// (unlimited) when rps is not positive.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// Wait blocks on l. A nil limiter never blocks.
func Wait(ctx context.Context, l *rate.Limiter) error {
	if l == nil {
		return nil
	}
	return l.Wait(ctx)
}

// Fetch downloads url and parses it as HTML.
func (c *Client) Fetch(ctx context.Context, url string) (Document, error) {
	body, err := c.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	doc, err := ParseHTML(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	return doc, nil
}

// GetJSON downloads url and decodes the body into v.
func (c *Client) GetJSON(ctx context.Context, url string, v any) error {
	body, err := c.Get(ctx, url)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: %s: decode json: %w", ErrFetch, url, err)
	}
	return nil
}

// Get downloads url and returns the decoded body. Any status other than 200
// is an error wrapping ErrFetch.
func (c *Client) Get(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()
	resp, err := c.do(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: status %s", ErrFetch, url, resp.Status)
	}

	body, err := c.readBody(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, url, err)
	}
	c.log.Debug("fetched", "url", url, "bytes", len(body), "duration_ms", time.Since(start).Milliseconds())
	return body, nil
}

// do performs the request, retrying once on 429 (honouring Retry-After) and
// on 5xx.
func (c *Client) do(ctx context.Context, url string) (*http.Response, error) {
	resp, err := c.send(ctx, url)
	if err != nil {
		return nil, err
	}
	code := resp.StatusCode
	if code != http.StatusTooManyRequests && code < 500 {
		return resp, nil
	}

	wait := retryBackoff
	if code == http.StatusTooManyRequests {
		wait = parseRetryAfter(resp.Header.Get("Retry-After"))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	c.log.Debug("retrying", "url", url, "status", code, "wait_ms", wait.Milliseconds())

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
	}
	return c.send(ctx, url)
}

func (c *Client) send(ctx context.Context, url string) (*http.Response, error) {
	if err := Wait(ctx, c.limiter); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/json;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	return c.httpClient.Do(req)
}

func (c *Client) readBody(resp *http.Response) ([]byte, error) {
	var r io.Reader = resp.Body
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	case "deflate":
		fl := flate.NewReader(resp.Body)
		defer fl.Close()
		r = fl
	case "br":
		r = brotli.NewReader(resp.Body)
	}

	body, err := io.ReadAll(io.LimitReader(r, c.maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(body)) > c.maxBodyBytes {
		return nil, fmt.Errorf("body exceeds %d bytes", c.maxBodyBytes)
	}
	return body, nil
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return retryBackoff
	}
	d := time.Duration(secs) * time.Second
	if d > maxRetryAfter {
		return maxRetryAfter
	}
	return d
}
