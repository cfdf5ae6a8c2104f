// Package resolver turns content ids into stream ids by probing the site's
// stream proxy: the proxy answers with a redirect whose Location header names
// the stream. The redirect is read, never followed.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/vmunix/vodcat/internal/catalog"
	"github.com/vmunix/vodcat/internal/fetch"
	"github.com/vmunix/vodcat/pkg/contentid"
)

const (
	// DefaultProxyTemplate is the forja.ma stream proxy.
	DefaultProxyTemplate = "https://api.forja.ma/pages/proxy/content/{cuid}/stream_url?lang=fr"

	defaultTimeout = 10 * time.Second
)

// Mode selects what Resolve returns.
type Mode string

const (
	// ModeID extracts the numeric id from the Location path.
	ModeID Mode = "id"
	// ModeLocation returns the Location value itself.
	ModeLocation Mode = "location"
)

// Sentinel errors. All of them only drop the candidate being resolved.
var (
	// ErrNoLocation is returned when the proxy answers without a Location header.
	ErrNoLocation = errors.New("no location header")

	// ErrPatternMismatch is returned when Location does not carry a stream id.
	ErrPatternMismatch = errors.New("location does not match stream id pattern")

	// ErrTimeout is returned when the probe exceeds its time bound.
	ErrTimeout = errors.New("stream probe timed out")
)

// Resolver probes the stream proxy for one CUID at a time.
type Resolver struct {
	proxyTemplate string
	mode          Mode
	userAgent     string
	httpClient    *http.Client
	limiter       *rate.Limiter
	log           *slog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithProxyTemplate sets the proxy URL; "{cuid}" is replaced by the id.
func WithProxyTemplate(tmpl string) Option {
	return func(r *Resolver) {
		if tmpl != "" {
			r.proxyTemplate = tmpl
		}
	}
}

// WithMode sets what Resolve returns.
func WithMode(m Mode) Option {
	return func(r *Resolver) {
		if m != "" {
			r.mode = m
		}
	}
}

// WithTimeout bounds a single probe.
func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.httpClient.Timeout = d
		}
	}
}

// WithTransport replaces the HTTP transport (tests, proxies).
func WithTransport(rt http.RoundTripper) Option {
	return func(r *Resolver) {
		r.httpClient.Transport = rt
	}
}

// WithLimiter shares the site's rate limiter.
func WithLimiter(l *rate.Limiter) Option {
	return func(r *Resolver) {
		r.limiter = l
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(r *Resolver) {
		r.userAgent = ua
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// New creates a resolver. Redirects are never followed.
func New(opts ...Option) *Resolver {
	r := &Resolver{
		proxyTemplate: DefaultProxyTemplate,
		mode:          ModeID,
		httpClient: &http.Client{
			Timeout: defaultTimeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		log: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ProxyURL renders the probe URL for cuid.
func (r *Resolver) ProxyURL(cuid int64) string {
	return strings.ReplaceAll(r.proxyTemplate, "{cuid}", strconv.FormatInt(cuid, 10))
}

// Resolve issues one non-following request for cuid and derives the stream id
// from the Location header.
func (r *Resolver) Resolve(ctx context.Context, cuid int64) (catalog.StreamID, error) {
	if err := fetch.Wait(ctx, r.limiter); err != nil {
		return "", fmt.Errorf("resolve %d: %w", cuid, err)
	}

	proxy := r.ProxyURL(cuid)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxy, nil)
	if err != nil {
		return "", fmt.Errorf("resolve %d: create request: %w", cuid, err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", fmt.Errorf("resolve %d: %w", cuid, ErrTimeout)
		}
		return "", fmt.Errorf("resolve %d: %w", cuid, err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	location := strings.TrimSpace(resp.Header.Get("Location"))
	r.log.Debug("stream probe", "cuid", cuid, "status", resp.StatusCode, "location", location,
		"duration_ms", time.Since(start).Milliseconds())
	if location == "" {
		return "", fmt.Errorf("resolve %d: status %d: %w", cuid, resp.StatusCode, ErrNoLocation)
	}

	if r.mode == ModeLocation {
		return catalog.StreamID(location), nil
	}
	id, ok := contentid.FromRedirectURL(location)
	if !ok {
		return "", fmt.Errorf("resolve %d: %q: %w", cuid, location, ErrPatternMismatch)
	}
	return catalog.StreamID(id), nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}

// StreamURL renders a playable URL from tmpl by replacing "{id}". An empty
// template yields "".
func StreamURL(tmpl string, id catalog.StreamID) string {
	if tmpl == "" || id == "" {
		return ""
	}
	return strings.ReplaceAll(tmpl, "{id}", string(id))
}
