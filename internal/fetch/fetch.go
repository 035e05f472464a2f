// Package fetch retrieves the documentation page over HTTP with bounded
// retries, redirect limits, content-type gating, and optional on-disk
// revalidation.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hyperifyio/apicatalog/internal/cache"
	"github.com/hyperifyio/apicatalog/internal/dom"
)

// DefaultUserAgent identifies the tool to documentation servers.
const DefaultUserAgent = "apicatalog/1.0 (+https://github.com/hyperifyio/apicatalog)"

// StatusError is returned for non-2xx, non-304 responses.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	if e.Code >= 500 {
		return fmt.Sprintf("server error: %d", e.Code)
	}
	return fmt.Sprintf("unexpected status: %d", e.Code)
}

// Client wraps http.Client and provides timeouts and limited retry on
// transient errors.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// MaxAttempts includes the initial attempt. Minimum 1.
	MaxAttempts int
	// PerRequestTimeout bounds each request.
	PerRequestTimeout time.Duration
	// Optional on-disk cache for GET bodies and validators.
	Cache *cache.HTTPCache
	// BypassCache skips conditional headers but still stores the response.
	BypassCache bool
	// RedirectMaxHops caps redirect following. Zero means 5.
	RedirectMaxHops int
	// Backoff is the base delay between attempts. Zero means 200ms.
	Backoff time.Duration
}

// Result is one fetched page.
type Result struct {
	// URL is the final URL after redirects. Cache entries stay keyed by the
	// requested URL.
	URL         string
	Body        []byte
	ContentType string
	// FromCache is true when the body was served from cache after a 304.
	FromCache bool
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{Timeout: c.PerRequestTimeout, CheckRedirect: c.checkRedirectFunc()}
}

// Page fetches rawURL and parses it into a dom.Page keyed by the URL the
// response came from after redirects.
func (c *Client) Page(ctx context.Context, rawURL string) (*dom.Page, *Result, error) {
	res, err := c.Fetch(ctx, rawURL)
	if err != nil {
		return nil, nil, err
	}
	page, err := dom.Parse(res.URL, res.Body)
	if err != nil {
		return nil, res, err
	}
	return page, res, nil
}

// Fetch issues a GET with context, user-agent, and bounded retry for transient
// errors, revalidating against the cache when one is configured.
func (c *Client) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	var etag, lastMod, cachedType string
	if c.Cache != nil && !c.BypassCache {
		if meta, err := c.Cache.LoadMeta(ctx, rawURL); err == nil && meta != nil {
			etag = meta.ETag
			lastMod = meta.LastModified
			cachedType = meta.ContentType
		}
	}
	attempts := c.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	backoff := c.Backoff
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		r, err := c.tryOnce(ctx, rawURL, etag, lastMod)
		if err == nil {
			return c.finish(ctx, rawURL, r, cachedType)
		}
		lastErr = err
		if !isTransient(err) || i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(i+1) * backoff):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("unknown error")
	}
	return nil, fmt.Errorf("fetch %s: %w", rawURL, lastErr)
}

func (c *Client) finish(ctx context.Context, rawURL string, r response, cachedType string) (*Result, error) {
	finalURL := rawURL
	if r.finalURL != "" {
		finalURL = r.finalURL
	}
	if r.status == http.StatusNotModified {
		if c.Cache == nil {
			return nil, fmt.Errorf("fetch %s: not modified without cache", rawURL)
		}
		body, err := c.Cache.LoadBody(ctx, rawURL)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: load cached body: %w", rawURL, err)
		}
		ct := r.contentType
		if ct == "" {
			ct = cachedType
		}
		return &Result{URL: finalURL, Body: body, ContentType: ct, FromCache: true}, nil
	}
	if c.Cache != nil {
		_ = c.Cache.Save(ctx, rawURL, r.contentType, r.etag, r.lastModified, r.body)
	}
	return &Result{URL: finalURL, Body: r.body, ContentType: r.contentType}, nil
}

type response struct {
	body         []byte
	contentType  string
	etag         string
	lastModified string
	status       int
	// finalURL is set when redirects were followed.
	finalURL     string
}

func (c *Client) tryOnce(ctx context.Context, rawURL string, etag string, lastMod string) (response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return response{}, fmt.Errorf("new request: %w", err)
	}
	if !isHTTPScheme(req.URL) {
		return response{}, fmt.Errorf("unsupported URL scheme: %q", req.URL.String())
	}
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	req.Header.Set("User-Agent", ua)
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}
	if lastMod != "" {
		req.Header.Set("If-Modified-Since", lastMod)
	}

	if c.PerRequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(req.Context(), c.PerRequestTimeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		return response{}, err
	}
	defer resp.Body.Close()

	r := response{
		status:       resp.StatusCode,
		contentType:  resp.Header.Get("Content-Type"),
		etag:         resp.Header.Get("ETag"),
		lastModified: resp.Header.Get("Last-Modified"),
	}
	if resp.Request != nil && resp.Request != req && resp.Request.URL != nil {
		r.finalURL = resp.Request.URL.String()
	}
	if resp.StatusCode == http.StatusNotModified {
		return r, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return r, &StatusError{Code: resp.StatusCode}
	}
	if !isAllowedHTMLContentType(r.contentType) {
		return r, fmt.Errorf("unsupported content type: %s", r.contentType)
	}
	r.body, err = io.ReadAll(resp.Body)
	if err != nil {
		return r, fmt.Errorf("read body: %w", err)
	}
	return r, nil
}

// isTransient treats 5xx, 429, and deadline expiry as retryable.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code >= 500 || se.Code == http.StatusTooManyRequests
	}
	return false
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	if u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

func isAllowedHTMLContentType(ct string) bool {
	ct = strings.ToLower(strings.TrimSpace(ct))
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
