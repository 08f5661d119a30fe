// Package fetch provides the shared HTTP client used by every pipeline
// and worker. It applies a fixed browser header profile and retries
// transient failures with the backoff policy the sites tolerate.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/proxy"

	"github.com/scour-dl/scour/internal/utils"
	"github.com/vfaronov/httpheader"
)

const (
	maxAttempts = 3

	// 429 backoff starts here and doubles each retry.
	rateLimitBaseDelay = 1 * time.Second
	// Flat pause for other transient failures (transport, 5xx).
	transientDelay = 3 * time.Second

	connectTimeout        = 10 * time.Second
	responseHeaderTimeout = 10 * time.Second
)

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/120.0.0.0 Safari/537.36"

const (
	acceptHeader         = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	acceptLanguageHeader = "en-US,en;q=0.9"
)

// StatusError reports a non-2xx HTTP response.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// retryable reports whether the status is worth another attempt.
func (e *StatusError) retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Client is the HTTP client shared by all workers of an engine. It is
// safe for concurrent use.
type Client struct {
	hc        *http.Client
	userAgent string

	// sleep is swapped out in tests to avoid real backoff waits.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient builds the shared client. proxyURL may be empty, an
// http(s):// URL, or a socks5:// URL.
func NewClient(proxyURL, userAgent string) (*Client, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   connectTimeout,
		ResponseHeaderTimeout: responseHeaderTimeout,
		MaxIdleConnsPerHost:   16,
		Proxy:                 http.ProxyFromEnvironment,
	}

	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", proxyURL, err)
		}
		if strings.HasPrefix(parsed.Scheme, "socks5") {
			dialer, err := proxy.SOCKS5("tcp", parsed.Host, nil, proxy.Direct)
			if err != nil {
				return nil, fmt.Errorf("socks5 dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
				return dialer.Dial(network, addr)
			}
		} else {
			transport.Proxy = http.ProxyURL(parsed)
		}
	}

	if userAgent == "" {
		userAgent = defaultUserAgent
	}

	return &Client{
		hc: &http.Client{
			// No overall timeout: video streams are long-lived. The
			// dialer and header timeouts bound each attempt instead.
			Timeout:   0,
			Transport: transport,
		},
		userAgent: userAgent,
		sleep:     sleepCtx,
	}, nil
}

// NewClientWithHTTP wraps an existing http.Client, for callers that need
// full control over the transport.
func NewClientWithHTTP(hc *http.Client, userAgent string) *Client {
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{hc: hc, userAgent: userAgent, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (c *Client) newRequest(ctx context.Context, rawurl string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawurl, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", acceptHeader)
	req.Header.Set("Accept-Language", acceptLanguageHeader)
	return req, nil
}

// get performs one GET with the retry policy: up to three attempts, 1s
// doubling backoff on 429 (Retry-After honored when present), a flat 3s
// pause on other transient failures. 4xx other than 429 surfaces
// immediately. The caller owns the response body on success.
func (c *Client) get(ctx context.Context, rawurl string) (*http.Response, int, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, attempt - 1, err
		}

		req, err := c.newRequest(ctx, rawurl)
		if err != nil {
			return nil, attempt - 1, err
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, attempt, ctx.Err()
			}
			lastErr = fmt.Errorf("get %s: %w", rawurl, err)
			utils.Debug("attempt %d/%d failed: %v", attempt, maxAttempts, err)
			if attempt < maxAttempts {
				if err := c.sleep(ctx, transientDelay); err != nil {
					return nil, attempt, err
				}
			}
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, attempt, nil
		}

		statusErr := &StatusError{Code: resp.StatusCode, URL: rawurl}
		delay := transientDelay
		if resp.StatusCode == http.StatusTooManyRequests {
			delay = rateLimitBaseDelay << (attempt - 1)
			if after := httpheader.RetryAfter(resp.Header); !after.IsZero() {
				if d := time.Until(after); d > delay {
					delay = d
				}
			}
		}

		io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		resp.Body.Close()

		if !statusErr.retryable() {
			return nil, attempt, statusErr
		}
		lastErr = statusErr
		utils.Debug("attempt %d/%d got status %d for %s", attempt, maxAttempts, resp.StatusCode, rawurl)
		if attempt < maxAttempts {
			if err := c.sleep(ctx, delay); err != nil {
				return nil, attempt, err
			}
		}
	}
	return nil, maxAttempts, lastErr
}

// FetchDocument downloads a full HTML document. It returns the body and
// the final URL after redirects, for relative link resolution. The
// connect and header timeouts bound each attempt; there is no overall
// deadline, so a slow retry cycle still gets all its attempts.
func (c *Client) FetchDocument(ctx context.Context, rawurl string) ([]byte, string, error) {
	resp, _, err := c.get(ctx, rawurl)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read %s: %w", rawurl, err)
	}

	finalURL := rawurl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return body, finalURL, nil
}

// Stream is an open media download. The caller drives reads and must
// Close it.
type Stream struct {
	Body          io.ReadCloser
	ContentLength int64 // -1 or 0 when unknown
	FinalURL      string
	Attempts      int // attempts spent establishing the response
	header        http.Header
}

func (s *Stream) Close() error {
	return s.Body.Close()
}

// Filename returns the server-suggested filename from the
// Content-Disposition header, or "" when absent.
func (s *Stream) Filename() string {
	_, filename, _ := httpheader.ContentDisposition(s.header)
	return filename
}

// FetchStream opens a streaming GET for a media file. Retries apply to
// establishing the response only; read errors surface to the caller.
func (c *Client) FetchStream(ctx context.Context, rawurl string) (*Stream, error) {
	resp, attempts, err := c.get(ctx, rawurl)
	if err != nil {
		return nil, err
	}

	finalURL := rawurl
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Stream{
		Body:          resp.Body,
		ContentLength: resp.ContentLength,
		FinalURL:      finalURL,
		Attempts:      attempts,
		header:        resp.Header,
	}, nil
}
