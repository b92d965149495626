// Package api is the adapter to the remote finance REST API. Every call that
// needs authentication takes the caller's session explicitly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"minitracker/internal/cache"
	"minitracker/internal/core"
	"minitracker/internal/log"
)

// Client talks to the remote API over a pooled HTTP client.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	logger     *log.Logger

	revenues cache.Cache[[]core.Revenue]
	expenses cache.Cache[[]core.Expense]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default pooled client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the logger used for request logging.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentAPI) }
}

// WithListCache caches ledger listings per user. Mutations through this
// client invalidate the owner's entries.
func WithListCache(size int, ttl time.Duration) Option {
	return func(c *Client) {
		c.revenues = cache.NewLRUCache[[]core.Revenue](size, ttl)
		c.expenses = cache.NewLRUCache[[]core.Expense](size, ttl)
	}
}

func NewClient(baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL %q", baseURL)
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          50,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ExpectContinueTimeout: time.Second,
	}

	c := &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout, Transport: transport},
		logger:     log.New(log.Config{Component: log.ComponentAPI}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Cleaners exposes the list caches for periodic expiry sweeps.
func (c *Client) Cleaners() []cache.Cleaner {
	var out []cache.Cleaner
	if cl, ok := c.revenues.(cache.Cleaner); ok {
		out = append(out, cl)
	}
	if cl, ok := c.expenses.(cache.Cleaner); ok {
		out = append(out, cl)
	}
	return out
}

type request struct {
	method   string
	path     string
	query    url.Values
	body     any
	sess     *core.Session
	fallback string
}

// do performs req and decodes a 2xx JSON body into out when out is non-nil.
func (c *Client) do(ctx context.Context, req request, out any) error {
	target := *c.baseURL
	target.Path = c.baseURL.Path + req.path
	if req.query != nil {
		target.RawQuery = req.query.Encode()
	}

	var payload io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", req.fallback, err)
		}
		payload = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, target.String(), payload)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", req.fallback, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.sess != nil {
		httpReq.Header.Set("Authorization", "Bearer "+req.sess.Token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.WarnContext(ctx, "API request failed",
			log.FieldMethod, req.method, log.FieldEndpoint, req.path, log.FieldError, err)
		return fmt.Errorf("%s: %w", req.fallback, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "API request completed",
		log.FieldMethod, req.method,
		log.FieldEndpoint, req.path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errorFromResponse(resp, req.fallback)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	// Some mutations answer 201 with an empty body.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", req.fallback, err)
	}
	return nil
}
