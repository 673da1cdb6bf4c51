/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package upstream is the shared HTTP client for the external data
// providers shown on the dashboard.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/rs/zerolog"
)

// maxBody bounds upstream response bodies.
const maxBody = 2 << 20

// ErrUnavailable wraps transport failures and non-2xx responses.
var ErrUnavailable = errors.New("upstream unavailable")

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	Upstream string
	Status   int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s returned status %d", e.Upstream, e.Status)
}

// Unwrap lets errors.Is match ErrUnavailable.
func (e *StatusError) Unwrap() error { return ErrUnavailable }

// Options configures a Client.
type Options struct {
	Name      string // metric and log label
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	Transport http.RoundTripper
}

// Client issues GET requests against one upstream and decodes JSON.
type Client struct {
	name      string
	base      *url.URL
	userAgent string
	http      *http.Client
	logger    zerolog.Logger
}

// New constructs a Client. The transport propagates trace context.
func New(opts Options, logger zerolog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid %s base url %q", opts.Name, opts.BaseURL)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	return &Client{
		name:      opts.Name,
		base:      base,
		userAgent: opts.UserAgent,
		http: &http.Client{
			Timeout:   opts.Timeout,
			Transport: telemetry.HTTPTransport(opts.Transport),
		},
		logger: logger.With().Str("component", "upstream").Str("upstream", opts.Name).Logger(),
	}, nil
}

// Name returns the upstream label.
func (c *Client) Name() string { return c.name }

// GetJSON fetches base+path with query and decodes the body into dest.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, dest any) error {
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", c.name, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		telemetry.UpstreamRequestsTotal.WithLabelValues(c.name, "error").Inc()
		c.logger.Warn().Err(err).Str("path", path).Msg("upstream request failed")
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, c.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		telemetry.UpstreamRequestsTotal.WithLabelValues(c.name, "status").Inc()
		c.logger.Warn().Int("status", resp.StatusCode).Str("path", path).Msg("upstream returned error status")
		return &StatusError{Upstream: c.name, Status: resp.StatusCode}
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(dest); err != nil {
		telemetry.UpstreamRequestsTotal.WithLabelValues(c.name, "decode").Inc()
		return fmt.Errorf("decode %s response: %w", c.name, err)
	}

	telemetry.UpstreamRequestsTotal.WithLabelValues(c.name, "ok").Inc()
	c.logger.Debug().Str("path", path).Dur("took", time.Since(start)).Msg("upstream request")
	return nil
}
