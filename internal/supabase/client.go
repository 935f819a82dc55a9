// Package supabase is a small binding to the hosted backend: GoTrue for auth
// and PostgREST for table rows.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2beens/trainor/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const (
	authPath = "/auth/v1"
	restPath = "/rest/v1"

	clientInfo = "trainor-go/1.0"

	DefaultRefreshInterval = 30 * time.Second
	DefaultRefreshMargin   = 90 * time.Second
)

type Options struct {
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
	// SessionStore defaults to an in-memory store.
	SessionStore SessionStore
	// JWTSecret enables signature verification of stored access tokens.
	JWTSecret string
	// AutoRefresh starts a background loop refreshing the session before expiry.
	AutoRefresh     bool
	RefreshInterval time.Duration
	RefreshMargin   time.Duration
}

type Client struct {
	baseURL    *url.URL
	anonKey    string
	httpClient *http.Client

	Auth *AuthClient
}

func NewClient(rawURL, anonKey string, opts Options) (*Client, error) {
	if rawURL == "" || anonKey == "" {
		return nil, fmt.Errorf("supabase url and anon key are required")
	}

	baseURL, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse supabase url: %w", err)
	}
	if baseURL.Scheme != "http" && baseURL.Scheme != "https" {
		return nil, fmt.Errorf("invalid supabase url scheme: %q", baseURL.Scheme)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	store := opts.SessionStore
	if store == nil {
		store = NewMemorySessionStore()
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = DefaultRefreshMargin
	}

	c := &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: httpClient,
	}
	c.Auth = newAuthClient(c, store, opts)
	if opts.AutoRefresh {
		c.Auth.startAutoRefresh(opts.RefreshInterval)
	}

	return c, nil
}

// URL returns the configured endpoint.
func (c *Client) URL() *url.URL {
	u := *c.baseURL
	return &u
}

// Close stops background work. Safe to call more than once.
func (c *Client) Close() {
	c.Auth.stopAutoRefresh()
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header
	// bearer overrides the Authorization token; anon key is used when empty
	bearer string
}

func (c *Client) do(ctx context.Context, req request, out any) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "supabase.request")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("http.method", req.method),
		attribute.String("supabase.path", req.path),
	)

	u := *c.baseURL
	u.Path = strings.TrimRight(u.Path, "/") + req.path
	if len(req.query) > 0 {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	token := req.bearer
	if token == "" {
		token = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("X-Client-Info", clientInfo)
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, values := range req.header {
		httpReq.Header.Del(k)
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.method, req.path, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := parseError(resp.StatusCode, respBytes)
		log.Debugf("supabase %s %s => %d: %s", req.method, req.path, resp.StatusCode, apiErr.Message)
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBytes)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBytes, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}
