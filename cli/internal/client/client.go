package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/partcast/partcast/cli/internal/config"
	"github.com/partcast/partcast/pkg/types"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// ErrNotFound is returned when the server answers 404.
var ErrNotFound = errors.New("client: not found")

// APIError is a non-2xx response that will not be retried.
type APIError struct {
	Status  int
	Message string
	// Part is set when the server rejected an unsupported part identifier.
	Part string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: server returned HTTP %d: %s", e.Status, e.Message)
}

// UnsupportedPart reports whether the server rejected the part identifier.
func (e *APIError) UnsupportedPart() bool {
	return e.Part != ""
}

// Client talks to the partcast-server REST API. Transient failures (network
// errors, 429 and 5xx responses) are retried with exponential backoff; other
// 4xx responses are permanent and returned immediately.
type Client struct {
	base  *url.URL
	http  *http.Client
	cfg   config.RemoteConfig
	sleep func(ctx context.Context, d time.Duration) error // injectable for tests
}

// New creates a Client from rc.
func New(rc config.RemoteConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(rc.ServerURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: parse server url %q: %w", rc.ServerURL, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("client: server url %q: scheme must be http or https", rc.ServerURL)
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	tlsCfg, err := tlsConfig(rc)
	if err != nil {
		return nil, fmt.Errorf("client: %w", err)
	}
	if tlsCfg != nil {
		tr.TLSClientConfig = tlsCfg
	}

	return &Client{
		base:  base,
		http:  &http.Client{Timeout: rc.Timeout, Transport: tr},
		cfg:   rc,
		sleep: sleepCtx,
	}, nil
}

// Project posts req to POST /api/v1/failures/projection.
func (c *Client) Project(ctx context.Context, req types.ProjectionRequest) (*types.ProjectionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("client: encode request: %w", err)
	}
	var out types.ProjectionResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/failures/projection", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Parts fetches GET /api/v1/parts.
func (c *Client) Parts(ctx context.Context) (*types.PartsResponse, error) {
	var out types.PartsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/parts", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Recent fetches GET /api/v1/projections.
func (c *Client) Recent(ctx context.Context) ([]types.ProjectionSummary, error) {
	var out []types.ProjectionSummary
	if err := c.do(ctx, http.MethodGet, "/api/v1/projections", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches GET /api/v1/projections/{id}. It returns ErrNotFound for
// unknown or expired IDs.
func (c *Client) Get(ctx context.Context, id string) (*types.ProjectionResponse, error) {
	var out types.ProjectionResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/projections/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health fetches GET /api/v1/health.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var out types.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one logical request with retries and decodes a 2xx body into out.
func (c *Client) do(ctx context.Context, method, path string, body []byte, out interface{}) error {
	bo := newBackoff(c.cfg.Retry.InitialBackoff, c.cfg.Retry.MaxBackoff)
	target := c.base.String() + path

	var lastErr error
	for attempt := 1; attempt <= c.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 1 {
			wait := bo.next()
			slog.Warn("client: request failed, will retry",
				"method", method,
				"path", path,
				"attempt", attempt-1,
				"err", lastErr,
				"retry_in", wait)
			if err := c.sleep(ctx, wait); err != nil {
				return fmt.Errorf("client: %s %s: %w", method, path, err)
			}
		}

		retry, err := c.attempt(ctx, method, target, body, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}
	return fmt.Errorf("client: %s %s: giving up after %d attempts: %w",
		method, path, c.cfg.Retry.MaxAttempts, lastErr)
}

// attempt performs a single HTTP round trip. The bool reports whether the
// failure is transient.
func (c *Client) attempt(ctx context.Context, method, target string, body []byte, out interface{}) (bool, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return false, fmt.Errorf("client: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return false, fmt.Errorf("client: %w", ctx.Err())
		}
		return true, fmt.Errorf("client: %s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return false, fmt.Errorf("client: decode response: %w", err)
		}
		return false, nil
	case resp.StatusCode == http.StatusNotFound:
		return false, ErrNotFound
	}

	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var er types.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&er); err == nil && er.Error != "" {
		apiErr.Message = er.Error
		apiErr.Part = er.Part
	}
	return isTransientStatus(resp.StatusCode), apiErr
}

func (c *Client) authorize(req *http.Request) {
	a := c.cfg.Auth
	switch a.Mode {
	case "apikey":
		if key := a.Key(); key != "" {
			header := a.Header
			if header == "" {
				header = config.DefaultHeader
			}
			req.Header.Set(header, key)
		}
	case "bearer":
		if tok := a.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
}

// isTransientStatus reports whether a response status is worth retrying.
func isTransientStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
