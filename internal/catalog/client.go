package catalog

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

	"bandstand/internal/config"
	"bandstand/internal/services"
)

const defaultTimeout = 10 * time.Second

// Transient failures (429, 5xx, timeouts) are retried a couple of times
// with a linear backoff before the error reaches the caller.
const (
	maxAttempts         = 3
	defaultRetryBackoff = 500 * time.Millisecond
)

// maxPageBytes caps page-text downloads; encyclopedia articles fit well
// under this and anything larger is not worth scanning.
const maxPageBytes = 2 << 20

// core is the HTTP plumbing shared by every catalog client: base URL and
// key handling, request pacing, latency-tagged errors.
type core struct {
	catalog      string
	baseURL      string
	apiKey       string
	httpClient   *http.Client
	pacer        *Pacer
	retryBackoff time.Duration
}

// Option configures a catalog client's HTTP core.
type Option func(*core)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *core) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPacer overrides the request pacer, mainly so tests can disable pacing.
func WithPacer(pacer *Pacer) Option {
	return func(c *core) {
		c.pacer = pacer
	}
}

// WithRetryBackoff overrides the delay between transient-failure retries,
// mainly so tests can run them without sleeping.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *core) {
		c.retryBackoff = d
	}
}

func newCore(catalog string, cfg config.Catalog, opts ...Option) (*core, error) {
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		return nil, fmt.Errorf("%s base url required", catalog)
	}
	timeout := defaultTimeout
	if cfg.TimeoutSecs > 0 {
		timeout = time.Duration(cfg.TimeoutSecs) * time.Second
	}
	c := &core{
		catalog:    catalog,
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		httpClient:   &http.Client{Timeout: timeout},
		pacer:        NewPacer(time.Duration(cfg.MinIntervalMS) * time.Millisecond),
		retryBackoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *core) get(ctx context.Context, operation, path string, params url.Values) (*http.Response, error) {
	endpoint, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("parse %s url: %w", c.catalog, err)
	}
	if params == nil {
		params = url.Values{}
	}
	if c.apiKey != "" {
		params.Set("api_key", c.apiKey)
	}
	endpoint.RawQuery = params.Encode()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			if err := SleepWithContext(ctx, time.Duration(attempt-1)*c.retryBackoff); err != nil {
				return nil, err
			}
		}
		if err := c.pacer.Wait(ctx); err != nil {
			return nil, err
		}
		resp, err := c.attempt(ctx, operation, endpoint.String())
		if err == nil {
			return resp, nil
		}
		if errors.Is(err, context.Canceled) || !IsRetriable(err) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *core) attempt(ctx context.Context, operation, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrExternalUnavailable, c.catalog, operation,
			fmt.Sprintf("execute request (latency=%v)", latency), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, services.Wrap(services.ErrExternalUnavailable, c.catalog, operation,
			fmt.Sprintf("returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}
	return resp, nil
}

func (c *core) getJSON(ctx context.Context, operation, path string, params url.Values, payload any) error {
	resp, err := c.get(ctx, operation, path, params)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(payload); err != nil {
		return services.Wrap(services.ErrExternalUnavailable, c.catalog, operation, "decode response", err)
	}
	return nil
}

func (c *core) getText(ctx context.Context, operation, path string, params url.Values) (string, error) {
	resp, err := c.get(ctx, operation, path, params)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return "", services.Wrap(services.ErrExternalUnavailable, c.catalog, operation, "read response body", err)
	}
	return string(body), nil
}
