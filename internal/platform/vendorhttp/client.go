package vendorhttp

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

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultInitialInterval = 500 * time.Millisecond
	maxErrorBody           = 4096
)

// Authenticator decorates outgoing requests with vendor credentials.
// Refresh is called once when the vendor answers 401.
type Authenticator interface {
	Authorize(ctx context.Context, req *http.Request) error
	Refresh(ctx context.Context) error
}

type Options struct {
	BaseURL           string
	HTTPClient        *http.Client
	Timeout           time.Duration
	MaxRetries        int
	InitialInterval   time.Duration
	RateLimit         float64
	RateBurst         int
	IdempotencyHeader string
	Headers           map[string]string
	Auth              Authenticator
	Logger            *slog.Logger
	Module            string
}

// Client is a small JSON/form REST client with retries, client-side rate
// limiting and idempotency keys. Retried attempts reuse the same key.
type Client struct {
	baseURL           string
	http              *http.Client
	maxRetries        int
	initialInterval   time.Duration
	limiter           *rate.Limiter
	idempotencyHeader string
	headers           map[string]string
	auth              Authenticator
	logger            *slog.Logger
	module            string
}

func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("vendor base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse vendor base url: %w", err)
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	maxRetries := opts.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	interval := opts.InitialInterval
	if interval <= 0 {
		interval = defaultInitialInterval
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 1
	}

	headers := make(map[string]string, len(opts.Headers))
	for key, value := range opts.Headers {
		headers[key] = value
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	module := opts.Module
	if module == "" {
		module = "internal/platform/vendorhttp"
	}

	return &Client{
		baseURL:           base,
		http:              httpClient,
		maxRetries:        maxRetries,
		initialInterval:   interval,
		limiter:           rate.NewLimiter(limit, burst),
		idempotencyHeader: opts.IdempotencyHeader,
		headers:           headers,
		auth:              opts.Auth,
		logger:            logger,
		module:            module,
	}, nil
}

type Request struct {
	Method         string
	Path           string
	Query          url.Values
	JSON           any
	Form           url.Values
	IdempotencyKey string
	// NoAuth skips the authenticator, e.g. for the token endpoint itself.
	NoAuth  bool
	Headers map[string]string
}

// Do sends the request and decodes a JSON response into out when out is not
// nil. Network failures, 429 and 5xx answers are retried with exponential
// backoff; other vendor errors are returned as *APIError immediately.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	body, contentType, err := encodeBody(req)
	if err != nil {
		return err
	}
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	endpoint := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		endpoint += "?" + req.Query.Encode()
	}

	attempt := 0
	refreshed := false
	policy := backoff.WithContext(
		backoff.WithMaxRetries(c.newBackOff(), uint64(c.maxRetries)),
		ctx,
	)

	payload, err := backoff.RetryWithData(func() ([]byte, error) {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, backoff.Permanent(err)
		}

		data, status, err := c.send(ctx, method, endpoint, body, contentType, req)
		if err != nil {
			c.logAttemptFailure(method, req.Path, attempt, err)
			if ctx.Err() != nil {
				return nil, backoff.Permanent(ctx.Err())
			}
			return nil, err
		}
		if status == http.StatusUnauthorized && c.auth != nil && !req.NoAuth && !refreshed {
			refreshed = true
			if err := c.auth.Refresh(ctx); err != nil {
				return nil, backoff.Permanent(fmt.Errorf("refresh vendor credentials: %w", err))
			}
			data, status, err = c.send(ctx, method, endpoint, body, contentType, req)
			if err != nil {
				c.logAttemptFailure(method, req.Path, attempt, err)
				return nil, err
			}
		}
		if status >= 200 && status < 300 {
			return data, nil
		}

		apiErr := &APIError{
			StatusCode: status,
			Method:     method,
			Path:       req.Path,
			Body:       truncate(string(data), maxErrorBody),
		}
		if apiErr.Retryable() {
			c.logAttemptFailure(method, req.Path, attempt, apiErr)
			return nil, apiErr
		}
		return nil, backoff.Permanent(apiErr)
	}, policy)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, req.Path, err)
	}
	return nil
}

func (c *Client) send(
	ctx context.Context,
	method string,
	endpoint string,
	body []byte,
	contentType string,
	req Request,
) ([]byte, int, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, 0, backoff.Permanent(fmt.Errorf("build %s %s request: %w", method, req.Path, err))
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	for key, value := range c.headers {
		httpReq.Header.Set(key, value)
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}
	if req.IdempotencyKey != "" && c.idempotencyHeader != "" {
		httpReq.Header.Set(c.idempotencyHeader, req.IdempotencyKey)
	}
	if c.auth != nil && !req.NoAuth {
		if err := c.auth.Authorize(ctx, httpReq); err != nil {
			return nil, 0, backoff.Permanent(fmt.Errorf("authorize vendor request: %w", err))
		}
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, 0, fmt.Errorf("%s %s: %w", method, req.Path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read %s %s response: %w", method, req.Path, err)
	}
	return data, resp.StatusCode, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval
	policy.MaxInterval = 8 * c.initialInterval
	policy.MaxElapsedTime = 0
	return policy
}

func (c *Client) logAttemptFailure(method string, path string, attempt int, err error) {
	c.logger.Warn("vendor request attempt failed",
		"event", "vendor_request_attempt_failed",
		"module", c.module,
		"layer", "adapter",
		"method", method,
		"path", path,
		"attempt", attempt,
		"max_retries", c.maxRetries,
		"error", err.Error(),
	)
}

func encodeBody(req Request) ([]byte, string, error) {
	switch {
	case req.JSON != nil && req.Form != nil:
		return nil, "", errors.New("request cannot carry both json and form bodies")
	case req.JSON != nil:
		body, err := json.Marshal(req.JSON)
		if err != nil {
			return nil, "", fmt.Errorf("encode %s request body: %w", req.Path, err)
		}
		return body, "application/json", nil
	case req.Form != nil:
		return []byte(req.Form.Encode()), "application/x-www-form-urlencoded", nil
	default:
		return nil, "", nil
	}
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit]
}
