// Package zotero provides the Zotero Web API client: a single request
// engine with read caching, retry/backoff, server-directed pacing, and
// error classification, plus the typed library operations built on it.
package zotero

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Sternrassler/zotero-mcp/pkg/cache"
	"github.com/Sternrassler/zotero-mcp/pkg/logging"
	"github.com/Sternrassler/zotero-mcp/pkg/ratelimit"
)

// Prometheus metrics for Zotero API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zotero_requests_total",
		Help: "Total Zotero API requests by method and status",
	}, []string{"method", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "zotero_request_duration_seconds",
		Help:    "Zotero API request duration in seconds by method",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10},
	}, []string{"method"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "zotero_errors_total",
		Help: "Total Zotero API errors by taxonomy code",
	}, []string{"code"})

	retriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zotero_retries_total",
		Help: "Total number of retry attempts",
	})

	retryBackoffSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "zotero_retry_backoff_seconds",
		Help:    "Backoff duration before retry attempts",
		Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
	})

	retryExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "zotero_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted",
	})
)

const (
	// DefaultBaseURL is the public Zotero API root.
	DefaultBaseURL = "https://api.zotero.org"

	// DefaultUploadMaxBytes caps attachment payloads at 50 MiB.
	DefaultUploadMaxBytes = 50 * 1024 * 1024

	// apiVersion is sent as Zotero-API-Version on every request.
	apiVersion = "3"

	// metadataTimeout bounds JSON API calls; transferTimeout bounds
	// file downloads and multipart uploads.
	metadataTimeout = 30 * time.Second
	transferTimeout = 60 * time.Second
)

// Config holds the client configuration.
type Config struct {
	// APIKey authenticates requests (Zotero-API-Key header). Required.
	APIKey string

	// UserID scopes all library paths to one user library. Required.
	UserID string

	// BaseURL is the API root. Defaults to the public Zotero API.
	BaseURL string

	// Retry controls attempts and backoff pacing.
	Retry RetryPolicy

	// Cache configures the in-process read cache for GET responses.
	Cache cache.Policy

	// UploadMaxBytes caps attachment payload sizes.
	UploadMaxBytes int64
}

// DefaultConfig returns a safe default configuration for the given
// credentials.
func DefaultConfig(apiKey, userID string) Config {
	return Config{
		APIKey:         apiKey,
		UserID:         userID,
		BaseURL:        DefaultBaseURL,
		Retry:          DefaultRetryPolicy(),
		Cache:          cache.DefaultPolicy(),
		UploadMaxBytes: DefaultUploadMaxBytes,
	}
}

// Client is the Zotero Web API client. All library operations funnel
// through one request engine so caching, retries, pacing, and error
// classification behave identically everywhere.
type Client struct {
	config     Config
	httpClient *http.Client
	transfer   *http.Client
	cache      *cache.Store
	pacer      *ratelimit.Pacer
	logger     zerolog.Logger
}

// New creates a new Zotero client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.UserID == "" {
		return nil, fmt.Errorf("user id is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Retry.MaxAttempts < 1 {
		cfg.Retry.MaxAttempts = 1
	}
	if cfg.Retry.BaseDelay < 0 {
		cfg.Retry.BaseDelay = 0
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		cfg.Retry.MaxDelay = cfg.Retry.BaseDelay
	}
	if cfg.UploadMaxBytes <= 0 {
		cfg.UploadMaxBytes = DefaultUploadMaxBytes
	}

	logger := log.With().Str("component", "zotero-client").Logger()

	return &Client{
		config:     cfg,
		httpClient: &http.Client{Timeout: metadataTimeout},
		transfer:   &http.Client{Timeout: transferTimeout},
		cache:      cache.New(cfg.Cache),
		pacer:      ratelimit.NewPacer(logger),
		logger:     logger,
	}, nil
}

// userPath returns the user-library path for the given suffix.
func (c *Client) userPath(suffix string) string {
	return "/users/" + url.PathEscape(c.config.UserID) + suffix
}

// requestLogger stamps the caller's correlation id onto request events
// when the context carries one.
func (c *Client) requestLogger(ctx context.Context) zerolog.Logger {
	if id, ok := logging.CorrelationID(ctx); ok {
		return c.logger.With().Str("correlation_id", id).Logger()
	}
	return c.logger
}

// apiRequest describes one logical Zotero API call.
type apiRequest struct {
	method string
	path   string
	query  url.Values

	// body is JSON-serialized unless it is already raw bytes.
	body any

	// headers are merged over the base headers.
	headers map[string]string
}

// apiResponse is a successful exchange: status, raw payload, headers.
type apiResponse struct {
	status int
	body   []byte
	header http.Header
}

// do executes one logical API call end-to-end: build URL and headers,
// consult the read cache for bodyless GETs, then loop attempts with
// backoff and server-directed pacing, classifying failures.
func (c *Client) do(ctx context.Context, req apiRequest) (*apiResponse, error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(req.method).Observe(time.Since(start).Seconds())
	}()

	logger := c.requestLogger(ctx)

	fullURL := c.config.BaseURL + req.path
	if len(req.query) > 0 {
		fullURL += "?" + req.query.Encode()
	}

	var payload []byte
	structured := false
	switch body := req.body.(type) {
	case nil:
	case []byte:
		payload = body
	default:
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		payload = encoded
		structured = true
	}

	cacheable := cache.Cacheable(req.method, req.body != nil)
	cacheKey := cache.Key(req.method, fullURL)
	if cacheable {
		if entry, ok := c.cache.Get(cacheKey); ok {
			logger.Debug().
				Str("event", "zotero.cache_hit").
				Str("method", req.method).
				Str("path", req.path).
				Msg("Serving response from read cache")
			return &apiResponse{
				status: http.StatusOK,
				body:   entry.Payload,
				header: headersFromEntry(entry),
			}, nil
		}
	}

	var lastErr error
	retryAfter := ""

	for attempt := 1; attempt <= c.config.Retry.MaxAttempts; attempt++ {
		if err := c.waitBeforeAttempt(ctx, req, attempt, retryAfter); err != nil {
			return nil, err
		}
		retryAfter = ""

		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}
		httpReq, err := http.NewRequestWithContext(ctx, req.method, fullURL, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Zotero-API-Key", c.config.APIKey)
		httpReq.Header.Set("Zotero-API-Version", apiVersion)
		if structured {
			httpReq.Header.Set("Content-Type", "application/json")
		}
		for key, value := range req.headers {
			httpReq.Header.Set(key, value)
		}

		resp, err := c.httpClient.Do(httpReq)
		var respBody []byte
		if err == nil {
			respBody, err = io.ReadAll(resp.Body)
			resp.Body.Close()
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			}
			requestsTotal.WithLabelValues(req.method, "network_error").Inc()
			errorsTotal.WithLabelValues(string(ErrorCodeUpstream)).Inc()
			logger.Warn().
				Str("event", "zotero.request_error").
				Str("method", req.method).
				Str("path", req.path).
				Int("attempt", attempt).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Err(err).
				Msg("Zotero request failed in transport")
			lastErr = err
			if attempt < c.config.Retry.MaxAttempts {
				continue
			}
			retryExhaustedTotal.Inc()
			return nil, &APIError{
				Code:    ErrorCodeUpstream,
				Message: "Zotero request failed.",
				Details: map[string]any{"reason": err.Error()},
				Err:     fmt.Errorf("%w: %v", ErrRetryExhausted, err),
			}
		}

		requestsTotal.WithLabelValues(req.method, strconv.Itoa(resp.StatusCode)).Inc()

		if resp.StatusCode < 400 {
			if cacheable {
				c.cache.Put(cacheKey, respBody, cache.HeadersFromResponse(resp.Header))
			}
			logger.Info().
				Str("event", "zotero.request").
				Str("method", req.method).
				Str("path", req.path).
				Int("status", resp.StatusCode).
				Int("attempt", attempt).
				Int64("duration_ms", time.Since(start).Milliseconds()).
				Msg("Zotero request completed")
			return &apiResponse{status: resp.StatusCode, body: respBody, header: resp.Header}, nil
		}

		apiErr := statusError(resp, respBody)
		errorsTotal.WithLabelValues(string(apiErr.Code)).Inc()
		logger.Warn().
			Str("event", "zotero.request_error").
			Str("method", req.method).
			Str("path", req.path).
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Str("code", string(apiErr.Code)).
			Msg("Zotero request returned an error status")

		if resp.StatusCode == http.StatusTooManyRequests {
			retryAfter = resp.Header.Get("Retry-After")
		}
		if retryableStatus(resp.StatusCode) {
			if attempt < c.config.Retry.MaxAttempts {
				lastErr = apiErr
				continue
			}
			retryExhaustedTotal.Inc()
			apiErr.Err = ErrRetryExhausted
		}
		return nil, apiErr
	}

	// Unreachable: the final attempt always returns or fails above.
	if lastErr != nil {
		return nil, &APIError{
			Code:    ErrorCodeUpstream,
			Message: "Zotero request failed.",
			Details: map[string]any{"reason": lastErr.Error()},
			Err:     lastErr,
		}
	}
	return nil, NewUpstreamError("Zotero request failed.", map[string]any{"reason": "unknown"})
}

// waitBeforeAttempt applies pacing before a retry. A valid Retry-After
// from the previous attempt takes precedence over exponential backoff;
// either way, the shared pacing deadline is honored before transport.
func (c *Client) waitBeforeAttempt(ctx context.Context, req apiRequest, attempt int, retryAfter string) error {
	if attempt > 1 {
		retriesTotal.Inc()
		logger := c.requestLogger(ctx)

		if wait, ok := ratelimit.ParseRetryAfter(retryAfter, time.Now()); ok {
			logger.Info().
				Str("event", "zotero.retry_after").
				Str("method", req.method).
				Str("path", req.path).
				Float64("seconds", wait.Seconds()).
				Int("attempt", attempt).
				Msg("Honoring server-requested delay before retry")
			c.pacer.Observe(wait)
		} else if delay := delayForAttempt(attempt, c.config.Retry); delay > 0 {
			retryBackoffSeconds.Observe(delay.Seconds())
			logger.Debug().
				Str("method", req.method).
				Str("path", req.path).
				Int("attempt", attempt).
				Dur("backoff", delay).
				Msg("Retrying request after backoff")

			timer := time.NewTimer(delay)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return fmt.Errorf("%w: %v", ErrContextCancelled, ctx.Err())
			case <-timer.C:
			}
		}
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrContextCancelled, err)
	}
	return nil
}

// headersFromEntry rebuilds response headers from a cache entry.
func headersFromEntry(entry *cache.Entry) http.Header {
	headers := make(http.Header, len(entry.Headers))
	for key, value := range entry.Headers {
		headers.Set(key, value)
	}
	return headers
}

// requestList performs an API call and decodes a JSON array response.
// An empty payload decodes to an empty slice; any other non-array
// payload is a classified upstream error.
func requestList[T any](ctx context.Context, c *Client, req apiRequest) ([]T, http.Header, error) {
	resp, err := c.do(ctx, req)
	if err != nil {
		return nil, nil, err
	}

	trimmed := bytes.TrimSpace(resp.body)
	if len(trimmed) == 0 {
		return []T{}, resp.header, nil
	}

	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, nil, NewUpstreamError("Unexpected Zotero response format.", map[string]any{"status": resp.status})
	}
	if out == nil {
		return nil, nil, NewUpstreamError("Unexpected Zotero response format.", map[string]any{"status": resp.status})
	}
	return out, resp.header, nil
}

// requestObject performs an API call and decodes a JSON object response.
// An empty payload decodes to the zero value.
func requestObject[T any](ctx context.Context, c *Client, req apiRequest) (T, http.Header, error) {
	var out T

	resp, err := c.do(ctx, req)
	if err != nil {
		return out, nil, err
	}

	trimmed := bytes.TrimSpace(resp.body)
	if len(trimmed) == 0 {
		return out, resp.header, nil
	}

	if err := json.Unmarshal(trimmed, &out); err != nil {
		return out, nil, NewUpstreamError("Unexpected Zotero response format.", map[string]any{"status": resp.status})
	}
	return out, resp.header, nil
}

// SetHTTPClient replaces both transport clients (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
	c.transfer = client
}

// Cache returns the read cache (for testing).
func (c *Client) Cache() *cache.Store {
	return c.cache
}
