// Package llmclient speaks the completion protocol of a single
// locally-hosted LLM endpoint: availability probing, free-form generation,
// and JSON-schema constrained generation. One Client binds exactly one
// (base URL, model) pair; the Orchestrator owns one Client per enabled
// endpoint and fans work across them, never inside a single Client.
package llmclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// maxResponseSize limits the response body read to prevent memory exhaustion.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Client is an immutable, single-endpoint LLM client.
type Client struct {
	baseURL     string
	model       string
	provider    Provider
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      *slog.Logger
}

// Option configures a Client at construction time.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client (timeouts, transport tuning).
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithRetryConfig overrides the default retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(cl *Client) { cl.retryConfig = cfg }
}

// WithLogger sets the logger used for retry/warning messages.
func WithLogger(logger *slog.Logger) Option {
	return func(cl *Client) { cl.logger = logger }
}

// WithProvider overrides the wire-format provider (default "local").
func WithProvider(name string) Option {
	return func(cl *Client) {
		if p := GetProvider(name); p != nil {
			cl.provider = p
		}
	}
}

// New creates a Client bound to baseURL and model.
func New(baseURL, model string, opts ...Option) *Client {
	c := &Client{
		baseURL:     baseURL,
		model:       model,
		provider:    GetProvider("local"),
		retryConfig: DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // allow time for LLM responses
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Model returns the model name this client is bound to.
func (c *Client) Model() string { return c.model }

// BaseURL returns the endpoint base URL this client is bound to.
func (c *Client) BaseURL() string { return c.baseURL }

// IsAvailable probes the endpoint's model-listing route. Any transport
// failure, including a non-2xx response, yields false.
func (c *Client) IsAvailable(ctx context.Context) bool {
	url := c.provider.BuildHealthURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	c.provider.SetHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// ListModels returns the model names the endpoint currently serves.
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	url := c.provider.BuildHealthURL(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build health request: %w", err))
	}
	c.provider.SetHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("list models: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read model list: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(resp.StatusCode, body)
	}
	return c.provider.ParseModelList(body)
}

// Generate sends a non-streaming free-form completion request, retrying
// transient failures up to RetryConfig.MaxAttempts times.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body, err := c.provider.BuildGenerateBody(c.model, prompt)
	if err != nil {
		return "", NewFatalError(fmt.Errorf("build request body: %w", err))
	}
	respBody, err := c.doWithRetry(ctx, body)
	if err != nil {
		return "", err
	}
	text, err := c.provider.ParseGenerateResponse(respBody)
	if err != nil {
		return "", NewDecodeError(err)
	}
	return text, nil
}

// GenerateStructured sends a completion request constrained by schema (a
// JSON Schema document) and unmarshals the response into target, typically
// a pointer to a struct. Fails with SchemaMismatch if the decoded text does
// not parse into target.
func (c *Client) GenerateStructured(ctx context.Context, prompt string, schema []byte, target any) error {
	body, err := c.provider.BuildStructuredBody(c.model, prompt, schema)
	if err != nil {
		return NewFatalError(fmt.Errorf("build request body: %w", err))
	}
	respBody, err := c.doWithRetry(ctx, body)
	if err != nil {
		return err
	}
	text, err := c.provider.ParseGenerateResponse(respBody)
	if err != nil {
		return NewDecodeError(err)
	}
	raw := ExtractJSON(text)
	if raw == "" {
		raw = text
	}
	if err := json.Unmarshal([]byte(raw), target); err != nil {
		return NewSchemaMismatch(err)
	}
	return nil
}

// doWithRetry executes a request body against the generate endpoint,
// retrying transient failures with exponential backoff and jitter.
func (c *Client) doWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.retryConfig.MaxAttempts; attempt++ {
		respBody, err := c.doRequest(ctx, body)
		if err == nil {
			return respBody, nil
		}
		lastErr = err

		if IsFatal(err) {
			return nil, err
		}

		if attempt < c.retryConfig.MaxAttempts {
			backoff := c.calculateBackoff(attempt)
			c.logger.Warn("LLM request failed, retrying",
				"attempt", attempt,
				"max_attempts", c.retryConfig.MaxAttempts,
				"backoff", backoff,
				"error", err)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return nil, lastErr
}

// calculateBackoff computes exponential backoff with +/-25% jitter to
// avoid synchronized retries across workers hitting the same endpoint.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retryConfig.BackoffMultiplier
	}
	backoff := time.Duration(float64(c.retryConfig.BackoffBase) * multiplier)
	if backoff > c.retryConfig.MaxBackoff {
		backoff = c.retryConfig.MaxBackoff
	}
	jitter := float64(backoff) * 0.25 * (rand.Float64()*2 - 1)
	return backoff + time.Duration(jitter)
}

func (c *Client) doRequest(ctx context.Context, body []byte) ([]byte, error) {
	url := c.provider.BuildGenerateURL(c.baseURL)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPStatus(httpResp.StatusCode, respBody)
	}

	return respBody, nil
}
