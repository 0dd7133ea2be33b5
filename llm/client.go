// Package llm provides a provider-agnostic client for generative text APIs.
// It owns the transport boundary: request construction, parameter
// validation, streaming with unary fallback, and error-kind classification.
// Retry and credential rotation live in the orchestrate package.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize limits the response body to prevent memory exhaustion.
const maxResponseSize = 32 * 1024 * 1024 // 32MB

// Client issues generation requests through one provider adapter. The API
// key is supplied per call so one client serves the whole credential pool.
type Client struct {
	provider   Provider
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithBaseURL overrides the provider's default endpoint.
func WithBaseURL(baseURL string) ClientOption {
	return func(client *Client) {
		client.baseURL = baseURL
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ClientOption {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for a registered provider.
func NewClient(providerName string, opts ...ClientOption) (*Client, error) {
	provider := GetProvider(providerName)
	if provider == nil {
		return nil, fmt.Errorf("unknown provider: %s", providerName)
	}

	c := &Client{
		provider: provider,
		httpClient: &http.Client{
			Timeout: 10 * time.Minute, // Large generations need extended timeouts
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Generate issues a single unary request. Errors carry a kind (transient,
// quota, fatal) attached by the provider's status classifier.
func (c *Client) Generate(ctx context.Context, apiKey string, req Request) (*Response, error) {
	if err := c.checkRequest(apiKey, req); err != nil {
		return nil, err
	}

	url := c.provider.BuildURL(c.baseURL, req.Model, apiKey)
	body, err := c.provider.BuildRequestBody(req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	requestID := uuid.New().String()
	c.logger.Debug("Sending generation request",
		"request_id", requestID,
		"provider", c.provider.Name(),
		"model", req.Model,
		"parts", len(req.Parts))

	respBody, err := c.post(ctx, url, apiKey, body)
	if err != nil {
		return nil, err
	}

	resp, err := c.provider.ParseResponse(respBody, req.Model)
	if err != nil {
		return nil, err
	}
	resp.RequestID = requestID
	return resp, nil
}

// GenerateStream issues a streaming request and concatenates the text
// fragments in arrival order. Providers without a streaming path fall back
// to Generate transparently.
func (c *Client) GenerateStream(ctx context.Context, apiKey string, req Request) (*Response, error) {
	if err := c.checkRequest(apiKey, req); err != nil {
		return nil, err
	}

	url, ok := c.provider.StreamURL(c.baseURL, req.Model, apiKey)
	if !ok {
		c.logger.Debug("Provider has no streaming path, using unary call",
			"provider", c.provider.Name())
		return c.Generate(ctx, apiKey, req)
	}

	body, err := c.provider.BuildRequestBody(req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	requestID := uuid.New().String()
	c.logger.Debug("Sending streaming generation request",
		"request_id", requestID,
		"provider", c.provider.Name(),
		"model", req.Model)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq, apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
		return nil, c.provider.ClassifyError(httpResp.StatusCode, respBody)
	}

	var text strings.Builder
	var usage Usage
	scanner := bufio.NewScanner(httpResp.Body)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" || data == "[DONE]" {
			continue
		}
		fragment, eventUsage, err := c.provider.ParseStreamEvent([]byte(data))
		if err != nil {
			return nil, NewTransientError(fmt.Errorf("parse stream event: %w", err))
		}
		text.WriteString(fragment)
		if eventUsage != nil {
			usage = *eventUsage
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, NewTransientError(fmt.Errorf("read stream: %w", err))
	}

	return &Response{
		RequestID: requestID,
		Text:      text.String(),
		Model:     req.Model,
		Usage:     usage,
	}, nil
}

// checkRequest validates everything that can fail before network activity.
func (c *Client) checkRequest(apiKey string, req Request) error {
	if apiKey == "" {
		return NewFatalError(fmt.Errorf("API key not configured"))
	}
	if req.Model == "" {
		return NewFatalError(fmt.Errorf("model is required"))
	}
	if len(req.Parts) == 0 {
		return NewFatalError(fmt.Errorf("at least one content part is required"))
	}
	return ValidateParams(req.Model, req.Params)
}

// post executes one unary HTTP exchange and classifies failures.
func (c *Client) post(ctx context.Context, url, apiKey string, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	c.provider.SetHeaders(httpReq, apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, c.provider.ClassifyError(httpResp.StatusCode, respBody)
	}
	return respBody, nil
}
