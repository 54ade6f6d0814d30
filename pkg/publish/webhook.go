package publish

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ccollicutt/sensortail/pkg/config"
	"github.com/ccollicutt/sensortail/pkg/reading"
)

// Client posts readings to webhook endpoints.
type Client struct {
	httpClient *http.Client
}

// NewClient creates a new webhook client.
func NewClient() *Client {
	return &Client{
		httpClient: &http.Client{},
	}
}

// SendOptions configures a webhook request.
type SendOptions struct {
	URL     string
	Token   string        // Bearer token (optional)
	Timeout time.Duration // Request timeout (uses config.DefaultPublishTimeout if zero)
}

// Response contains the result of a webhook request.
type Response struct {
	StatusCode int
	Body       string
	Duration   time.Duration
	Error      error
}

// Success returns true if the webhook was sent successfully (2xx status).
func (r *Response) Success() bool {
	return r.Error == nil && r.StatusCode >= 200 && r.StatusCode < 300
}

// Send posts a reading to a webhook endpoint.
func (c *Client) Send(ctx context.Context, r reading.Reading, opts SendOptions) *Response {
	start := time.Now()
	resp := &Response{}

	payload, err := Payload(r)
	if err != nil {
		resp.Error = err
		resp.Duration = time.Since(start)
		return resp
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = config.DefaultPublishTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, opts.URL, bytes.NewReader(payload))
	if err != nil {
		resp.Error = fmt.Errorf("failed to create request: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "sensortail-webhook")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		resp.Error = fmt.Errorf("request failed: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, 1024*1024)) // Limit to 1MB
	if err != nil {
		resp.Error = fmt.Errorf("failed to read response: %w", err)
		resp.Duration = time.Since(start)
		return resp
	}

	resp.StatusCode = httpResp.StatusCode
	resp.Body = string(body)
	resp.Duration = time.Since(start)

	if resp.StatusCode >= 400 {
		resp.Error = fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return resp
}

// WebhookPublisher posts each reading to one URL.
type WebhookPublisher struct {
	name   string
	client *Client
	opts   SendOptions
}

// NewWebhook creates a webhook publisher from its configuration.
func NewWebhook(cfg config.PublisherConfig) *WebhookPublisher {
	return &WebhookPublisher{
		name:   cfg.DisplayName(),
		client: NewClient(),
		opts: SendOptions{
			URL:     cfg.URL,
			Token:   cfg.Token,
			Timeout: timeoutOrDefault(cfg.Timeout),
		},
	}
}

// Name returns the publisher name.
func (p *WebhookPublisher) Name() string {
	return p.name
}

// Publish posts the reading.
func (p *WebhookPublisher) Publish(ctx context.Context, r reading.Reading) error {
	return p.client.Send(ctx, r, p.opts).Error
}

// Close is a no-op; the HTTP client holds no dedicated resources.
func (p *WebhookPublisher) Close() error {
	return nil
}
