// Package styleapi is a thin client for the external styling services:
// closet search, brand catalog, wallet, profile, and image generation. Every
// call returns plain text; the tool layer turns errors into tool-result text.
package styleapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxResponseSizeBytes = 2 << 20

type Config struct {
	URL     string        `envconfig:"URL" split_words:"true" required:"true"`
	Token   string        `envconfig:"TOKEN" split_words:"true" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("styleapi url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid styleapi url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		baseURL: baseURL,
		token:   strings.TrimSpace(cfg.Token),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

func (c *Client) SearchCloset(ctx context.Context, userID, query string) (string, error) {
	return c.post(ctx, "/closet/search", map[string]any{"user_id": userID, "query": query})
}

func (c *Client) SimilarItems(ctx context.Context, userID, description string) (string, error) {
	return c.post(ctx, "/closet/similar", map[string]any{"user_id": userID, "description": description})
}

func (c *Client) SearchBrands(ctx context.Context, query string) (string, error) {
	return c.post(ctx, "/brands/search", map[string]any{"query": query})
}

func (c *Client) WalletBalance(ctx context.Context, userID string) (string, error) {
	return c.post(ctx, "/wallet/balance", map[string]any{"user_id": userID})
}

func (c *Client) GenerateImage(ctx context.Context, prompt string) (string, error) {
	return c.post(ctx, "/images/generate", map[string]any{"prompt": prompt})
}

func (c *Client) Profile(ctx context.Context, userID string) (string, error) {
	return c.post(ctx, "/profile", map[string]any{"user_id": userID})
}

type textResponse struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

func (c *Client) post(ctx context.Context, path string, payload map[string]any) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("styleapi http status=%d body=%s", resp.StatusCode, string(raw))
	}

	var parsed textResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		// Some endpoints answer with bare text.
		return string(raw), nil
	}
	if parsed.Error != "" {
		return "", errors.New(parsed.Error)
	}
	return parsed.Result, nil
}
