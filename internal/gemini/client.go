package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Options configures a Client. Zero values fall back to the public Gemini
// endpoint and a default HTTP client.
type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
}

// Client is a thin generateContent transport. It is stateless and safe for
// concurrent reuse across sessions; construct it once and inject it where a
// provider is needed.
type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client
}

func NewClient(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}

	return &Client{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		httpClient: httpClient,
	}
}

// GenerateContent performs one generateContent round trip and returns the
// raw response for normalization. No retries; a non-2xx status or transport
// fault surfaces as an error carrying the provider's message.
func (c *Client) GenerateContent(ctx context.Context, model string, contents []Content, cfg *GenerationConfig) (*RawResponse, error) {
	payload := generateContentRequest{
		Contents:         contents,
		GenerationConfig: wireConfig(cfg),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return nil, fmt.Errorf("gemini API %s: %s", httpResp.Status, strings.TrimSpace(string(rawBody)))
	}

	var decoded RawResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &decoded, nil
}

func wireConfig(cfg *GenerationConfig) *generationConfig {
	if cfg == nil {
		return nil
	}

	wire := &generationConfig{ResponseModalities: cfg.Modalities}
	if cfg.AspectRatio != "" {
		wire.ImageConfig = &imageConfig{AspectRatio: cfg.AspectRatio}
	}
	return wire
}
