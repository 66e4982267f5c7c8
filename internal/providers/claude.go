package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	ClaudeDefaultURL   = "https://api.anthropic.com"
	ClaudeDefaultModel = "claude-3-5-sonnet-20241022"
	claudeAPIVersion   = "2023-06-01"
)

// ClaudeConfig configures a ClaudeClient.
type ClaudeConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// ClaudeClient generates text with the Anthropic Messages API.
type ClaudeClient struct {
	usageCounter
	apiKey      string
	model       string
	baseURL     string
	maxTokens   int
	temperature float64
	client      *http.Client
}

// NewClaudeClient creates a Claude text backend.
func NewClaudeClient(cfg ClaudeConfig) (*ClaudeClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("claude backend requires an API key (ANTHROPIC_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = ClaudeDefaultModel
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = ClaudeDefaultURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &ClaudeClient{
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		client:      &http.Client{Timeout: cfg.Timeout},
	}, nil
}

var _ TextGenerator = (*ClaudeClient)(nil)

// Name returns "claude/{model}".
func (c *ClaudeClient) Name() string {
	return "claude/" + c.model
}

type claudeMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type claudeRequest struct {
	Model       string          `json:"model"`
	MaxTokens   int             `json:"max_tokens"`
	System      string          `json:"system,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []claudeMessage `json:"messages"`
}

type claudeResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// Generate sends one POST /v1/messages request.
func (c *ClaudeClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	body := claudeRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		System:      req.System,
		Temperature: c.temperature,
		Messages:    []claudeMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		body.Temperature = req.Temperature
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", claudeAPIVersion)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, transportError(c.Name(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(c.Name(), fmt.Errorf("failed to read response: %w", err))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError(c.Name(), resp.StatusCode, string(respBody))
	}

	var cr claudeResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return nil, apiError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}

	var text strings.Builder
	for _, block := range cr.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return nil, apiError(c.Name(), errors.New("response contained no text content"))
	}

	c.add(cr.Usage.InputTokens, cr.Usage.OutputTokens)
	return &GenerateResult{
		Text:         text.String(),
		InputTokens:  cr.Usage.InputTokens,
		OutputTokens: cr.Usage.OutputTokens,
	}, nil
}
