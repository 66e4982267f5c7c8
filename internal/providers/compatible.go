package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

// CompatibleConfig configures a CompatibleClient.
type CompatibleConfig struct {
	BaseURL     string // e.g. http://localhost:8000/v1 for vLLM
	APIKey      string // optional for most self-hosted servers
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// CompatibleClient generates text with any OpenAI-compatible server
// (vLLM, LM Studio, llama.cpp server).
type CompatibleClient struct {
	usageCounter
	client      *goopenai.Client
	model       string
	maxTokens   int
	temperature float32
}

// NewCompatibleClient creates an OpenAI-compatible text backend.
func NewCompatibleClient(cfg CompatibleConfig) (*CompatibleClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("compatible backend requires a base_url")
	}
	if cfg.Model == "" {
		return nil, errors.New("compatible backend requires a model")
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &CompatibleClient{
		client:      goopenai.NewClientWithConfig(clientCfg),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: float32(cfg.Temperature),
	}, nil
}

var _ TextGenerator = (*CompatibleClient)(nil)

// Name returns "compatible/{model}".
func (c *CompatibleClient) Name() string {
	return "compatible/" + c.model
}

// Generate runs one chat completion.
func (c *CompatibleClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	messages := make([]goopenai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	messages = append(messages, goopenai.ChatCompletionMessage{Role: goopenai.ChatMessageRoleUser, Content: req.Prompt})

	chatReq := goopenai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	}
	if req.MaxTokens > 0 {
		chatReq.MaxTokens = req.MaxTokens
	}
	if req.Temperature > 0 {
		chatReq.Temperature = float32(req.Temperature)
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, c.wrapError(err)
	}
	if len(resp.Choices) == 0 {
		return nil, apiError(c.Name(), errors.New("no choices in response"))
	}

	text := resp.Choices[0].Message.Content
	in, out := resp.Usage.PromptTokens, resp.Usage.CompletionTokens
	if in == 0 && out == 0 {
		in = EstimateTokens(c.model, req.System+req.Prompt)
		out = EstimateTokens(c.model, text)
	}
	c.add(in, out)

	return &GenerateResult{Text: text, InputTokens: in, OutputTokens: out}, nil
}

func (c *CompatibleClient) wrapError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return statusError(c.Name(), apiErr.HTTPStatusCode, apiErr.Message)
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return statusError(c.Name(), reqErr.HTTPStatusCode, reqErr.Error())
	}
	return transportError(c.Name(), err)
}
