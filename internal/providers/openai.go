package providers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const OpenAIDefaultModel = "gpt-4o"

// OpenAIConfig configures an OpenAIClient.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	BaseURL     string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// OpenAIClient generates text with OpenAI chat completions.
type OpenAIClient struct {
	usageCounter
	client      openai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewOpenAIClient creates an OpenAI text backend.
func NewOpenAIClient(cfg OpenAIConfig) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai backend requires an API key (OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = OpenAIDefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 3000
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}

	return &OpenAIClient{
		client:      openai.NewClient(openAIOptions(cfg.APIKey, cfg.BaseURL, cfg.Timeout)...),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
	}, nil
}

// openAIOptions builds request options shared by the chat and image clients.
// Retries are left to the workflow layer.
func openAIOptions(apiKey, baseURL string, timeout time.Duration) []option.RequestOption {
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(0),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return opts
}

var _ TextGenerator = (*OpenAIClient)(nil)

// Name returns "openai/{model}".
func (c *OpenAIClient) Name() string {
	return "openai/" + c.model
}

// Generate runs one chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(req.Prompt))

	maxTokens := c.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(c.model),
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp > 0 {
		params.Temperature = openai.Float(temp)
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, wrapOpenAIError(c.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return nil, apiError(c.Name(), errors.New("no choices in response"))
	}

	in, out := int(resp.Usage.PromptTokens), int(resp.Usage.CompletionTokens)
	c.add(in, out)
	return &GenerateResult{
		Text:         resp.Choices[0].Message.Content,
		InputTokens:  in,
		OutputTokens: out,
	}, nil
}

func wrapOpenAIError(backend string, err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = apiErr.Error()
		}
		return statusError(backend, apiErr.StatusCode, msg)
	}
	return transportError(backend, err)
}
