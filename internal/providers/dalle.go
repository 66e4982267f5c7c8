package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
)

const DALLEDefaultModel = "dall-e-3"

// DALLEConfig configures a DALLEClient.
type DALLEConfig struct {
	APIKey  string
	Model   string
	BaseURL string
	Quality string // standard or hd
	Style   string // natural or vivid
	Timeout time.Duration
}

// DALLEClient generates images with the OpenAI images API.
type DALLEClient struct {
	client  openai.Client
	model   string
	quality string
	style   string
}

// NewDALLEClient creates a DALL-E image backend.
func NewDALLEClient(cfg DALLEConfig) (*DALLEClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("dalle backend requires an API key (OPENAI_API_KEY)")
	}
	if cfg.Model == "" {
		cfg.Model = DALLEDefaultModel
	}
	if cfg.Quality == "" {
		cfg.Quality = "hd"
	}
	if cfg.Style == "" {
		cfg.Style = "natural"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &DALLEClient{
		client:  openai.NewClient(openAIOptions(cfg.APIKey, cfg.BaseURL, cfg.Timeout)...),
		model:   cfg.Model,
		quality: cfg.Quality,
		style:   cfg.Style,
	}, nil
}

var _ ImageGenerator = (*DALLEClient)(nil)

// Name returns "dalle/{model}".
func (c *DALLEClient) Name() string {
	return "dalle/" + c.model
}

// Generate requests one base64-encoded image.
func (c *DALLEClient) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	resp, err := c.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Prompt:         prompt,
		Model:          openai.ImageModel(c.model),
		N:              openai.Int(1),
		Size:           openai.ImageGenerateParamsSize(fmt.Sprintf("%dx%d", size.Width, size.Height)),
		Quality:        openai.ImageGenerateParamsQuality(c.quality),
		Style:          openai.ImageGenerateParamsStyle(c.style),
		ResponseFormat: openai.ImageGenerateParamsResponseFormatB64JSON,
	})
	if err != nil {
		return nil, wrapOpenAIError(c.Name(), err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, apiError(c.Name(), errors.New("response contained no image data"))
	}

	img, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, apiError(c.Name(), fmt.Errorf("failed to decode image: %w", err))
	}
	return img, nil
}
