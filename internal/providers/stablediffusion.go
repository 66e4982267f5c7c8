package providers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	StableDiffusionDefaultURL = "http://localhost:7860"
	stableDiffusionName       = "stable-diffusion"
)

// StableDiffusionConfig configures a StableDiffusionClient.
type StableDiffusionConfig struct {
	BaseURL        string
	Steps          int
	CFGScale       float64
	Sampler        string
	NegativePrompt string
	Timeout        time.Duration
}

// StableDiffusionClient generates images with the AUTOMATIC1111 WebUI API.
// The WebUI must be started with --api.
type StableDiffusionClient struct {
	baseURL        string
	steps          int
	cfgScale       float64
	sampler        string
	negativePrompt string
	client         *http.Client
}

// NewStableDiffusionClient creates a Stable Diffusion image backend.
func NewStableDiffusionClient(cfg StableDiffusionConfig) *StableDiffusionClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = StableDiffusionDefaultURL
	}
	if cfg.Steps == 0 {
		cfg.Steps = 30
	}
	if cfg.CFGScale == 0 {
		cfg.CFGScale = 7
	}
	if cfg.Sampler == "" {
		cfg.Sampler = "DPM++ 2M Karras"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	return &StableDiffusionClient{
		baseURL:        strings.TrimSuffix(cfg.BaseURL, "/"),
		steps:          cfg.Steps,
		cfgScale:       cfg.CFGScale,
		sampler:        cfg.Sampler,
		negativePrompt: cfg.NegativePrompt,
		client:         &http.Client{Timeout: cfg.Timeout},
	}
}

var _ ImageGenerator = (*StableDiffusionClient)(nil)

// Name returns "stable-diffusion".
func (c *StableDiffusionClient) Name() string {
	return stableDiffusionName
}

type txt2imgRequest struct {
	Prompt         string  `json:"prompt"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
	Width          int     `json:"width"`
	Height         int     `json:"height"`
	Steps          int     `json:"steps"`
	CFGScale       float64 `json:"cfg_scale"`
	SamplerName    string  `json:"sampler_name"`
}

type txt2imgResponse struct {
	Images []string `json:"images"`
}

// Generate calls POST /sdapi/v1/txt2img and decodes the first image.
func (c *StableDiffusionClient) Generate(ctx context.Context, prompt string, size Size) ([]byte, error) {
	body, err := json.Marshal(txt2imgRequest{
		Prompt:         prompt,
		NegativePrompt: c.negativePrompt,
		Width:          size.Width,
		Height:         size.Height,
		Steps:          c.steps,
		CFGScale:       c.cfgScale,
		SamplerName:    c.sampler,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/sdapi/v1/txt2img", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
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

	var out txt2imgResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, apiError(c.Name(), fmt.Errorf("failed to unmarshal response: %w", err))
	}
	if len(out.Images) == 0 {
		return nil, apiError(c.Name(), errors.New("response contained no images"))
	}

	img, err := base64.StdEncoding.DecodeString(out.Images[0])
	if err != nil {
		return nil, apiError(c.Name(), fmt.Errorf("failed to decode image: %w", err))
	}
	return img, nil
}

// CheckConnection reports whether the WebUI API answers GET /sdapi/v1/sd-models.
func (c *StableDiffusionClient) CheckConnection(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sdapi/v1/sd-models", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return transportError(c.Name(), err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return statusError(c.Name(), resp.StatusCode, resp.Status)
	}
	return nil
}
