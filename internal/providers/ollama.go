package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/ollama/ollama/api"
)

const (
	OllamaDefaultURL   = "http://localhost:11434"
	OllamaDefaultModel = "llama3.1"
)

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

// OllamaClient generates text with a local or remote Ollama server.
type OllamaClient struct {
	usageCounter
	client      *api.Client
	model       string
	temperature float64
}

// NewOllamaClient creates an Ollama text backend.
func NewOllamaClient(cfg OllamaConfig) (*OllamaClient, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = OllamaDefaultURL
	}
	if cfg.Model == "" {
		cfg.Model = OllamaDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 300 * time.Second
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", cfg.BaseURL, err)
	}

	httpClient := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: statusRecorder{next: http.DefaultTransport},
	}
	return &OllamaClient{
		client:      api.NewClient(base, httpClient),
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}, nil
}

var _ TextGenerator = (*OllamaClient)(nil)

// Name returns "ollama/{model}".
func (c *OllamaClient) Name() string {
	return "ollama/" + c.model
}

// Generate runs a non-streaming /api/generate call.
func (c *OllamaClient) Generate(ctx context.Context, req *GenerateRequest) (*GenerateResult, error) {
	stream := false
	options := map[string]any{}
	temp := req.Temperature
	if temp == 0 {
		temp = c.temperature
	}
	if temp != 0 {
		options["temperature"] = temp
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}

	ctx, status := recordStatus(ctx)
	var resp api.GenerateResponse
	err := c.client.Generate(ctx, &api.GenerateRequest{
		Model:   c.model,
		Prompt:  req.Prompt,
		System:  req.System,
		Stream:  &stream,
		Options: options,
	}, func(r api.GenerateResponse) error {
		resp = r
		return nil
	})
	if err != nil {
		return nil, c.wrapError(err, *status)
	}

	in, out := resp.PromptEvalCount, resp.EvalCount
	if in == 0 {
		in = EstimateTokens(c.model, req.System+req.Prompt)
	}
	if out == 0 {
		out = EstimateTokens(c.model, resp.Response)
	}
	c.add(in, out)

	return &GenerateResult{Text: resp.Response, InputTokens: in, OutputTokens: out}, nil
}

// ListModels returns the models available on the server.
func (c *OllamaClient) ListModels(ctx context.Context) ([]string, error) {
	ctx, status := recordStatus(ctx)
	resp, err := c.client.List(ctx)
	if err != nil {
		return nil, c.wrapError(err, *status)
	}
	names := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		names = append(names, m.Name)
	}
	return names, nil
}

// wrapError classifies an ollama/api error. The client reports error bodies
// as plain errors without the status code, so status comes from the
// transport.
func (c *OllamaClient) wrapError(err error, status int) error {
	var statusErr api.StatusError
	if errors.As(err, &statusErr) {
		msg := statusErr.ErrorMessage
		if msg == "" {
			msg = statusErr.Status
		}
		return statusError(c.Name(), statusErr.StatusCode, msg)
	}
	if status >= http.StatusBadRequest {
		return statusError(c.Name(), status, err.Error())
	}

	var urlErr *url.Error
	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded),
		errors.As(err, &urlErr), errors.As(err, &netErr):
		return transportError(c.Name(), err)
	}
	return apiError(c.Name(), err)
}

type statusKey struct{}

// recordStatus returns a context that captures the HTTP status of the
// request made with it.
func recordStatus(ctx context.Context) (context.Context, *int) {
	status := new(int)
	return context.WithValue(ctx, statusKey{}, status), status
}

type statusRecorder struct {
	next http.RoundTripper
}

func (t statusRecorder) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err == nil {
		if status, ok := req.Context().Value(statusKey{}).(*int); ok {
			*status = resp.StatusCode
		}
	}
	return resp, err
}
