package providers

import (
	"github.com/pkoukk/tiktoken-go"
)

// EstimateTokens approximates the token count of text for backends that
// don't report usage. It uses the model's tiktoken encoding when known,
// cl100k_base otherwise, and len/4 if no encoding can be loaded.
func EstimateTokens(model, text string) int {
	if text == "" {
		return 0
	}
	tke, err := tiktoken.EncodingForModel(model)
	if err != nil {
		tke, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil {
		return len(text) / 4
	}
	return len(tke.Encode(text, nil, nil))
}
