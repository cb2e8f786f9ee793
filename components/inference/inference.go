// Package inference defines the text and image capable generation call that
// every agent in the pipeline depends on.
package inference

import (
	"context"

	"github.com/bububa/meal-agents/components"
)

type Provider = string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGemini    Provider = "gemini"
	ProviderAnthropic Provider = "anthropic"
)

// Request is a single generation request
type Request struct {
	// Model overrides the client default model when set
	Model string
	// SystemPrompt instruction text
	SystemPrompt string
	// Messages conversation, image attachements included
	Messages []components.Message
	// Temperature sampling temperature
	Temperature float32
	// MaxTokens maximum tokens in the generated text
	MaxTokens int
	// JSONMode asks the provider for a JSON document when supported
	JSONMode bool
}

// Client generates text for a request. Implementations must be safe for
// concurrent use.
type Client interface {
	Provider() Provider
	Generate(ctx context.Context, req *Request, resp *components.LLMResponse) error
}
