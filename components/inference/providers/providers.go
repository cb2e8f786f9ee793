package providers

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/generative-ai-go/genai"
	anthropicsdk "github.com/liushuangls/go-anthropic/v2"
	openaisdk "github.com/sashabaranov/go-openai"
	"google.golang.org/api/option"

	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/inference/providers/anthropic"
	"github.com/bububa/meal-agents/components/inference/providers/gemini"
	"github.com/bububa/meal-agents/components/inference/providers/openai"
)

var (
	FromOpenAI    = openai.New
	FromGemini    = gemini.New
	FromAnthropic = anthropic.New
)

// Settings describe how to reach a provider
type Settings struct {
	Provider   inference.Provider
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
}

// New builds an inference client for the configured provider. The returned
// close func releases provider resources and is never nil.
func New(ctx context.Context, s Settings, opts ...inference.Option) (inference.Client, func() error, error) {
	noop := func() error { return nil }
	httpClient := s.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	switch s.Provider {
	case inference.ProviderOpenAI:
		cfg := openaisdk.DefaultConfig(s.APIKey)
		if s.BaseURL != "" {
			cfg.BaseURL = s.BaseURL
		}
		cfg.HTTPClient = httpClient
		return FromOpenAI(openaisdk.NewClientWithConfig(cfg), opts...), noop, nil
	case inference.ProviderAnthropic:
		clientOpts := []anthropicsdk.ClientOption{anthropicsdk.WithHTTPClient(httpClient)}
		if s.BaseURL != "" {
			clientOpts = append(clientOpts, anthropicsdk.WithBaseURL(s.BaseURL))
		}
		return FromAnthropic(anthropicsdk.NewClient(s.APIKey, clientOpts...), opts...), noop, nil
	case inference.ProviderGemini:
		clientOpts := []option.ClientOption{option.WithAPIKey(s.APIKey)}
		if s.BaseURL != "" {
			clientOpts = append(clientOpts, option.WithEndpoint(s.BaseURL))
		}
		clt, err := genai.NewClient(ctx, clientOpts...)
		if err != nil {
			return nil, noop, fmt.Errorf("create gemini client: %w", err)
		}
		return FromGemini(clt, opts...), clt.Close, nil
	}
	return nil, noop, fmt.Errorf("unsupported inference provider: %q", s.Provider)
}
