package gemini

import (
	"context"
	"errors"

	"github.com/google/generative-ai-go/genai"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
)

type Client struct {
	*genai.Client

	inference.Options
}

var _ inference.Client = (*Client)(nil)

func New(client *genai.Client, opts ...inference.Option) *Client {
	i := &Client{
		Client: client,
	}
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Client) Provider() inference.Provider {
	return inference.ProviderGemini
}

// Generate flattens the conversation into a single content turn. Every agent
// call in this module is one-shot, so no chat session is kept.
func (p *Client) Generate(ctx context.Context, req *inference.Request, resp *components.LLMResponse) error {
	modelName := p.Model(req)
	model := p.GenerativeModel(modelName)
	model.SetTemperature(req.Temperature)
	if maxTokens := p.MaxTokens(req); maxTokens > 0 {
		model.SetMaxOutputTokens(int32(maxTokens))
	}
	if req.JSONMode {
		model.ResponseMIMEType = "application/json"
	}
	if req.SystemPrompt != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemPrompt))
	}
	parts := make([]genai.Part, 0, len(req.Messages)+1)
	for _, msg := range req.Messages {
		parts = append(parts, msg.ToGemini()...)
	}
	res, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return inference.Unavailable(ctx, p.Provider(), err)
	}
	if len(res.Candidates) == 0 {
		return inference.Unavailable(ctx, p.Provider(), errors.New("empty candidates"))
	}
	if resp != nil {
		resp.FromGemini(modelName, res)
	}
	return nil
}
