package openai

import (
	"context"
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
)

type Client struct {
	*openai.Client

	inference.Options
}

var _ inference.Client = (*Client)(nil)

func New(client *openai.Client, opts ...inference.Option) *Client {
	i := &Client{
		Client: client,
	}
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Client) Provider() inference.Provider {
	return inference.ProviderOpenAI
}

func (p *Client) Generate(ctx context.Context, req *inference.Request, resp *components.LLMResponse) error {
	chatReq := openai.ChatCompletionRequest{
		Model:       p.Model(req),
		Temperature: req.Temperature,
		MaxTokens:   p.MaxTokens(req),
	}
	if req.JSONMode {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}
	if req.SystemPrompt != "" {
		chatReq.Messages = append(chatReq.Messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range req.Messages {
		v := new(openai.ChatCompletionMessage)
		msg.ToOpenAI(v)
		chatReq.Messages = append(chatReq.Messages, *v)
	}
	res, err := p.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return inference.Unavailable(ctx, p.Provider(), err)
	}
	if len(res.Choices) == 0 {
		return inference.Unavailable(ctx, p.Provider(), errors.New("empty choices"))
	}
	if resp != nil {
		resp.FromOpenAI(&res)
	}
	return nil
}
