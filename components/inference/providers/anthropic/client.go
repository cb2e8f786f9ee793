package anthropic

import (
	"context"

	anthropic "github.com/liushuangls/go-anthropic/v2"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
)

// DefaultMaxTokens the messages API requires max_tokens on every request
const DefaultMaxTokens = 2048

type Client struct {
	*anthropic.Client

	inference.Options
}

var _ inference.Client = (*Client)(nil)

func New(client *anthropic.Client, opts ...inference.Option) *Client {
	i := &Client{
		Client: client,
	}
	for _, opt := range opts {
		opt(&i.Options)
	}
	return i
}

func (p *Client) Provider() inference.Provider {
	return inference.ProviderAnthropic
}

func (p *Client) Generate(ctx context.Context, req *inference.Request, resp *components.LLMResponse) error {
	temperature := req.Temperature
	chatReq := anthropic.MessagesRequest{
		Model:       anthropic.Model(p.Model(req)),
		System:      req.SystemPrompt,
		Temperature: &temperature,
		MaxTokens:   p.MaxTokens(req),
	}
	if chatReq.MaxTokens == 0 {
		chatReq.MaxTokens = DefaultMaxTokens
	}
	for _, msg := range req.Messages {
		v := new(anthropic.Message)
		msg.ToAnthropic(v)
		chatReq.Messages = append(chatReq.Messages, *v)
	}
	res, err := p.CreateMessages(ctx, chatReq)
	if err != nil {
		return inference.Unavailable(ctx, p.Provider(), err)
	}
	if resp != nil {
		resp.FromAnthropic(&res)
	}
	return nil
}
