package components

import (
	"time"

	"github.com/google/generative-ai-go/genai"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	openai "github.com/sashabaranov/go-openai"
)

// LLMResponse inference provider chat response
type LLMResponse struct {
	ID        string      `json:"id,omitempty"`
	Role      MessageRole `json:"role,omitempty"`
	Model     string      `json:"model,omitempty"`
	Usage     *LLMUsage   `json:"usage,omitempty"`
	Timestamp int64       `json:"ts,omitempty"`
	// Text raw generated text
	Text string `json:"text,omitempty"`
}

// FromOpenAI convnert response from openai
func (r *LLMResponse) FromOpenAI(v *openai.ChatCompletionResponse) {
	r.ID = v.ID
	r.Role = AssistantRole
	r.Model = v.Model
	r.Timestamp = v.Created
	r.Usage = &LLMUsage{
		InputTokens:  int64(v.Usage.PromptTokens),
		OutputTokens: int64(v.Usage.CompletionTokens),
	}
	if len(v.Choices) > 0 {
		r.Text = v.Choices[0].Message.Content
	}
}

// FromAnthropic convert response from anthropic
func (r *LLMResponse) FromAnthropic(v *anthropic.MessagesResponse) {
	r.ID = v.ID
	r.Role = AssistantRole
	r.Model = string(v.Model)
	r.Timestamp = time.Now().Unix()
	r.Usage = &LLMUsage{
		InputTokens:  int64(v.Usage.InputTokens),
		OutputTokens: int64(v.Usage.OutputTokens),
	}
	r.Text = ""
	for _, c := range v.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			r.Text += c.GetText()
		}
	}
}

// FromGemini convert response from gemini
func (r *LLMResponse) FromGemini(model string, v *genai.GenerateContentResponse) {
	r.Role = AssistantRole
	r.Model = model
	r.Timestamp = time.Now().Unix()
	if meta := v.UsageMetadata; meta != nil {
		r.Usage = &LLMUsage{
			InputTokens:  int64(meta.PromptTokenCount),
			OutputTokens: int64(meta.CandidatesTokenCount),
		}
	}
	r.Text = ""
	if len(v.Candidates) == 0 || v.Candidates[0].Content == nil {
		return
	}
	for _, part := range v.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			r.Text += string(txt)
		}
	}
}

type LLMUsage struct {
	InputTokens  int64 `json:"input_tokens,omitempty"`
	OutputTokens int64 `json:"output_tokens,omitempty"`
}

func (u *LLMUsage) Merge(v *LLMUsage) {
	if v == nil {
		return
	}
	u.InputTokens += v.InputTokens
	u.OutputTokens += v.OutputTokens
}
