package components

import (
	"encoding/base64"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	anthropic "github.com/liushuangls/go-anthropic/v2"
	"github.com/rs/xid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/bububa/meal-agents/schema"
)

// NewTurnID returns a new turn ID.
func NewTurnID() string {
	return xid.New().String()
}

// MessageRole is the role of the message sender (e.g., 'user', 'system', 'assistant')
type MessageRole = string

const (
	SystemRole    MessageRole = "system"
	UserRole      MessageRole = "user"
	AssistantRole MessageRole = "assistant"
)

// Message  Represents a message in the chat history.
type Message struct {
	content schema.Schema
	// role is the role of the message sender (e.g., 'user', 'system', 'assistant')
	role MessageRole
	//	turnID is Unique identifier for the turn this message belongs to.
	turnID string
}

// NewMessage returns a new Message
func NewMessage(role MessageRole, content schema.Schema) *Message {
	return &Message{
		role:    role,
		content: content,
	}
}

// SetTurnID set message turnID
func (m *Message) SetTurnID(turnID string) *Message {
	m.turnID = turnID
	return m
}

// Role returns message role
func (m Message) Role() MessageRole {
	return m.role
}

// Content returns message content
func (m Message) Content() schema.Schema {
	return m.content
}

// StringifiedContent returns message content as text
func (m Message) StringifiedContent() string {
	if m.content == nil {
		return ""
	}
	return schema.Stringify(m.content)
}

// Attachement returns message attachement
func (m Message) Attachement() *schema.Attachement {
	if m.content == nil {
		return nil
	}
	return m.content.Attachement()
}

// TurnID returns message turnID
func (m Message) TurnID() string {
	return m.turnID
}

// ToOpenAI convert message to openai ChatCompletionMessage
func (m Message) ToOpenAI(dist *openai.ChatCompletionMessage) {
	dist.Role = m.role
	attachement := m.Attachement()
	if !attachement.HasImages() {
		dist.Content = m.StringifiedContent()
		return
	}
	dist.MultiContent = make([]openai.ChatMessagePart, 0, len(attachement.ImageURLs)+len(attachement.Images)+1)
	dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeText,
		Text: m.StringifiedContent(),
	})
	for _, imageURL := range attachement.ImageURLs {
		dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    imageURL,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
	for _, img := range attachement.Images {
		dist.MultiContent = append(dist.MultiContent, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    DataURL(img),
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}
}

// ToAnthropic convert message to anthropic Message. Remote image URLs are not
// supported by the messages API and are skipped.
func (m Message) ToAnthropic(dist *anthropic.Message) {
	dist.Role = anthropic.ChatRole(m.role)
	attachement := m.Attachement()
	if attachement == nil {
		dist.Content = []anthropic.MessageContent{anthropic.NewTextMessageContent(m.StringifiedContent())}
		return
	}
	dist.Content = make([]anthropic.MessageContent, 0, len(attachement.Images)+1)
	for _, img := range attachement.Images {
		dist.Content = append(dist.Content, anthropic.NewImageMessageContent(anthropic.MessageContentSource{
			Type:      "base64",
			MediaType: img.MimeType,
			Data:      base64.StdEncoding.EncodeToString(img.Data),
		}))
	}
	dist.Content = append(dist.Content, anthropic.NewTextMessageContent(m.StringifiedContent()))
}

// ToGemini convert message to gemini parts
func (m Message) ToGemini() []genai.Part {
	parts := []genai.Part{genai.Text(m.StringifiedContent())}
	if attachement := m.Attachement(); attachement != nil {
		for _, img := range attachement.Images {
			parts = append(parts, genai.Blob{MIMEType: img.MimeType, Data: img.Data})
		}
	}
	return parts
}

// DataURL encodes an inline image as a base64 data URL
func DataURL(img schema.Image) string {
	return fmt.Sprintf("data:%s;base64,%s", img.MimeType, base64.StdEncoding.EncodeToString(img.Data))
}
