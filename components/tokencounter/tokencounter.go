// Package tokencounter measures and trims text against a model token budget.
package tokencounter

import (
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter defines the interface for counting tokens in a string.
type TokenCounter interface {
	// Count returns the number of tokens in the given text
	Count(text string) int
	// Truncate returns the longest prefix of text holding at most limit tokens
	Truncate(text string, limit int) string
}

// WordsTokenCounter approximates tokens with whitespace separated words.
type WordsTokenCounter struct{}

func (c WordsTokenCounter) Count(text string) int {
	return len(strings.Fields(text))
}

func (c WordsTokenCounter) Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	words := strings.Fields(text)
	if len(words) <= limit {
		return text
	}
	return strings.Join(words[:limit], " ")
}

// TikTokenCounter provides accurate token counting using the tiktoken library,
// which implements the tokenization schemes used by OpenAI models.
type TikTokenCounter struct {
	tke *tiktoken.Tiktoken
}

// NewTikTokenCounter creates a new TikTokenCounter using the specified encoding.
// Common encodings include:
// - "cl100k_base" (GPT-4, ChatGPT)
// - "o200k_base" (GPT-4o)
func NewTikTokenCounter(encoding string) (*TikTokenCounter, error) {
	tke, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &TikTokenCounter{tke: tke}, nil
}

func (c *TikTokenCounter) Count(text string) int {
	return len(c.tke.Encode(text, nil, nil))
}

func (c *TikTokenCounter) Truncate(text string, limit int) string {
	if limit <= 0 {
		return ""
	}
	tokens := c.tke.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text
	}
	return c.tke.Decode(tokens[:limit])
}

// New returns a tiktoken counter for encoding, falling back to the word
// counter when the encoding cannot be loaded.
func New(encoding string) (TokenCounter, error) {
	if encoding == "" {
		return WordsTokenCounter{}, nil
	}
	counter, err := NewTikTokenCounter(encoding)
	if err != nil {
		return WordsTokenCounter{}, err
	}
	return counter, nil
}
