package agents

import (
	"github.com/go-playground/validator/v10"

	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/systemprompt"
)

type Option func(a *Config)

func WithClient(clt inference.Client) Option {
	return func(c *Config) {
		c.client = clt
	}
}

func WithSystemPromptGenerator(g systemprompt.Generator) Option {
	return func(c *Config) {
		c.systemPromptGenerator = g
	}
}

// WithValidator replaces the output validator, e.g. one carrying custom rules
func WithValidator(v *validator.Validate) Option {
	return func(c *Config) {
		c.validate = v
	}
}

func WithModel(model string) Option {
	return func(c *Config) {
		c.model = model
	}
}

func WithTemperature(temperature float32) Option {
	return func(c *Config) {
		c.temperature = temperature
	}
}

func WithMaxTokens(maxTokens int) Option {
	return func(c *Config) {
		c.maxTokens = maxTokens
	}
}

func WithName(name string) Option {
	return func(c *Config) {
		c.name = name
	}
}
