package inference

// Options shared by provider clients
type Options struct {
	model     string
	maxTokens int
}

type Option func(o *Options)

// WithModel set the default model
func WithModel(model string) Option {
	return func(o *Options) {
		o.model = model
	}
}

// WithMaxTokens set the default max tokens
func WithMaxTokens(maxTokens int) Option {
	return func(o *Options) {
		o.maxTokens = maxTokens
	}
}

// Model returns the request model, falling back to the default one
func (o Options) Model(req *Request) string {
	if req != nil && req.Model != "" {
		return req.Model
	}
	return o.model
}

// MaxTokens returns the request max tokens, falling back to the default one
func (o Options) MaxTokens(req *Request) int {
	if req != nil && req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return o.maxTokens
}
