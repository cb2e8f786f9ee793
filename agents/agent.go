package agents

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-playground/validator/v10"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/systemprompt"
	"github.com/bububa/meal-agents/components/systemprompt/cot"
	"github.com/bububa/meal-agents/schema"
)

type IAgent interface {
	Name() string
}

type ChainableAgent interface {
	IAgent
	RunForChain(context.Context, any, *components.LLMResponse) (any, error)
}

// Config represents general agents configuration
type Config struct {
	// client Client for interacting with the language model
	client inference.Client
	//	systemPromptGenerator Component for generating system prompts.
	systemPromptGenerator systemprompt.Generator
	// validate validates decoded output
	validate *validator.Validate
	// model llm model
	model string
	// temperature Temperature for response generation, typically ranging from 0 to 1.
	temperature float32
	// maxTokens Maximum number of tokens allowed in the response
	maxTokens int
	// name is Agent name presentation
	name string
}

// Agent turns a typed input into a typed output with a single inference call.
// The generated text is untrusted: it is extracted, decoded and validated
// before it reaches the caller, and any failure is an *OutputError.
// Every Run owns a fresh memory so an Agent can be shared across goroutines
// once configured.
type Agent[I schema.Schema, O schema.Schema] struct {
	Config
	startHook func(context.Context, *Agent[I, O], *I)
	endHook   func(context.Context, *Agent[I, O], *I, *O, *components.LLMResponse)
	errorHook func(context.Context, *Agent[I, O], *I, *components.LLMResponse, error)
}

// NewAgent initializes the Agent
func NewAgent[I schema.Schema, O schema.Schema](options ...Option) *Agent[I, O] {
	ret := new(Agent[I, O])
	for _, opt := range options {
		opt(&ret.Config)
	}
	if ret.systemPromptGenerator == nil {
		ret.systemPromptGenerator = cot.New()
	}
	if ret.validate == nil {
		ret.validate = validator.New(validator.WithRequiredStructEnabled())
	}
	return ret
}

func (a *Agent[I, O]) SetClient(clt inference.Client) {
	a.client = clt
}

func (a *Agent[I, O]) SetSystemPromptGenerator(g systemprompt.Generator) {
	a.systemPromptGenerator = g
}

func (a *Agent[I, O]) SetModel(model string) {
	a.model = model
}

func (a *Agent[I, O]) SetTemperature(temperature float32) {
	a.temperature = temperature
}

func (a *Agent[I, O]) SetMaxTokens(maxTokens int) {
	a.maxTokens = maxTokens
}

func (a Agent[I, O]) Name() string {
	return a.name
}

func (a *Agent[I, O]) SetName(name string) {
	a.name = name
}

func (a *Agent[I, O]) SetStartHook(fn func(context.Context, *Agent[I, O], *I)) {
	a.startHook = fn
}

func (a *Agent[I, O]) SetEndHook(fn func(context.Context, *Agent[I, O], *I, *O, *components.LLMResponse)) {
	a.endHook = fn
}

func (a *Agent[I, O]) SetErrorHook(fn func(context.Context, *Agent[I, O], *I, *components.LLMResponse, error)) {
	a.errorHook = fn
}

// response obtains generated text from the language model
func (a *Agent[I, O]) response(ctx context.Context, memory *components.Memory, apiResp *components.LLMResponse) error {
	if a.client == nil {
		return ErrNoClient
	}
	req := &inference.Request{
		Model:        a.model,
		SystemPrompt: a.SystemPrompt(),
		Messages:     memory.History(),
		Temperature:  a.temperature,
		MaxTokens:    a.maxTokens,
		JSONMode:     !isText[O](),
	}
	return a.client.Generate(ctx, req, apiResp)
}

// decode parses raw generated text into output and validates it
func (a *Agent[I, O]) decode(raw string, output *O) error {
	if u, ok := any(output).(interface{ Unmarshal([]byte) error }); ok && isText[O]() {
		return u.Unmarshal([]byte(raw))
	}
	candidates := JSONCandidates(raw)
	if len(candidates) == 0 {
		return &OutputError{Agent: a.name, Raw: raw, Err: ErrNoJSON}
	}
	// the first candidate that decodes and validates is the answer, the
	// error reported is the one of the most likely candidate
	var firstErr error
	for _, doc := range candidates {
		ret := new(O)
		err := a.decodeDoc(doc, ret)
		if err == nil {
			*output = *ret
			return nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return &OutputError{Agent: a.name, Raw: raw, Err: firstErr}
}

func (a *Agent[I, O]) decodeDoc(doc string, output *O) error {
	if err := json.Unmarshal([]byte(doc), output); err != nil {
		return err
	}
	if err := a.validate.Struct(output); err != nil {
		var invalid *validator.InvalidValidationError
		if !errors.As(err, &invalid) {
			return err
		}
	}
	return nil
}

// Run runs the agent with the given user input synchronously.
func (a *Agent[I, O]) Run(ctx context.Context, userInput *I, output *O, apiResp *components.LLMResponse) error {
	if fn := a.startHook; fn != nil {
		fn(ctx, a, userInput)
	}
	if apiResp == nil {
		apiResp = new(components.LLMResponse)
	}
	memory := components.NewMemory(0).NewTurn()
	if userInput != nil {
		memory.NewMessage(components.UserRole, *userInput)
	}
	err := a.response(ctx, memory, apiResp)
	if err == nil {
		err = a.decode(apiResp.Text, output)
	}
	if err != nil {
		if fn := a.errorHook; fn != nil {
			fn(ctx, a, userInput, apiResp, err)
		}
		return err
	}
	if fn := a.endHook; fn != nil {
		fn(ctx, a, userInput, output, apiResp)
	}
	return nil
}

// RunForChain runs the agent with the given user input for chain.
func (a *Agent[I, O]) RunForChain(ctx context.Context, userInput any, apiResp *components.LLMResponse) (any, error) {
	in, ok := userInput.(*I)
	if !ok {
		return nil, ErrInvalidInputSchema
	}
	out := new(O)
	if err := a.Run(ctx, in, out, apiResp); err != nil {
		return nil, err
	}
	return out, nil
}

// SystemPromptContextProvider returns agent systemPromptGenerator's context provider
func (a *Agent[I, O]) SystemPromptContextProvider(title string) (systemprompt.ContextProvider, error) {
	return a.systemPromptGenerator.ContextProvider(title)
}

// RegisterSystemPromptContextProvider registers a new context provider
func (a *Agent[I, O]) RegisterSystemPromptContextProvider(provider systemprompt.ContextProvider) {
	a.systemPromptGenerator.AddContextProviders(provider)
}

// UnregisterSystemPromptContextProvider Unregisters an existing context provider.
func (a *Agent[I, O]) UnregisterSystemPromptContextProvider(title string) {
	a.systemPromptGenerator.RemoveContextProviders(title)
}

// SystemPrompt returns the system prompt
func (a *Agent[I, O]) SystemPrompt() string {
	return a.systemPromptGenerator.Generate()
}

func isText[O schema.Schema]() bool {
	var o O
	_, ok := any(o).(schema.String)
	return ok
}
