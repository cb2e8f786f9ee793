package agents

import (
	"context"

	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/schema"
)

// StepHook is called before a chain step starts with the input handed to it
type StepHook func(ctx context.Context, step int, agent ChainableAgent, input any) error

// Chain agents chain. Each step consumes the previous step output.
type Chain[I schema.Schema, O schema.Schema] struct {
	agents   []ChainableAgent
	stepHook StepHook
}

// NewChain returns a new Chain instance
func NewChain[I schema.Schema, O schema.Schema](agents ...ChainableAgent) *Chain[I, O] {
	return &Chain[I, O]{
		agents: agents,
	}
}

// WithStepHook returns a copy of the chain calling fn before every step.
// A hook error stops the chain.
func (c *Chain[I, O]) WithStepHook(fn StepHook) *Chain[I, O] {
	return &Chain[I, O]{
		agents:   c.agents,
		stepHook: fn,
	}
}

// Agents returns the chain steps
func (c *Chain[I, O]) Agents() []ChainableAgent {
	return c.agents
}

// Run runs the chat agents with the given user input synchronously.
// The context is checked before every step.
func (c *Chain[I, O]) Run(ctx context.Context, input *I, output *O) ([]components.LLMResponse, error) {
	apiRespList := make([]components.LLMResponse, 0, len(c.agents))
	var (
		in  any = input
		out any
	)
	for idx, agent := range c.agents {
		if err := ctx.Err(); err != nil {
			return apiRespList, err
		}
		if fn := c.stepHook; fn != nil {
			if err := fn(ctx, idx, agent, in); err != nil {
				return apiRespList, err
			}
		}
		apiResp := new(components.LLMResponse)
		ret, err := agent.RunForChain(ctx, in, apiResp)
		apiRespList = append(apiRespList, *apiResp)
		if err != nil {
			return apiRespList, err
		}
		in = ret
		out = ret
	}
	outO, ok := out.(*O)
	if !ok {
		return apiRespList, ErrInvalidOutputSchema
	}
	*output = *outO
	return apiRespList, nil
}

// RunForChain runs the chat agents with the given user input for chain.
func (c *Chain[I, O]) RunForChain(ctx context.Context, input any, apiResp *components.LLMResponse) (any, error) {
	in, ok := input.(*I)
	if !ok {
		return nil, ErrInvalidInputSchema
	}
	out := new(O)
	apiRespList, err := c.Run(ctx, in, out)
	if apiResp != nil {
		apiResp.Usage = TotalUsage(apiRespList)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Name returns the chain name
func (c *Chain[I, O]) Name() string {
	return "chain"
}

// TotalUsage sums token usage over responses, nil when none is reported
func TotalUsage(list []components.LLMResponse) *components.LLMUsage {
	var usage *components.LLMUsage
	for _, v := range list {
		if v.Usage == nil {
			continue
		}
		if usage == nil {
			usage = new(components.LLMUsage)
		}
		usage.Merge(v.Usage)
	}
	return usage
}
