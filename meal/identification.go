package meal

import (
	"context"
	"strings"

	"github.com/bububa/meal-agents/agents"
	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/schema"
)

type identificationInput struct {
	schema.Base
	Task string `json:"task"`
	Hint string `json:"hint,omitempty"`
}

type identifiedItem struct {
	Name              string `json:"name" validate:"notblank"`
	Portion           string `json:"portion" validate:"portion"`
	VisualDescription string `json:"visual_description"`
	Brand             string `json:"brand,omitempty"`
	Uncertain         bool   `json:"uncertain,omitempty"`
}

type identificationOutput struct {
	schema.Base
	Items []identifiedItem `json:"items" validate:"required,dive"`
}

// Identifier is the identification stage
type Identifier struct {
	agent *agents.Agent[identificationInput, identificationOutput]
}

var _ agents.ChainableAgent = (*Identifier)(nil)

// NewIdentifier returns an identification stage calling clt
func NewIdentifier(clt inference.Client, options ...agents.Option) *Identifier {
	opts := append([]agents.Option{
		agents.WithName(Identifying.String()),
		agents.WithSystemPromptGenerator(identificationPrompt()),
		agents.WithValidator(NewValidator()),
		agents.WithClient(clt),
	}, options...)
	return &Identifier{
		agent: agents.NewAgent[identificationInput, identificationOutput](opts...),
	}
}

func (s *Identifier) Name() string {
	return s.agent.Name()
}

// Identify lists the food items in the request image. Items have non-empty
// name and portion and no nutrition data.
func (s *Identifier) Identify(ctx context.Context, req *Request, apiResp *components.LLMResponse) (*ItemList, error) {
	in := &identificationInput{
		Task: "Identify every food and beverage item in the attached image.",
		Hint: strings.TrimSpace(req.Hint),
	}
	in.SetAttachement(req.Attachement())
	out := new(identificationOutput)
	if err := s.agent.Run(ctx, in, out, apiResp); err != nil {
		return nil, stageError(ctx, Identifying, err)
	}
	list := &ItemList{Items: make([]FoodItem, 0, len(out.Items))}
	for _, v := range out.Items {
		list.Items = append(list.Items, FoodItem{
			Name:              strings.TrimSpace(v.Name),
			Portion:           strings.TrimSpace(v.Portion),
			VisualDescription: strings.TrimSpace(v.VisualDescription),
			Brand:             strings.TrimSpace(v.Brand),
			Uncertain:         v.Uncertain,
		})
	}
	return list, nil
}

func (s *Identifier) RunForChain(ctx context.Context, input any, apiResp *components.LLMResponse) (any, error) {
	req, ok := input.(*Request)
	if !ok {
		return nil, agents.ErrInvalidInputSchema
	}
	return s.Identify(ctx, req, apiResp)
}
