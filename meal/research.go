package meal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bububa/meal-agents/agents"
	"github.com/bububa/meal-agents/components"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/tokencounter"
	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/schema"
	"github.com/bububa/meal-agents/tools"
)

const (
	DefaultMaxSnippets   = 5
	DefaultSnippetTokens = 1200
)

type researchItem struct {
	Name              string `json:"name"`
	Brand             string `json:"brand,omitempty"`
	Portion           string `json:"portion"`
	VisualDescription string `json:"visual_description,omitempty"`
}

type researchInput struct {
	schema.Base
	Item    researchItem    `json:"item"`
	Sources []tools.Snippet `json:"sources"`
}

type researchOutput struct {
	schema.Base
	Found    *bool    `json:"found,omitempty"`
	Calories *float64 `json:"calories" validate:"omitempty,gte=0"`
	Carbs    *float64 `json:"carbs" validate:"omitempty,gte=0"`
	Protein  *float64 `json:"protein" validate:"omitempty,gte=0"`
	Fat      *float64 `json:"fat" validate:"omitempty,gte=0"`
	Source   string   `json:"source,omitempty"`
}

func (o researchOutput) facts() (NutritionFacts, error) {
	if o.Found != nil && !*o.Found {
		return NutritionFacts{}, ErrNutritionNotFound
	}
	item := FoodItem{Calories: o.Calories, Carbs: o.Carbs, Protein: o.Protein, Fat: o.Fat}
	facts, ok := item.Nutrition()
	if !ok {
		return NutritionFacts{}, ErrIncompleteNutrition
	}
	return facts, nil
}

// ResearcherOption configures a Researcher
type ResearcherOption func(r *Researcher)

// WithScraper enriches the top search result with the full page content
func WithScraper(s tools.Scraper) ResearcherOption {
	return func(r *Researcher) {
		r.scraper = s
	}
}

// WithTokenCounter sets the counter trimming sources to the token budget
func WithTokenCounter(c tokencounter.TokenCounter) ResearcherOption {
	return func(r *Researcher) {
		r.counter = c
	}
}

// WithSnippetTokens sets the token budget shared by all sources of an item
func WithSnippetTokens(n int) ResearcherOption {
	return func(r *Researcher) {
		if n > 0 {
			r.snippetTokens = n
		}
	}
}

// WithMaxSnippets caps the number of search results used per item
func WithMaxSnippets(n int) ResearcherOption {
	return func(r *Researcher) {
		if n > 0 {
			r.maxSnippets = n
		}
	}
}

// WithResearchLogger sets the researcher logger
func WithResearchLogger(l *slog.Logger) ResearcherOption {
	return func(r *Researcher) {
		r.logger = l
	}
}

// WithResearchAgentOptions passes options to the underlying agent
func WithResearchAgentOptions(options ...agents.Option) ResearcherOption {
	return func(r *Researcher) {
		r.agentOptions = append(r.agentOptions, options...)
	}
}

// Researcher is the research stage. Items are looked up one after another.
type Researcher struct {
	agent         *agents.Agent[researchInput, researchOutput]
	agentOptions  []agents.Option
	searcher      tools.Searcher
	scraper       tools.Scraper
	counter       tokencounter.TokenCounter
	snippetTokens int
	maxSnippets   int
	logger        *slog.Logger
}

var _ agents.ChainableAgent = (*Researcher)(nil)

// NewResearcher returns a research stage using searcher for lookups and clt
// to read the results
func NewResearcher(clt inference.Client, searcher tools.Searcher, options ...ResearcherOption) *Researcher {
	ret := &Researcher{
		searcher:      searcher,
		snippetTokens: DefaultSnippetTokens,
		maxSnippets:   DefaultMaxSnippets,
	}
	for _, opt := range options {
		opt(ret)
	}
	if ret.counter == nil {
		ret.counter = tokencounter.WordsTokenCounter{}
	}
	if ret.logger == nil {
		ret.logger = logging.New("research")
	}
	opts := append([]agents.Option{
		agents.WithName(Researching.String()),
		agents.WithSystemPromptGenerator(researchPrompt()),
		agents.WithValidator(NewValidator()),
		agents.WithClient(clt),
	}, ret.agentOptions...)
	ret.agent = agents.NewAgent[researchInput, researchOutput](opts...)
	return ret
}

func (s *Researcher) Name() string {
	return s.agent.Name()
}

// Query builds the search query for an item, brand first when known
func Query(item FoodItem) string {
	parts := make([]string, 0, 4)
	if brand := strings.TrimSpace(item.Brand); brand != "" && !strings.Contains(strings.ToLower(item.Name), strings.ToLower(brand)) {
		parts = append(parts, brand)
	}
	parts = append(parts, strings.TrimSpace(item.Name))
	if portion := strings.TrimSpace(item.Portion); portion != "" {
		parts = append(parts, portion)
	}
	parts = append(parts, "nutrition facts calories")
	return strings.Join(parts, " ")
}

// Research returns a new list, same length and order as in, with nutrition
// set on every item that could be resolved. Unresolved items are recorded as
// ItemLookupError on the returned list.
func (s *Researcher) Research(ctx context.Context, in *ItemList, apiResp *components.LLMResponse) (*ItemList, error) {
	out := in.Clone()
	var (
		searchFailures int
		lastSearchErr  error
		usage          = new(components.LLMUsage)
	)
	defer func() {
		if apiResp != nil {
			apiResp.Usage = usage
		}
	}()
	for idx := range out.Items {
		if ctx.Err() != nil {
			return nil, cancelled(ctx, Researching, nil)
		}
		item := &out.Items[idx]
		facts, err := s.lookup(ctx, *item, usage)
		if err == nil {
			item.SetNutrition(facts)
			continue
		}
		if ctx.Err() != nil {
			return nil, cancelled(ctx, Researching, err)
		}
		var outputErr *agents.OutputError
		if !errors.Is(err, ErrSearchFailed) && !errors.As(err, &outputErr) && !isLookupMiss(err) {
			return nil, &UpstreamUnavailableError{Stage: Researching, Collaborator: CollaboratorInference, Err: err}
		}
		if errors.Is(err, ErrSearchFailed) {
			searchFailures++
			lastSearchErr = err
		}
		item.ClearNutrition()
		item.LookupFailed = true
		lookupErr := &ItemLookupError{Index: idx, Item: item.Name, Err: err}
		out.LookupErrors = append(out.LookupErrors, lookupErr)
		s.logger.WarnContext(ctx, "item lookup failed", slog.Int("index", idx), slog.String("item", item.Name), slog.String("error", err.Error()))
	}
	if n := len(out.Items); n > 0 && searchFailures == n {
		return nil, &UpstreamUnavailableError{Stage: Researching, Collaborator: CollaboratorSearch, Err: lastSearchErr}
	}
	return out, nil
}

func (s *Researcher) RunForChain(ctx context.Context, input any, apiResp *components.LLMResponse) (any, error) {
	list, ok := input.(*ItemList)
	if !ok {
		return nil, agents.ErrInvalidInputSchema
	}
	return s.Research(ctx, list, apiResp)
}

func (s *Researcher) lookup(ctx context.Context, item FoodItem, usage *components.LLMUsage) (NutritionFacts, error) {
	if s.searcher == nil {
		return NutritionFacts{}, fmt.Errorf("%w: no search collaborator", ErrSearchFailed)
	}
	query := Query(item)
	snippets, err := s.searcher.Search(ctx, query)
	if err != nil {
		return NutritionFacts{}, fmt.Errorf("%w: %w", ErrSearchFailed, err)
	}
	s.logger.DebugContext(ctx, "searched", slog.String("tool", s.searcher.Title()), slog.String("query", query), slog.Int("results", len(snippets)))
	if len(snippets) == 0 {
		return NutritionFacts{}, ErrNoResults
	}
	in := &researchInput{
		Item: researchItem{
			Name:              item.Name,
			Brand:             item.Brand,
			Portion:           item.Portion,
			VisualDescription: item.VisualDescription,
		},
		Sources: s.sources(ctx, snippets),
	}
	out := new(researchOutput)
	resp := new(components.LLMResponse)
	err = s.agent.Run(ctx, in, out, resp)
	usage.Merge(resp.Usage)
	if err != nil {
		return NutritionFacts{}, err
	}
	return out.facts()
}

// sources caps snippets, optionally replaces the top one with the scraped
// page and trims contents to the token budget
func (s *Researcher) sources(ctx context.Context, snippets []tools.Snippet) []tools.Snippet {
	if len(snippets) > s.maxSnippets {
		snippets = snippets[:s.maxSnippets]
	}
	ret := make([]tools.Snippet, len(snippets))
	copy(ret, snippets)
	if s.scraper != nil && ret[0].URL != "" {
		if content, err := s.scraper.Scrape(ctx, ret[0].URL); err != nil {
			s.logger.DebugContext(ctx, "scrape top result", slog.String("url", ret[0].URL), slog.String("error", err.Error()))
		} else if content = strings.TrimSpace(content); content != "" {
			ret[0].Content = content
		}
	}
	budget := s.snippetTokens / len(ret)
	for idx := range ret {
		ret[idx].Content = s.counter.Truncate(ret[idx].Content, budget)
	}
	return ret
}

func isLookupMiss(err error) bool {
	return errors.Is(err, ErrNoResults) || errors.Is(err, ErrNutritionNotFound) || errors.Is(err, ErrIncompleteNutrition)
}
