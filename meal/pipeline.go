package meal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bububa/meal-agents/agents"
	"github.com/bububa/meal-agents/components/inference"
	"github.com/bububa/meal-agents/components/tokencounter"
	"github.com/bububa/meal-agents/logging"
	"github.com/bububa/meal-agents/tools"
)

// ErrNoInference pipeline built without an inference client
var ErrNoInference = errors.New("meal pipeline requires an inference client")

// Config collaborators and tuning of a Pipeline
type Config struct {
	Client   inference.Client
	Searcher tools.Searcher
	// Scraper optional, enriches the top search result of every item
	Scraper      tools.Scraper
	TokenCounter tokencounter.TokenCounter
	Model        string
	Temperature  float32
	MaxTokens    int
	// SnippetTokens token budget of the sources handed to research per item
	SnippetTokens int
	// MaxSnippets search results used per item
	MaxSnippets int
}

// Pipeline runs identification, research and aggregation in order. It is
// immutable once built and safe for concurrent Analyze calls.
type Pipeline struct {
	identifier *Identifier
	researcher *Researcher
	chain      *agents.Chain[Request, MealReport]
	hooks      []StateHook
	stats      *Stats
	logger     *slog.Logger
	now        func() time.Time
}

// New builds a Pipeline
func New(cfg Config, options ...Option) (*Pipeline, error) {
	if cfg.Client == nil {
		return nil, ErrNoInference
	}
	ret := new(Pipeline)
	for _, opt := range options {
		opt(ret)
	}
	if ret.logger == nil {
		ret.logger = logging.New("meal")
	}
	if ret.stats == nil {
		ret.stats = NewStats()
	}
	if ret.now == nil {
		ret.now = time.Now
	}
	agentOpts := []agents.Option{
		agents.WithModel(cfg.Model),
		agents.WithTemperature(cfg.Temperature),
		agents.WithMaxTokens(cfg.MaxTokens),
	}
	researchOpts := []ResearcherOption{
		WithResearchAgentOptions(agentOpts...),
		WithResearchLogger(ret.logger.With(slog.String("stage", Researching.String()))),
		WithSnippetTokens(cfg.SnippetTokens),
		WithMaxSnippets(cfg.MaxSnippets),
	}
	if cfg.Scraper != nil {
		researchOpts = append(researchOpts, WithScraper(cfg.Scraper))
	}
	if cfg.TokenCounter != nil {
		researchOpts = append(researchOpts, WithTokenCounter(cfg.TokenCounter))
	}
	ret.identifier = NewIdentifier(cfg.Client, agentOpts...)
	ret.researcher = NewResearcher(cfg.Client, cfg.Searcher, researchOpts...)
	ret.chain = agents.NewChain[Request, MealReport](ret.identifier, ret.researcher, aggregator{})
	return ret, nil
}

// Stats returns the pipeline counters
func (p *Pipeline) Stats() *Stats {
	return p.stats
}

// Analyze runs the three stages for req. The returned Run is never nil once
// the image is accepted; it ends Complete with a Report, or Failed with Err
// set to the returned error and no Report.
func (p *Pipeline) Analyze(ctx context.Context, req Request) (*Run, error) {
	img, err := NewMealImage(req.Image.Data, req.Image.MimeType)
	if err != nil {
		return nil, err
	}
	req.Image = img
	run := newRun(p.now())
	p.stats.started.Inc()
	defer p.stats.record(run)
	logger := p.logger.With(slog.String("run", run.ID))

	chain := p.chain.WithStepHook(func(ctx context.Context, _ int, _ agents.ChainableAgent, input any) error {
		if list, ok := input.(*ItemList); ok {
			run.LookupErrors = list.LookupErrors
		}
		next, _ := run.State.Next()
		return p.transition(ctx, logger, run, next)
	})
	report := new(MealReport)
	respList, err := chain.Run(ctx, &req, report)
	if usage := agents.TotalUsage(respList); usage != nil {
		run.Usage = *usage
	}
	if err != nil {
		return run, p.fail(ctx, logger, run, err)
	}
	if err := p.transition(ctx, logger, run, Complete); err != nil {
		return run, p.fail(ctx, logger, run, err)
	}
	run.Report = report
	logger.InfoContext(ctx, "meal analysed",
		slog.String("food", report.FoodName),
		slog.Int("items", len(report.Items)),
		slog.Int("confidence", report.Confidence),
		slog.Int("lookup_errors", len(run.LookupErrors)),
		slog.Duration("took", run.Duration()))
	return run, nil
}

func (p *Pipeline) transition(ctx context.Context, logger *slog.Logger, run *Run, to State) error {
	t, err := run.transition(to, p.now())
	if err != nil {
		return err
	}
	logger.DebugContext(ctx, "state changed", slog.String("from", t.From.String()), slog.String("to", t.To.String()))
	for _, fn := range p.hooks {
		fn(ctx, run, t)
	}
	return nil
}

// fail ends the run in Failed. Errors not raised by a stage are attributed
// to the state the run was in.
func (p *Pipeline) fail(ctx context.Context, logger *slog.Logger, run *Run, err error) error {
	stage := run.State
	if _, ok := StageOf(err); !ok {
		if ctx.Err() != nil {
			err = cancelled(ctx, stage, err)
		} else if !errors.Is(err, ErrInvalidTransition) {
			err = fmt.Errorf("%s stage: %w", stage, err)
		}
	}
	run.Err = err
	if !run.State.Terminal() {
		// failing a running pipeline is always a valid transition
		_ = p.transition(ctx, logger, run, Failed)
	}
	logger.ErrorContext(ctx, "meal analysis failed", slog.String("stage", stage.String()), slog.String("error", err.Error()))
	return err
}
