package meal

import (
	"context"
	"log/slog"
	"time"
)

// StateHook is called after every state transition of a run
type StateHook func(ctx context.Context, run *Run, t Transition)

type Option func(p *Pipeline)

// WithStateHook adds a hook fired on every transition, e.g. to report progress
func WithStateHook(fn StateHook) Option {
	return func(p *Pipeline) {
		p.hooks = append(p.hooks, fn)
	}
}

// WithStats shares counters between pipelines
func WithStats(s *Stats) Option {
	return func(p *Pipeline) {
		p.stats = s
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = l
	}
}

// WithClock overrides time.Now for transition timestamps
func WithClock(fn func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = fn
	}
}
