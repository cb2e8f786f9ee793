package meal

import (
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/bububa/meal-agents/components"
)

// Run is the record of one analysis request. It is owned by the goroutine
// running Pipeline.Analyze and must not be shared until Analyze returns.
type Run struct {
	ID      string       `json:"id"`
	State   State        `json:"state"`
	History []Transition `json:"history"`
	// LookupErrors items research could not resolve
	LookupErrors []*ItemLookupError `json:"-"`
	Usage        components.LLMUsage `json:"usage"`
	// Report set only when the run completed
	Report     *MealReport `json:"report,omitempty"`
	Err        error       `json:"-"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at,omitempty"`
}

func newRun(now time.Time) *Run {
	return &Run{
		ID:        xid.New().String(),
		State:     Pending,
		StartedAt: now,
	}
}

// transition moves the run to state to, rejecting anything but the single
// forward step or a failure
func (r *Run) transition(to State, at time.Time) (Transition, error) {
	if !CanTransition(r.State, to) {
		return Transition{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, r.State, to)
	}
	t := Transition{From: r.State, To: to, At: at}
	r.State = to
	r.History = append(r.History, t)
	if to.Terminal() {
		r.FinishedAt = at
	}
	return t, nil
}

// Duration from start to finish, or zero while running
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
