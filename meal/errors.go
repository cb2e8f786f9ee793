package meal

import (
	"context"
	"errors"
	"fmt"

	"github.com/bububa/meal-agents/agents"
)

// Collaborators named by UpstreamUnavailableError
const (
	CollaboratorInference = "inference"
	CollaboratorSearch    = "search"
)

var (
	// ErrSearchFailed the search collaborator returned an error
	ErrSearchFailed = errors.New("search failed")
	// ErrNoResults the search returned nothing for the item
	ErrNoResults = errors.New("no search results")
	// ErrNutritionNotFound the sources did not hold data for the item
	ErrNutritionNotFound = errors.New("nutrition data not found")
	// ErrIncompleteNutrition some of the four nutrition values are missing
	ErrIncompleteNutrition = errors.New("incomplete nutrition data")
)

// StageOutputError a stage produced text that does not parse into its
// structured output. Fatal for the request.
type StageOutputError struct {
	Stage State
	Raw   string
	Err   error
}

func (e *StageOutputError) Error() string {
	return fmt.Sprintf("%s stage: malformed output: %v", e.Stage, e.Err)
}

func (e *StageOutputError) Unwrap() error {
	return e.Err
}

// ItemLookupError nutrition research failed for a single item. The item keeps
// its nutrition fields unset and the stage goes on.
type ItemLookupError struct {
	Index int
	Item  string
	Err   error
}

func (e *ItemLookupError) Error() string {
	return fmt.Sprintf("lookup item #%d %q: %v", e.Index, e.Item, e.Err)
}

func (e *ItemLookupError) Unwrap() error {
	return e.Err
}

// UpstreamUnavailableError the inference or search collaborator could not
// serve the stage. Fatal for the request, never retried here.
type UpstreamUnavailableError struct {
	Stage        State
	Collaborator string
	Err          error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("%s stage: %s unavailable: %v", e.Stage, e.Collaborator, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// CancelledError the caller abandoned the request while the stage ran
type CancelledError struct {
	Stage State
	Err   error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("%s stage: cancelled: %v", e.Stage, e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// StageOf returns the stage a pipeline error belongs to
func StageOf(err error) (State, bool) {
	var (
		outputErr   *StageOutputError
		upstreamErr *UpstreamUnavailableError
		cancelErr   *CancelledError
	)
	switch {
	case errors.As(err, &outputErr):
		return outputErr.Stage, true
	case errors.As(err, &upstreamErr):
		return upstreamErr.Stage, true
	case errors.As(err, &cancelErr):
		return cancelErr.Stage, true
	}
	return Pending, false
}

// stageError classifies an agent run error for the stage. Only a done ctx
// makes it a cancellation; deadline errors from collaborator timeouts are
// outages.
func stageError(ctx context.Context, stage State, err error) error {
	if err == nil {
		return nil
	}
	var outputErr *agents.OutputError
	switch {
	case errors.As(err, &outputErr):
		return &StageOutputError{Stage: stage, Raw: outputErr.Raw, Err: outputErr.Err}
	case ctx.Err() != nil:
		return cancelled(ctx, stage, err)
	}
	return &UpstreamUnavailableError{Stage: stage, Collaborator: CollaboratorInference, Err: err}
}

// cancelled returns a CancelledError unwrapping to the context error
func cancelled(ctx context.Context, stage State, err error) *CancelledError {
	ctxErr := ctx.Err()
	if err == nil || !errors.Is(err, ctxErr) {
		err = ctxErr
	}
	return &CancelledError{Stage: stage, Err: err}
}
