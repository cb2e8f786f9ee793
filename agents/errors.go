package agents

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInputSchema chain step received an input of an unexpected type
	ErrInvalidInputSchema = errors.New("invalid input schema")
	// ErrInvalidOutputSchema chain produced an output of an unexpected type
	ErrInvalidOutputSchema = errors.New("invalid output schema")
	// ErrNoJSON generated text holds no JSON object
	ErrNoJSON = errors.New("no json object found in generated text")
	// ErrNoClient agent has no inference client
	ErrNoClient = errors.New("agent inference client not set")
)

// OutputError reports generated text that could not be decoded into, or
// validated as, the agent output schema. Raw keeps the untrusted text.
type OutputError struct {
	Agent string
	Raw   string
	Err   error
}

func (e *OutputError) Error() string {
	if e.Agent == "" {
		return fmt.Sprintf("malformed agent output: %v", e.Err)
	}
	return fmt.Sprintf("malformed %s output: %v", e.Agent, e.Err)
}

func (e *OutputError) Unwrap() error {
	return e.Err
}
