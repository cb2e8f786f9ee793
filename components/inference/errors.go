package inference

import (
	"context"
	"errors"
	"fmt"
)

// UnavailableError reports that the inference provider could not be reached
// or rejected the call
type UnavailableError struct {
	Provider Provider
	Err      error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s inference unavailable: %v", e.Provider, e.Err)
}

func (e *UnavailableError) Unwrap() error {
	return e.Err
}

// Unavailable wraps a provider call error. The error is returned as is only
// when ctx is done, so a client side timeout still counts as an outage.
func Unavailable(ctx context.Context, provider Provider, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	return &UnavailableError{Provider: provider, Err: err}
}

// IsUnavailable reports whether err is an UnavailableError
func IsUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}
