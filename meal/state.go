package meal

import (
	"errors"
	"fmt"
	"time"
)

// State pipeline state
type State int

const (
	Pending State = iota
	Identifying
	Researching
	Aggregating
	Complete
	Failed
)

// ErrInvalidTransition a state change other than the single forward step or
// a failure of a running pipeline
var ErrInvalidTransition = errors.New("invalid state transition")

var stateNames = [...]string{"pending", "identifying", "researching", "aggregating", "complete", "failed"}

func (s State) String() string {
	if s < Pending || s > Failed {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// MarshalText renders the state name
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool {
	return s == Complete || s == Failed
}

// Next is the single forward transition. Terminal states have none.
func (s State) Next() (State, bool) {
	switch s {
	case Pending, Identifying, Researching, Aggregating:
		return s + 1, true
	}
	return s, false
}

// CanTransition reports whether from -> to is allowed
func CanTransition(from, to State) bool {
	if to == Failed {
		return !from.Terminal()
	}
	next, ok := from.Next()
	return ok && next == to
}

// Transition is one recorded state change
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}
